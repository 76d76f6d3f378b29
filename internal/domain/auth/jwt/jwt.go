package jwt

import (
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"time"
)

// SessionClaims is the payload of a session token. Only sub and exp carry
// meaning; any other registered or private claim is ignored.
type SessionClaims struct {
	jwt.RegisteredClaims
}

type TokenCodec interface {
	Issue(userID uuid.UUID, now time.Time) (token string, exp time.Time, err error)
	Validate(token string, now time.Time) (model.Principal, error)
}
