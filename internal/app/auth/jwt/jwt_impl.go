package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/management-company/backoffice/internal/domain/auth/jwt"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const MinSecretLength = 32

var signingMethod = jwt.SigningMethodHS256

type JwtCodecImpl struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTCodec(secret []byte, ttl time.Duration) (*JwtCodecImpl, error) {
	if len(secret) < MinSecretLength {
		return nil, customErrors.WrapInternal(
			fmt.Errorf("secret is %d bytes, need %d", len(secret), MinSecretLength), "signing key")
	}
	if ttl < time.Second {
		return nil, customErrors.WrapInternal(fmt.Errorf("ttl %s below one second", ttl), "token ttl")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &JwtCodecImpl{secret: key, ttl: ttl}, nil
}

// Issue signs {sub, iat, exp}. exp is stored in whole seconds, so the
// returned expiry is truncated the same way.
func (j *JwtCodecImpl) Issue(userID uuid.UUID, now time.Time) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, customErrors.NewInvalidArgument("empty subject")
	}

	claims := jwt2.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign session token")
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Validate checks the MAC over header.payload before anything inside the
// token is decoded, then parses the claims and requires exp > now.
func (j *JwtCodecImpl) Validate(raw string, now time.Time) (model.Principal, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return model.Principal{}, customErrors.ErrMalformedToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return model.Principal{}, customErrors.ErrMalformedToken
	}
	if err := signingMethod.Verify(parts[0]+"."+parts[1], sig, j.secret); err != nil {
		return model.Principal{}, customErrors.ErrBadSignature
	}

	claims := &jwt2.SessionClaims{}
	_, err = parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.Principal{}, customErrors.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return model.Principal{}, customErrors.ErrBadSignature
	default:
		return model.Principal{}, customErrors.ErrMalformedToken
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil || uid == uuid.Nil {
		return model.Principal{}, customErrors.ErrMalformedToken
	}
	return model.Principal{UserID: uid}, nil
}
