package repo

import (
	"context"

	"github.com/Miraines/management-company/backoffice/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetProfile(ctx context.Context, id uuid.UUID) (model.Profile, error)

	UpdateUser(ctx context.Context, id uuid.UUID, patch model.UserPatch) error

	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// UserDirectory answers whether an account still exists. It is the only
// thing the principal extractor needs from persistence.
type UserDirectory interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type EmployeeRepo interface {
	EmployeeExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ExistenceCache is implemented by user directories that remember answers
// and therefore must be told when an account goes away.
type ExistenceCache interface {
	Forget(ctx context.Context, id uuid.UUID) error
}
