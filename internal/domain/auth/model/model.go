package model

import (
	"github.com/google/uuid"
	"time"
)

// Principal is the identity attached to a request after its bearer token
// has been validated. It is never stored.
type Principal struct {
	UserID uuid.UUID
}

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	EmployeeID   uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserPatch holds the optional fields of an account update. Nil means keep.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	EmployeeID   *uuid.UUID
}

func (p UserPatch) Empty() bool {
	return p.Email == nil && p.PasswordHash == nil && p.EmployeeID == nil
}

type Profile struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	UserID    uuid.UUID
}
