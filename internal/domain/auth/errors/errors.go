package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrUnauthorized    = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
)

// Refined reasons. Each one wraps ErrUnauthorized or ErrNotFound, so callers
// that only care about the outcome keep matching on the base sentinel.
var (
	ErrMissingCredentials = fmt.Errorf("%w: missing bearer credentials", ErrUnauthorized)
	ErrMalformedToken     = fmt.Errorf("%w: malformed token", ErrUnauthorized)
	ErrBadSignature       = fmt.Errorf("%w: bad token signature", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrAccountGone        = fmt.Errorf("%w: account no longer exists", ErrUnauthorized)

	ErrEmployeeNotFound = fmt.Errorf("%w: employee id does not exist", ErrNotFound)
)

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// WrapInternal flattens err into an internal error. The cause is kept in the
// message for the server log but is no longer matchable, so an internal
// failure never leaks out as a more specific kind.
func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// Kind is the closed set of outcomes the transport layer knows how to render.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindInvalidArgument
	KindNotFound
	KindAlreadyExists
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// KindOf classifies err. Internal is checked first and is also the fallback
// for anything unrecognised.
func KindOf(err error) Kind {
	switch {
	case err == nil, IsInternal(err):
		return KindInternal
	case IsUnauthorized(err):
		return KindUnauthorized
	case IsInvalidArgument(err):
		return KindInvalidArgument
	case IsNotFound(err):
		return KindNotFound
	case IsAlreadyExists(err):
		return KindAlreadyExists
	case IsForbidden(err):
		return KindForbidden
	default:
		return KindInternal
	}
}

// Reason returns a short label that is safe to put in logs and metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountGone):
		return "account_gone"
	default:
		return KindOf(err).String()
	}
}
