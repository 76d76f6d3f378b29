package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Miraines/management-company/backoffice/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/hasher"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/jwt"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/model"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/repo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Register(context.Context, dto.RegisterDTO) (model.Session, error)
	Login(context.Context, dto.LoginDTO) (model.Session, error)
	CurrentUser(context.Context, model.Principal) (model.Profile, model.Session, error)
	UpdateUser(context.Context, model.Principal, dto.UpdateDTO) error
	DeleteUser(context.Context, model.Principal) error
}

type accountService struct {
	users     repo.UserRepo
	employees repo.EmployeeRepo
	hasher    hasher.CredentialHasher
	codec     jwt.TokenCodec
	v         *validator.Validate

	cache repo.ExistenceCache
	log   *zap.Logger
	now   func() time.Time

	// decoy is verified against when the login email is unknown, so both
	// outcomes cost one derivation.
	decoyOnce sync.Once
	decoy     string
}

type Option func(*accountService)

// WithExistenceCache registers a cache that must forget deleted accounts.
func WithExistenceCache(c repo.ExistenceCache) Option {
	return func(s *accountService) { s.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *accountService) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *accountService) { s.now = now }
}

func New(
	ur repo.UserRepo,
	er repo.EmployeeRepo,
	h hasher.CredentialHasher,
	codec jwt.TokenCodec,
	v *validator.Validate,
	opts ...Option,
) Service {
	s := &accountService{
		users:     ur,
		employees: er,
		hasher:    h,
		codec:     codec,
		v:         v,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *accountService) Register(ctx context.Context, in dto.RegisterDTO) (model.Session, error) {
	if err := s.v.Struct(in); err != nil {
		return model.Session{}, customErrors.NewInvalidArgument(err.Error())
	}

	employeeID, err := s.requireEmployee(ctx, in.EmployeeID)
	if err != nil {
		return model.Session{}, err
	}

	passwordHash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return model.Session{}, err
	}

	user := model.User{
		ID:           uuid.New(),
		Email:        normalizeEmail(in.Email),
		PasswordHash: passwordHash,
		EmployeeID:   employeeID,
	}
	if _, err = s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, customErrors.ErrAlreadyExists) {
			return model.Session{}, customErrors.ErrAlreadyExists
		}
		return model.Session{}, customErrors.WrapInternal(err, "Register")
	}

	s.log.Info("account registered", zap.String("user_id", user.ID.String()))
	return s.issue(user.ID)
}

func (s *accountService) Login(ctx context.Context, in dto.LoginDTO) (model.Session, error) {
	if err := s.v.Struct(in); err != nil {
		return model.Session{}, customErrors.NewInvalidArgument(err.Error())
	}

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(in.Email))
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		s.verifyDecoy(ctx, in.Password)
		return model.Session{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.Session{}, customErrors.WrapInternal(err, "Login")
	}

	ok, err := s.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		return model.Session{}, err
	}
	if !ok {
		return model.Session{}, customErrors.ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, in.Password)
	}

	return s.issue(user.ID)
}

func (s *accountService) verifyDecoy(ctx context.Context, password string) {
	s.decoyOnce.Do(func() {
		encoded, err := s.hasher.Hash(context.WithoutCancel(ctx), uuid.NewString())
		if err != nil {
			s.log.Warn("decoy credential unavailable", zap.Error(err))
			return
		}
		s.decoy = encoded
	})
	if s.decoy != "" {
		_, _ = s.hasher.Verify(ctx, password, s.decoy)
	}
}

// rehash upgrades a credential derived with outdated cost parameters. A
// failure leaves the old credential in place.
func (s *accountService) rehash(ctx context.Context, id uuid.UUID, password string) {
	encoded, err := s.hasher.Hash(ctx, password)
	if err == nil {
		err = s.users.UpdateUser(ctx, id, model.UserPatch{PasswordHash: &encoded})
	}
	if err != nil {
		s.log.Warn("credential rehash failed", zap.String("user_id", id.String()), zap.Error(err))
		return
	}
	s.log.Info("credential rehashed", zap.String("user_id", id.String()))
}

func (s *accountService) CurrentUser(ctx context.Context, p model.Principal) (model.Profile, model.Session, error) {
	profile, err := s.users.GetProfile(ctx, p.UserID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.Profile{}, model.Session{}, customErrors.ErrAccountGone
	case err != nil:
		return model.Profile{}, model.Session{}, customErrors.WrapInternal(err, "CurrentUser")
	}

	sess, err := s.issue(p.UserID)
	if err != nil {
		return model.Profile{}, model.Session{}, err
	}
	return profile, sess, nil
}

func (s *accountService) UpdateUser(ctx context.Context, p model.Principal, in dto.UpdateDTO) error {
	if err := s.v.Struct(in); err != nil {
		return customErrors.NewInvalidArgument(err.Error())
	}

	var patch model.UserPatch
	if v, ok := present(in.Email); ok {
		email := normalizeEmail(v)
		patch.Email = &email
	}
	if v, ok := present(in.EmployeeID); ok {
		employeeID, err := s.requireEmployee(ctx, v)
		if err != nil {
			return err
		}
		patch.EmployeeID = &employeeID
	}
	if v, ok := present(in.Password); ok {
		encoded, err := s.hasher.Hash(ctx, v)
		if err != nil {
			return err
		}
		patch.PasswordHash = &encoded
	}
	if patch.Empty() {
		return nil
	}

	err := s.users.UpdateUser(ctx, p.UserID, patch)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, customErrors.ErrNotFound):
		return customErrors.ErrAccountGone
	case errors.Is(err, customErrors.ErrAlreadyExists):
		return customErrors.ErrAlreadyExists
	default:
		return customErrors.WrapInternal(err, "UpdateUser")
	}
}

func (s *accountService) DeleteUser(ctx context.Context, p model.Principal) error {
	err := s.users.DeleteUser(ctx, p.UserID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return customErrors.ErrAccountGone
	case err != nil:
		return customErrors.WrapInternal(err, "DeleteUser")
	}

	if s.cache != nil {
		if err := s.cache.Forget(ctx, p.UserID); err != nil {
			s.log.Warn("existence cache eviction failed", zap.String("user_id", p.UserID.String()), zap.Error(err))
		}
	}
	s.log.Info("account deleted", zap.String("user_id", p.UserID.String()))
	return nil
}

func (s *accountService) requireEmployee(ctx context.Context, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, customErrors.NewInvalidArgument("employee_id must be a UUID")
	}
	ok, err := s.employees.EmployeeExists(ctx, id)
	if err != nil {
		return uuid.Nil, customErrors.WrapInternal(err, "EmployeeExists")
	}
	if !ok {
		return uuid.Nil, customErrors.ErrEmployeeNotFound
	}
	return id, nil
}

func (s *accountService) issue(userID uuid.UUID) (model.Session, error) {
	token, exp, err := s.codec.Issue(userID, s.now())
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{Token: token, ExpiresAt: exp, UserID: userID}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func present(v *string) (string, bool) {
	if v == nil || *v == "" {
		return "", false
	}
	return *v, true
}
