package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Miraines/management-company/backoffice/internal/adapters/transport/http/dto"
	"github.com/Miraines/management-company/backoffice/internal/app/auth/hasher"
	"github.com/Miraines/management-company/backoffice/internal/app/auth/jwt"
	appsvc "github.com/Miraines/management-company/backoffice/internal/app/auth/service"
	authErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/model"
	"github.com/Miraines/management-company/backoffice/internal/infra/workerpool"
	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

type employeeStub struct {
	names map[uuid.UUID][2]string
}

func (e *employeeStub) EmployeeExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := e.names[id]
	return ok, nil
}

type userRepoStub struct {
	users     map[uuid.UUID]model.User
	employees *employeeStub
	updates   int
}

func (u *userRepoStub) CreateUser(_ context.Context, m model.User) (uuid.UUID, error) {
	for _, v := range u.users {
		if v.Email == m.Email {
			return uuid.Nil, authErrors.ErrAlreadyExists
		}
	}
	u.users[m.ID] = m
	return m.ID, nil
}

func (u *userRepoStub) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	for _, v := range u.users {
		if v.Email == email {
			return v, nil
		}
	}
	return model.User{}, authErrors.ErrNotFound
}

func (u *userRepoStub) GetProfile(_ context.Context, id uuid.UUID) (model.Profile, error) {
	v, ok := u.users[id]
	if !ok {
		return model.Profile{}, authErrors.ErrNotFound
	}
	name := u.employees.names[v.EmployeeID]
	return model.Profile{UserID: id, Email: v.Email, FirstName: name[0], LastName: name[1]}, nil
}

func (u *userRepoStub) UpdateUser(_ context.Context, id uuid.UUID, patch model.UserPatch) error {
	u.updates++
	v, ok := u.users[id]
	if !ok {
		return authErrors.ErrNotFound
	}
	if patch.Email != nil {
		v.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		v.PasswordHash = *patch.PasswordHash
	}
	if patch.EmployeeID != nil {
		v.EmployeeID = *patch.EmployeeID
	}
	u.users[id] = v
	return nil
}

func (u *userRepoStub) DeleteUser(_ context.Context, id uuid.UUID) error {
	if _, ok := u.users[id]; !ok {
		return authErrors.ErrNotFound
	}
	delete(u.users, id)
	return nil
}

type cacheStub struct{ forgotten []uuid.UUID }

func (c *cacheStub) Forget(_ context.Context, id uuid.UUID) error {
	c.forgotten = append(c.forgotten, id)
	return nil
}

/* ───────────────────────────── helpers ───────────────────────────── */

var testParams = &argon2id.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

const testTTL = 24 * time.Hour

type fixture struct {
	svc       appsvc.Service
	users     *userRepoStub
	employees *employeeStub
	hasher    *hasher.Argon2Hasher
	codec     *jwt.JwtCodecImpl
	cache     *cacheStub
	now       *time.Time
	employee  uuid.UUID
}

func newSvc(t *testing.T) *fixture {
	t.Helper()
	pool := workerpool.New(2, nil)
	t.Cleanup(pool.Close)

	codec, err := jwt.NewJWTCodec([]byte("0123456789abcdef0123456789abcdef"), testTTL)
	require.NoError(t, err)

	employee := uuid.New()
	emps := &employeeStub{names: map[uuid.UUID][2]string{employee: {"Anna", "Smirnova"}}}
	users := &userRepoStub{users: map[uuid.UUID]model.User{}, employees: emps}
	h := hasher.NewArgon2Hasher(testParams, pool, nil)
	cache := &cacheStub{}
	now := time.Unix(1_700_000_000, 0)

	svc := appsvc.New(users, emps, h, codec, validator.New(),
		appsvc.WithExistenceCache(cache),
		appsvc.WithClock(func() time.Time { return now }),
	)
	return &fixture{
		svc: svc, users: users, employees: emps, hasher: h, codec: codec,
		cache: cache, now: &now, employee: employee,
	}
}

func (f *fixture) register(t *testing.T, email, password string) model.Session {
	t.Helper()
	sess, err := f.svc.Register(context.Background(), dto.RegisterDTO{
		Email: email, Password: password, EmployeeID: f.employee.String(),
	})
	require.NoError(t, err)
	return sess
}

func strPtr(s string) *string { return &s }

/* ───────────────────────────── tests ───────────────────────────── */

func TestAccountService_RegisterLogin(t *testing.T) {
	f := newSvc(t)
	ctx := context.Background()

	sess := f.register(t, "e@example.com", "Secr3t!")
	require.NotEmpty(t, sess.Token)
	require.True(t, sess.ExpiresAt.Equal(f.now.Add(testTTL)))

	p, err := f.codec.Validate(sess.Token, *f.now)
	require.NoError(t, err)
	require.Equal(t, sess.UserID, p.UserID)

	stored := f.users.users[sess.UserID]
	require.NotEqual(t, "Secr3t!", stored.PasswordHash)

	again, err := f.svc.Login(ctx, dto.LoginDTO{Email: "e@example.com", Password: "Secr3t!"})
	require.NoError(t, err)
	require.Equal(t, sess.UserID, again.UserID)

	_, err = f.svc.Login(ctx, dto.LoginDTO{Email: "e@example.com", Password: "wrong"})
	require.ErrorIs(t, err, authErrors.ErrInvalidCredentials)
	require.True(t, authErrors.IsUnauthorized(err))
}

func TestAccountService_EmailIsNormalized(t *testing.T) {
	f := newSvc(t)

	f.register(t, "Mixed@Example.COM", "Secr3t!")

	_, err := f.svc.Login(context.Background(), dto.LoginDTO{Email: "mixed@example.com", Password: "Secr3t!"})
	require.NoError(t, err)
}

func TestAccountService_TokenExpires(t *testing.T) {
	f := newSvc(t)

	sess := f.register(t, "e@example.com", "Secr3t!")

	_, err := f.codec.Validate(sess.Token, f.now.Add(testTTL+time.Second))
	require.ErrorIs(t, err, authErrors.ErrTokenExpired)
}

func TestAccountService_RegisterInvalid(t *testing.T) {
	f := newSvc(t)

	_, err := f.svc.Register(context.Background(), dto.RegisterDTO{})
	require.True(t, authErrors.IsInvalidArgument(err))

	_, err = f.svc.Register(context.Background(), dto.RegisterDTO{
		Email: "e@example.com", Password: "12345", EmployeeID: f.employee.String(),
	})
	require.True(t, authErrors.IsInvalidArgument(err))
	require.Empty(t, f.users.users)
}

func TestAccountService_RegisterUnknownEmployee(t *testing.T) {
	f := newSvc(t)

	_, err := f.svc.Register(context.Background(), dto.RegisterDTO{
		Email: "e@example.com", Password: "Secr3t!", EmployeeID: uuid.NewString(),
	})
	require.ErrorIs(t, err, authErrors.ErrEmployeeNotFound)
	require.True(t, authErrors.IsNotFound(err))
}

func TestAccountService_RegisterDuplicate(t *testing.T) {
	f := newSvc(t)

	f.register(t, "e@example.com", "Secr3t!")
	_, err := f.svc.Register(context.Background(), dto.RegisterDTO{
		Email: "E@example.com", Password: "Other1!", EmployeeID: f.employee.String(),
	})
	require.True(t, authErrors.IsAlreadyExists(err))
}

func TestAccountService_LoginUserNotFound(t *testing.T) {
	f := newSvc(t)

	_, err := f.svc.Login(context.Background(), dto.LoginDTO{Email: "none@example.com", Password: "p"})
	require.ErrorIs(t, err, authErrors.ErrInvalidCredentials)
}

func TestAccountService_LoginRehashesOutdatedCredential(t *testing.T) {
	f := newSvc(t)
	ctx := context.Background()

	old := *testParams
	old.Iterations = 2
	legacy, err := argon2id.CreateHash("Secr3t!", &old)
	require.NoError(t, err)
	require.True(t, f.hasher.NeedsRehash(legacy))

	id := uuid.New()
	f.users.users[id] = model.User{ID: id, Email: "old@example.com", PasswordHash: legacy, EmployeeID: f.employee}

	_, err = f.svc.Login(ctx, dto.LoginDTO{Email: "old@example.com", Password: "Secr3t!"})
	require.NoError(t, err)

	upgraded := f.users.users[id].PasswordHash
	require.NotEqual(t, legacy, upgraded)
	require.False(t, f.hasher.NeedsRehash(upgraded))

	_, err = f.svc.Login(ctx, dto.LoginDTO{Email: "old@example.com", Password: "Secr3t!"})
	require.NoError(t, err)
}

func TestAccountService_CurrentUser(t *testing.T) {
	f := newSvc(t)
	sess := f.register(t, "e@example.com", "Secr3t!")

	*f.now = f.now.Add(time.Hour)
	profile, fresh, err := f.svc.CurrentUser(context.Background(), model.Principal{UserID: sess.UserID})
	require.NoError(t, err)
	require.Equal(t, "e@example.com", profile.Email)
	require.Equal(t, "Anna", profile.FirstName)
	require.Equal(t, "Smirnova", profile.LastName)
	require.True(t, fresh.ExpiresAt.After(sess.ExpiresAt))

	_, _, err = f.svc.CurrentUser(context.Background(), model.Principal{UserID: uuid.New()})
	require.ErrorIs(t, err, authErrors.ErrAccountGone)
	require.True(t, authErrors.IsUnauthorized(err))
}

func TestAccountService_UpdateUser(t *testing.T) {
	f := newSvc(t)
	ctx := context.Background()
	sess := f.register(t, "e@example.com", "Secr3t!")
	p := model.Principal{UserID: sess.UserID}

	require.NoError(t, f.svc.UpdateUser(ctx, p, dto.UpdateDTO{}))
	require.NoError(t, f.svc.UpdateUser(ctx, p, dto.UpdateDTO{Email: strPtr("")}))
	require.Zero(t, f.users.updates)

	require.NoError(t, f.svc.UpdateUser(ctx, p, dto.UpdateDTO{Password: strPtr("N3wPass!")}))

	_, err := f.svc.Login(ctx, dto.LoginDTO{Email: "e@example.com", Password: "Secr3t!"})
	require.ErrorIs(t, err, authErrors.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, dto.LoginDTO{Email: "e@example.com", Password: "N3wPass!"})
	require.NoError(t, err)

	other := uuid.New()
	f.employees.names[other] = [2]string{"Oleg", "Ivanov"}
	require.NoError(t, f.svc.UpdateUser(ctx, p, dto.UpdateDTO{EmployeeID: strPtr(other.String())}))
	require.Equal(t, other, f.users.users[sess.UserID].EmployeeID)
}

func TestAccountService_UpdateUserErrors(t *testing.T) {
	f := newSvc(t)
	ctx := context.Background()
	sess := f.register(t, "e@example.com", "Secr3t!")
	p := model.Principal{UserID: sess.UserID}

	err := f.svc.UpdateUser(ctx, p, dto.UpdateDTO{Email: strPtr("not-an-email")})
	require.True(t, authErrors.IsInvalidArgument(err))

	err = f.svc.UpdateUser(ctx, p, dto.UpdateDTO{EmployeeID: strPtr(uuid.NewString())})
	require.ErrorIs(t, err, authErrors.ErrEmployeeNotFound)

	err = f.svc.UpdateUser(ctx, model.Principal{UserID: uuid.New()}, dto.UpdateDTO{Email: strPtr("x@example.com")})
	require.ErrorIs(t, err, authErrors.ErrAccountGone)
}

func TestAccountService_DeleteUser(t *testing.T) {
	f := newSvc(t)
	ctx := context.Background()
	sess := f.register(t, "e@example.com", "Secr3t!")
	p := model.Principal{UserID: sess.UserID}

	require.NoError(t, f.svc.DeleteUser(ctx, p))
	require.Equal(t, []uuid.UUID{sess.UserID}, f.cache.forgotten)

	_, _, err := f.svc.CurrentUser(ctx, p)
	require.ErrorIs(t, err, authErrors.ErrAccountGone)

	err = f.svc.DeleteUser(ctx, p)
	require.True(t, errors.Is(err, authErrors.ErrUnauthorized))
}

type countingHasher struct {
	*hasher.Argon2Hasher
	hashes   int
	verifies int
}

func (c *countingHasher) Hash(ctx context.Context, password string) (string, error) {
	c.hashes++
	return c.Argon2Hasher.Hash(ctx, password)
}

func (c *countingHasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	c.verifies++
	return c.Argon2Hasher.Verify(ctx, password, encoded)
}

func TestAccountService_LoginUnknownEmailCostsOneVerify(t *testing.T) {
	f := newSvc(t)
	counting := &countingHasher{Argon2Hasher: f.hasher}
	svc := appsvc.New(f.users, f.employees, counting, f.codec, validator.New())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, dto.LoginDTO{Email: "ghost@example.com", Password: "Secr3t!"})
		require.ErrorIs(t, err, authErrors.ErrInvalidCredentials)
	}
	require.Equal(t, 2, counting.verifies)
	require.Equal(t, 1, counting.hashes)
}
