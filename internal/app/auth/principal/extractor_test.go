package principal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Miraines/management-company/backoffice/internal/app/auth/jwt"
	"github.com/Miraines/management-company/backoffice/internal/app/auth/principal"
	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directoryStub struct {
	users map[uuid.UUID]bool
	err   error
	calls int
}

func (d *directoryStub) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	d.calls++
	return d.users[id], d.err
}

var t0 = time.Unix(1_700_000_000, 0)

func setup(t *testing.T) (*jwt.JwtCodecImpl, *directoryStub, *time.Time, *principal.Extractor) {
	t.Helper()
	codec, err := jwt.NewJWTCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	dir := &directoryStub{users: map[uuid.UUID]bool{}}
	now := t0
	ex := principal.NewExtractor(codec, dir, principal.WithClock(func() time.Time { return now }))
	return codec, dir, &now, ex
}

func request(auth string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	if auth != "" {
		r.Header.Set("Authorization", auth)
	}
	return r
}

func TestExtract_Success(t *testing.T) {
	codec, dir, _, ex := setup(t)
	uid := uuid.New()
	dir.users[uid] = true
	token, _, err := codec.Issue(uid, t0)
	require.NoError(t, err)

	p, err := ex.Extract(request("Bearer " + token))
	require.NoError(t, err)
	assert.Equal(t, uid, p.UserID)
	assert.Equal(t, 1, dir.calls)

	p, err = ex.Extract(request("bearer   " + token))
	require.NoError(t, err)
	assert.Equal(t, uid, p.UserID)
}

func TestExtract_MissingCredentials(t *testing.T) {
	_, dir, _, ex := setup(t)
	for _, h := range []string{"", "Bearer", "Bearer    ", "Token abc", "Basic dXNlcjpwYXNz", "abc"} {
		_, err := ex.Extract(request(h))
		require.ErrorIs(t, err, customErrors.ErrMissingCredentials, h)
	}
	assert.Zero(t, dir.calls)
}

func TestExtract_InvalidTokens(t *testing.T) {
	codec, dir, now, ex := setup(t)
	uid := uuid.New()
	dir.users[uid] = true
	token, _, err := codec.Issue(uid, t0)
	require.NoError(t, err)

	_, err = ex.Extract(request("Bearer not.a.token"))
	require.True(t, customErrors.IsUnauthorized(err))

	_, err = ex.Extract(request("Bearer " + token + "x"))
	require.True(t, customErrors.IsUnauthorized(err))

	*now = t0.Add(time.Hour + time.Second)
	_, err = ex.Extract(request("Bearer " + token))
	require.ErrorIs(t, err, customErrors.ErrTokenExpired)
	assert.Zero(t, dir.calls)
}

func TestExtract_AccountGone(t *testing.T) {
	codec, _, _, ex := setup(t)
	token, _, err := codec.Issue(uuid.New(), t0)
	require.NoError(t, err)

	_, err = ex.Extract(request("Bearer " + token))
	require.ErrorIs(t, err, customErrors.ErrAccountGone)
	require.Equal(t, customErrors.KindUnauthorized, customErrors.KindOf(err))
	require.False(t, customErrors.IsNotFound(err))
}

func TestExtract_DirectoryFailureIsInternal(t *testing.T) {
	codec, dir, _, ex := setup(t)
	dir.err = errors.New("db down")
	token, _, err := codec.Issue(uuid.New(), t0)
	require.NoError(t, err)

	_, err = ex.Extract(request("Bearer " + token))
	require.True(t, customErrors.IsInternal(err))
	require.False(t, customErrors.IsUnauthorized(err))
}

func TestExtract_CountsOutcomes(t *testing.T) {
	codec, err := jwt.NewJWTCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	uid := uuid.New()
	dir := &directoryStub{users: map[uuid.UUID]bool{uid: true}}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "outcomes"}, []string{"reason"})
	ex := principal.NewExtractor(codec, dir,
		principal.WithClock(func() time.Time { return t0 }),
		principal.WithOutcomes(counter))

	token, _, err := codec.Issue(uid, t0)
	require.NoError(t, err)
	_, _ = ex.Extract(request("Bearer " + token))
	_, _ = ex.Extract(request(""))
	_, _ = ex.Extract(request(""))

	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues("missing_credentials")))
}

func TestBearerToken(t *testing.T) {
	tok, ok := principal.BearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", tok)

	_, ok = principal.BearerToken("Token abc")
	assert.False(t, ok)
}
