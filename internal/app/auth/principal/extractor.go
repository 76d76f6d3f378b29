// Package principal resolves the authenticated user of an inbound request.
//
// Extraction is stateless: the outcome depends only on the bearer token, the
// current time and whether the token's subject still has an account.
package principal

import (
	"net/http"
	"strings"
	"time"

	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/jwt"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/model"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/repo"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const bearerScheme = "Bearer"

type Extractor struct {
	codec    jwt.TokenCodec
	users    repo.UserDirectory
	now      func() time.Time
	log      *zap.Logger
	outcomes *prometheus.CounterVec
}

type Option func(*Extractor)

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithOutcomes counts every extraction under a "reason" label.
func WithOutcomes(c *prometheus.CounterVec) Option {
	return func(e *Extractor) { e.outcomes = c }
}

func NewExtractor(codec jwt.TokenCodec, users repo.UserDirectory, opts ...Option) *Extractor {
	e := &Extractor{
		codec: codec,
		users: users,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the principal behind r's Authorization header. Every
// failure to authenticate wraps ErrUnauthorized; only a failing user lookup
// is reported as internal.
func (e *Extractor) Extract(r *http.Request) (model.Principal, error) {
	p, err := e.extract(r)
	e.record(err)
	return p, err
}

func (e *Extractor) extract(r *http.Request) (model.Principal, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return model.Principal{}, customErrors.ErrMissingCredentials
	}

	p, err := e.codec.Validate(token, e.now())
	if err != nil {
		return model.Principal{}, err
	}

	exists, err := e.users.UserExists(r.Context(), p.UserID)
	if err != nil {
		return model.Principal{}, customErrors.WrapInternal(err, "confirm principal")
	}
	if !exists {
		// Reported to the client like any other bad token. Logged on its own
		// so deleted accounts still using live tokens can be audited.
		e.log.Info("token for deleted account", zap.String("user_id", p.UserID.String()))
		return model.Principal{}, customErrors.ErrAccountGone
	}
	return p, nil
}

func (e *Extractor) record(err error) {
	reason := customErrors.Reason(err)
	if err != nil && customErrors.IsUnauthorized(err) {
		e.log.Debug("request not authenticated", zap.String("reason", reason))
	}
	if e.outcomes != nil {
		e.outcomes.WithLabelValues(reason).Inc()
	}
}

// BearerToken pulls the token out of an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
