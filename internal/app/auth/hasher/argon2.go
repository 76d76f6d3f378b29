package hasher

import (
	"context"
	"errors"
	"strings"
	"time"

	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/Miraines/management-company/backoffice/internal/infra/workerpool"
	"github.com/alexedwards/argon2id"
	"github.com/prometheus/client_golang/prometheus"
)

// Argon2Hasher derives argon2id credentials in PHC format:
//
//	$argon2id$v=19$m=65536,t=2,p=4$<salt>$<key>
//
// Every derivation runs on the worker pool, never on the caller's goroutine.
type Argon2Hasher struct {
	params   argon2id.Params
	pool     *workerpool.Pool
	duration *prometheus.HistogramVec
}

// NewArgon2Hasher copies params, so later changes to the caller's value have
// no effect. duration may be nil.
func NewArgon2Hasher(params *argon2id.Params, pool *workerpool.Pool, duration *prometheus.HistogramVec) *Argon2Hasher {
	return &Argon2Hasher{params: *params, pool: pool, duration: duration}
}

func (h *Argon2Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", customErrors.NewInvalidArgument("password cannot be empty")
	}

	encoded, err := workerpool.Run(ctx, h.pool, func() (string, error) {
		defer h.observe("hash", time.Now())
		return argon2id.CreateHash(password, &h.params)
	})
	if err != nil {
		if isContextErr(err) {
			return "", err
		}
		return "", customErrors.WrapInternal(err, "hash password")
	}
	return encoded, nil
}

var errUnsupportedAlgorithm = errors.New("unsupported credential algorithm")

const phcPrefix = "$argon2id$"

func (h *Argon2Hasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	if !strings.HasPrefix(encoded, phcPrefix) {
		return false, customErrors.WrapInternal(errUnsupportedAlgorithm, "verify password")
	}

	match, err := workerpool.Run(ctx, h.pool, func() (bool, error) {
		defer h.observe("verify", time.Now())
		return argon2id.ComparePasswordAndHash(password, encoded)
	})
	if err != nil {
		if isContextErr(err) {
			return false, err
		}
		return false, customErrors.WrapInternal(err, "verify password")
	}
	return match, nil
}

// isContextErr reports a caller that stopped waiting. That is not a fault of
// the hasher, so the error is passed through as is.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (h *Argon2Hasher) NeedsRehash(encoded string) bool {
	params, _, _, err := argon2id.DecodeHash(encoded)
	if err != nil {
		return true
	}
	return params.Memory != h.params.Memory ||
		params.Iterations != h.params.Iterations ||
		params.Parallelism != h.params.Parallelism ||
		params.SaltLength < h.params.SaltLength ||
		params.KeyLength != h.params.KeyLength
}

func (h *Argon2Hasher) observe(op string, start time.Time) {
	if h.duration != nil {
		h.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
