package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// NewHTTPRateLimitPerIP limits requests per client IP. Idle clients are
// evicted after ttl and at most cacheSize clients are tracked.
func NewHTTPRateLimitPerIP(
	limit float64, burst, cacheSize int,
	ttl time.Duration,
) gin.HandlerFunc {
	visitors := expirable.NewLRU[string, *rate.Limiter](cacheSize, nil, ttl)
	var mu sync.Mutex

	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}

		mu.Lock()
		l, ok := visitors.Get(host)
		if !ok {
			l = rate.NewLimiter(rate.Limit(limit), burst)
		}
		// re-adding extends the idle deadline
		visitors.Add(host, l)
		mu.Unlock()

		if !l.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
