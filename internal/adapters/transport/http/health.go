package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}

// readiness runs every check and answers 503 when any of them fails.
func readiness(checks map[string]Check, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				log.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
				results[name] = "down"
				code = http.StatusServiceUnavailable
				continue
			}
			results[name] = "up"
		}

		status := "ok"
		if code != http.StatusOK {
			status = "unavailable"
		}
		c.JSON(code, gin.H{"status": status, "checks": results, "time": time.Now().Unix()})
	}
}
