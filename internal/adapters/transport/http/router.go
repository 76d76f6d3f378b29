package http

import (
	"net/http"
	"time"

	"github.com/Miraines/management-company/backoffice/internal/adapters/transport/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// Checks back the /ready endpoint.
	Checks map[string]Check
}

func NewRouter(cfg RouterConfig, h *Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	if c, ok := corsConfig(cfg.AllowedOrigins); ok {
		router.Use(cors.New(c))
	}
	if cfg.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	router.GET("/health", health)
	router.GET("/ready", readiness(cfg.Checks, log))
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := router.Group("/api")

	public := api.Group("/users")
	if cfg.RateLimitRPS > 0 {
		public.Use(middleware.NewHTTPRateLimitPerIP(cfg.RateLimitRPS, cfg.RateLimitBurst, 10_000, time.Hour))
	}
	public.POST("", h.Register)
	public.POST("/login", h.Login)

	me := api.Group("/user/me")
	me.Use(h.RequireAuth())
	me.GET("", h.Me)
	me.PUT("", h.UpdateMe)
	me.DELETE("", h.DeleteMe)

	return router
}

func corsConfig(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"Authorization",
			"X-Requested-With",
		},
		ExposeHeaders: []string{"Content-Length", "WWW-Authenticate", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c, true
		}
	}
	c.AllowOrigins = origins
	return c, true
}
