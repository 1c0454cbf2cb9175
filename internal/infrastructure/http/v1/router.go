// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recordhub/internal/infrastructure/http/v1/handlers"
	"recordhub/internal/infrastructure/http/v1/middleware"
	"recordhub/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService and StudentService are nil in search-only mode (memory backend without a database).
	AuthService    handlers.AuthService
	StudentService handlers.StudentService
	SearchService  handlers.SearchService
	// UploadService is optional; upload routes are not registered when nil.
	UploadService handlers.UploadService

	// IdempotencyStore enables X-Idempotency-Key on student creation when set.
	IdempotencyStore middleware.IdempotencyStore

	// AuthLimiter throttles login and refresh per client IP when set.
	AuthLimiter *middleware.RateLimiter

	HealthChecks   map[string]handlers.Pinger
	Cookies        handlers.CookieConfig
	AllowedOrigins []string
	Debug          bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.NewHealthHandler(cfg.HealthChecks).RegisterRoutes(router.Group("/health"))

	base := handlers.NewBaseHandler()
	v1 := router.Group("/api/v1")
	{
		authMW := middleware.Auth(cfg.JWTValidator)

		if cfg.AuthService != nil {
			public := v1.Group("/auth")
			if cfg.AuthLimiter != nil {
				public.Use(middleware.RateLimit(cfg.AuthLimiter))
			}
			protectedAuth := v1.Group("/auth", authMW)
			handlers.NewAuthHandler(base, cfg.AuthService, cfg.Cookies).RegisterRoutes(public, protectedAuth)
		}

		protected := v1.Group("", authMW)

		if cfg.StudentService != nil {
			var create []gin.HandlerFunc
			if cfg.IdempotencyStore != nil {
				create = append(create, middleware.Idempotency(cfg.IdempotencyStore))
			}
			handlers.NewStudentHandler(base, cfg.StudentService).RegisterRoutes(protected.Group("/students"), create...)
		}
		handlers.NewSearchHandler(base, cfg.SearchService).RegisterRoutes(protected.Group("/search"))

		if cfg.UploadService != nil {
			handlers.NewUploadHandler(base, cfg.UploadService).RegisterRoutes(protected.Group("/uploads"))
		}
	}

	return router
}
