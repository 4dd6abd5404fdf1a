package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"feed-proxy/internal/config"
	"feed-proxy/internal/middleware"
	"feed-proxy/internal/relay"
)

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	Relay     *relay.Relay
	RateLimit config.RateLimitConfig
	Swagger   bool
}

// NewRouter builds a gin engine with middleware and routes
func NewRouter(cfg *RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	SetupMiddleware(router, cfg)
	SetupRoutes(router, cfg)
	return router
}

// SetupRoutes configures the relay routes
func SetupRoutes(router *gin.Engine, cfg *RouterConfig) {
	relayHandler := NewRelayHandler(cfg.Relay)

	router.GET("/", relayHandler.Relay)
	router.GET("/health", relayHandler.Health)

	if cfg.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Any other GET path relays too; other methods are not served
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.AbortWithStatus(http.StatusNotImplemented)
			return
		}
		relayHandler.Relay(c)
	})
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine, cfg *RouterConfig) {
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger())

	if cfg.RateLimit.RequestsPerSecond > 0 {
		router.Use(middleware.RateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	router.Use(middleware.ErrorHandler())
}
