package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/periospot/content-cloud/internal/config"
	"github.com/periospot/content-cloud/internal/handler"
	"github.com/periospot/content-cloud/internal/middleware"
)

// SetupRoutes configures all API routes. The redirect and health endpoints
// are public; everything under /api requires a bearer token.
func SetupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	healthHandler *handler.HealthHandler,
	importHandler *handler.ImportHandler,
	auditHandler *handler.AuditHandler,
	linksHandler *handler.LinksHandler,
) {
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	router.Use(middleware.RateLimiter(cfg.RateLimit.MaxRequestsPerMinute, window))

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/l/:code", linksHandler.Redirect)

	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.Auth(cfg.Service.JWTSecret))

	imports := admin.Group("/import")
	imports.GET("/preview", importHandler.Preview)
	imports.POST("/batch", importHandler.Batch)
	imports.POST("/run", importHandler.Run)
	imports.POST("/resume", importHandler.Run)
	imports.POST("/pause", importHandler.Pause)
	imports.GET("/status", importHandler.Status)
	imports.GET("/runs", importHandler.ListRuns)
	imports.GET("/runs/:id", importHandler.GetRun)

	admin.GET("/audit", auditHandler.Recent)

	links := admin.Group("/links")
	links.POST("", linksHandler.Create)
	links.POST("/asin", linksHandler.CreateFromASIN)
	links.POST("/batch", linksHandler.Batch)
	links.GET("", linksHandler.List)
	links.DELETE("/:code", linksHandler.Delete)
}
