package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/coldfire85/neurolog/internal/server/config"
)

// SetupRouter creates and configures the echo router with all routes and
// middleware. The caller owns uploadLimiter and stops it on shutdown.
func SetupRouter(handler *Handler, cfg *config.Config, uploadLimiter *RateLimiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(RequestLogger())

	requireAuth := RequireAuth(cfg.JWTSecret)

	// Health
	e.GET("/health", handler.HandleHealth)

	// Auth
	e.POST("/api/auth/register", handler.HandleRegister)
	e.POST("/api/auth/login", handler.HandleLogin)

	// Media (auth required; upload is rate-limited)
	e.POST("/api/media", handler.HandleMediaUpload, requireAuth, uploadLimiter.Middleware())
	e.GET("/api/media", handler.HandleMediaList, requireAuth)
	e.POST("/api/media/:id/attach", handler.HandleMediaAttach, requireAuth)
	e.DELETE("/api/media/:id", handler.HandleMediaDelete, requireAuth)
	e.GET("/uploads/:userID/:category/:name", handler.HandleMediaServe, requireAuth)

	// Procedures
	e.POST("/api/procedures", handler.HandleProcedureCreate, requireAuth)
	e.GET("/api/procedures", handler.HandleProcedureList, requireAuth)
	e.GET("/api/procedures/:id", handler.HandleProcedureGet, requireAuth)
	e.PUT("/api/procedures/:id", handler.HandleProcedureUpdate, requireAuth)
	e.DELETE("/api/procedures/:id", handler.HandleProcedureDelete, requireAuth)
	e.POST("/api/procedures/from-template/:id", handler.HandleProcedureFromTemplate, requireAuth)

	// Templates
	e.POST("/api/templates", handler.HandleTemplateCreate, requireAuth)
	e.GET("/api/templates", handler.HandleTemplateList, requireAuth)
	e.PUT("/api/templates/:id", handler.HandleTemplateUpdate, requireAuth)
	e.DELETE("/api/templates/:id", handler.HandleTemplateDelete, requireAuth)

	// Stats & export
	e.GET("/api/stats", handler.HandleStats, requireAuth)
	e.GET("/api/export/pdf", handler.HandleExportPDF, requireAuth)

	return e
}
