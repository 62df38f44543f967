// Package api wires together all HTTP routes for the game admin backend.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are unauthenticated so that load balancers
//     and orchestration probes can reach them without credentials.
//   - /api/v1/auth/login is unauthenticated but carries a strict rate limit,
//     since the shared admin password is the only credential.
//   - Everything else under /api/v1/ requires a valid session token.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brainsta/game-admin/internal/api/admin"
	"github.com/brainsta/game-admin/internal/catalog"
	"github.com/brainsta/game-admin/internal/config"
	"github.com/brainsta/game-admin/internal/filehost"
	"github.com/brainsta/game-admin/internal/middleware"
	"github.com/brainsta/game-admin/internal/pipeline"

	// Import catalog backends to register them
	_ "github.com/brainsta/game-admin/internal/catalog/firestore"
	_ "github.com/brainsta/game-admin/internal/catalog/postgres"

	// Import file host backends to register them
	_ "github.com/brainsta/game-admin/internal/filehost/github"
	_ "github.com/brainsta/game-admin/internal/filehost/local"
)

// BackgroundServices holds references to background goroutines that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible
// for calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the
// HTTP server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, store catalog.Store, host filehost.Host) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(store))

	// Readiness check endpoint (includes file host probe)
	router.GET("/ready", readinessHandler(store, host))

	// API version
	router.GET("/version", versionHandler())

	// Initialize the upload pipeline and handlers
	processor := pipeline.New(store, host, &cfg.Content)

	authHandlers := admin.NewAuthHandlers(cfg)
	gameHandlers := admin.NewGameHandlers(store, host, processor, cfg.Content.DefaultPageSize)
	categoryHandlers := admin.NewCategoryHandlers(store)
	statsHandlers := admin.NewStatsHandlers(store)

	// Initialize rate limiters
	loginRateLimiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	uploadRateLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoint (no auth required, but rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(loginRateLimiter))
		{
			authGroup.POST("/login", authHandlers.Login)
		}

		// Authenticated-only endpoints
		authenticatedGroup := apiV1.Group("")
		authenticatedGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		authenticatedGroup.Use(middleware.SessionAuthMiddleware())
		{
			authenticatedGroup.GET("/games", gameHandlers.List)
			authenticatedGroup.POST("/games",
				middleware.RateLimitMiddleware(uploadRateLimiter), // Stricter rate limit for uploads
				gameHandlers.Upload)
			authenticatedGroup.POST("/games/bulk",
				middleware.RateLimitMiddleware(uploadRateLimiter),
				gameHandlers.BulkUpload)
			authenticatedGroup.PATCH("/games/:id/publish", gameHandlers.Publish)
			authenticatedGroup.DELETE("/games/:id", gameHandlers.Delete)
			authenticatedGroup.POST("/games/bulk-delete", gameHandlers.BulkDelete)

			authenticatedGroup.GET("/categories", categoryHandlers.List)
			authenticatedGroup.POST("/categories", categoryHandlers.Create)

			authenticatedGroup.GET("/stats", statsHandlers.Get)
		}
	}

	bg := &BackgroundServices{
		rateLimiters: []*middleware.RateLimiter{loginRateLimiter, generalRateLimiter, uploadRateLimiter},
	}

	return router, bg
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(store catalog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check catalog store connection
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "catalog store connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the file host so that
// a readiness gate fails when uploads and deletes would error.
func readinessHandler(store catalog.Store, host filehost.Host) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check catalog store connection
		if err := store.Ping(c.Request.Context()); err != nil {
			checks["catalog"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "catalog store not ready",
			})
			return
		}
		checks["catalog"] = "healthy"

		// Check file host — list a known-absent sentinel prefix. This exercises
		// authentication and network connectivity without creating any state.
		if _, err := host.List(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["filehost"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "file host not ready",
			})
			return
		}
		checks["filehost"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
