// Package main is the entry point for the game admin server binary. It
// dispatches two subcommands, serve and version, via a simple switch on
// os.Args so the binary's full CLI surface is readable in one place without
// requiring a cobra dependency. The serve command runs catalog schema
// migration on startup (PostgreSQL backend only) so freshly deployed
// containers never need a separate migration step.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brainsta/game-admin/internal/api"
	"github.com/brainsta/game-admin/internal/auth"
	"github.com/brainsta/game-admin/internal/catalog"
	"github.com/brainsta/game-admin/internal/catalog/postgres"
	"github.com/brainsta/game-admin/internal/config"
	"github.com/brainsta/game-admin/internal/filehost"
	"github.com/brainsta/game-admin/internal/safego"
	"github.com/brainsta/game-admin/internal/telemetry"
)

const (
	version = "0.1.0"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	// Parse command from args
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Execute command
	switch command {
	case "serve":
		return serve(cfg)
	case "version":
		fmt.Printf("Game Admin v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Initialise structured logger as early as possible so all subsequent log
	// output uses the configured format (json / text) and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Validate session secret configuration (fails in production if not set)
	if err := auth.ValidateSessionSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}
	slog.Info("session secret validated")

	ctx := context.Background()

	// Connect the catalog store. The PostgreSQL backend applies pending schema
	// migrations before returning; Firestore needs no schema.
	store, err := catalog.NewStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog store: %w", err)
	}
	defer store.Close()
	slog.Info("catalog store ready", "backend", cfg.Catalog.Backend)

	// Begin exporting connection pool statistics when the catalog backend has
	// a pool to report on.
	if pg, ok := store.(*postgres.PostgresStore); ok {
		telemetry.StartDBStatsCollector(pg.DB())
	}

	// Connect the file host.
	host, err := filehost.NewHost(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize file host: %w", err)
	}
	slog.Info("file host ready", "backend", cfg.FileHost.Backend)

	// Start Prometheus metrics endpoint on a dedicated port so it is not
	// reachable through the public API ingress path.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		safego.Go(func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	// Create router
	router, bgServices := api.NewRouter(cfg, store, host)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("starting server",
			"addr", cfg.Server.GetAddress(),
			"base_url", cfg.Server.BaseURL,
			"catalog_backend", cfg.Catalog.Backend,
			"filehost_backend", cfg.FileHost.Backend,
		)

		var err error
		if cfg.Security.TLS.Enabled {
			slog.Info("TLS enabled", "cert", cfg.Security.TLS.CertFile, "key", cfg.Security.TLS.KeyFile)
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Stop rate limiter goroutines
	bgServices.Shutdown()

	slog.Info("server stopped gracefully")
	return nil
}
