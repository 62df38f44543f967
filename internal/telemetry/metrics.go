// Package telemetry provides application-level observability for the game
// admin backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<GA_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text
// exposition format and is intended to be scraped by a Prometheus server.
// It is NOT served by the Gin router, so it never competes with admin traffic.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/games/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// operator-supplied path segments such as game identifiers.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the
// HTTP server starts listening, or use an exported var directly:
//
//	telemetry.GameUploadsTotal.WithLabelValues("replaced").Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template, NOT the raw URL.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and
// exponential-ish buckets from 5 ms to 30 s.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Pipeline metrics — recorded by the upload pipeline and the delete handlers.
//
// GameUploadsTotal is a CounterVec with label {outcome}: "created", "replaced"
// or "failed", incremented once per processed bundle.
//
// Example PromQL queries:
//   - Upload failure rate:  rate(game_uploads_total{outcome="failed"}[1h])
//   - Replacement share:    sum(rate(game_uploads_total{outcome="replaced"}[24h]))
//
// FileUploadsTotal is a CounterVec with label {result}: "success" or "failed",
// incremented once per file pushed to the file host.  A bundle with 40 assets
// moves this counter 40 times, so it tracks host throughput rather than
// operator activity.
//
// GameDeletesTotal is a CounterVec with label {outcome}: "deleted" or
// "failed", covering both single and bulk deletes.
var (
	GameUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_uploads_total",
			Help: "Total number of game bundle uploads processed, by outcome.",
		},
		[]string{"outcome"},
	)

	FileUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_uploads_total",
			Help: "Total number of individual files pushed to the file host, by result.",
		},
		[]string{"result"},
	)

	GameDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_deletes_total",
			Help: "Total number of game delete operations, by outcome.",
		},
		[]string{"outcome"},
	)
)

// LoginAttemptsTotal is a CounterVec with label {result}: "success" or
// "failure".  An alert on a burst of failures is a cheap brute-force signal
// for a panel protected by a single shared password.
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of admin login attempts, by result.",
	},
	[]string{"result"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections
// currently held by the sql.DB connection pool when the postgres catalog
// backend is active.  It is sampled every 30 seconds by StartDBStatsCollector
// rather than per-request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates DBOpenConnections.
// The goroutine exits when the database becomes unreachable, which happens
// automatically when the application shuts down and defers db.Close().
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
