// Package telemetry provides application-level observability for the bug tracker.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<BT_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Token verification outcomes
//   - Access guard denials
//   - Edit log appends and shipper failures
//   - Role cache lookups and credential endpoint throttling
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/bug/:bugId) rather
// than the raw request URL so bug and user ids never become label values.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Error rate (%):  sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 per route:   histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
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

// Token verification outcomes observed by the auth-context middleware.
// result is one of: valid, expired, invalid_signature, malformed.
//
// A sudden rise in invalid_signature usually means a secret rotation went out
// to only some replicas.
var AuthTokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_token_verifications_total",
		Help: "Total number of session token verifications, by result.",
	},
	[]string{"result"},
)

// AccessDenialsTotal counts requests rejected by an access guard.
// guard is one of: authenticated, role, permission.
// reason is one of: unauthenticated, forbidden, missing_permission.
var AccessDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_denials_total",
		Help: "Total number of requests denied by an access guard, by guard and reason.",
	},
	[]string{"guard", "reason"},
)

// Edit log metrics.
//
// AuditRecordsTotal counts append attempts with result ok or error. An
// alert on increase(audit_records_total{result="error"}[5m]) > 0 catches edit
// log gaps, since failed appends never fail the originating request.
//
// AuditShipFailuresTotal counts records an external shipper failed to deliver.
var (
	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_total",
			Help: "Total number of edit record appends, by operation, collection, and result.",
		},
		[]string{"op", "collection", "result"},
	)

	AuditShipFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_ship_failures_total",
			Help: "Total number of edit records an external shipper failed to deliver, by shipper.",
		},
		[]string{"shipper"},
	)
)

// RoleCacheLookupsTotal counts role cache lookups with result hit, miss, or error.
var RoleCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "role_cache_lookups_total",
		Help: "Total number of role cache lookups, by result.",
	},
	[]string{"result"},
)

// RateLimitedRequestsTotal counts credential endpoint requests rejected by the rate limiter.
var RateLimitedRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Total number of requests rejected by the rate limiter, by route template.",
	},
	[]string{"path"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool. It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits once the database becomes unreachable, which happens
// when main.go closes the pool on shutdown.
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
