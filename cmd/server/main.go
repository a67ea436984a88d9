// Package main is the entry point for the bug tracker server binary.
// It dispatches four subcommands (serve, migrate, seed-roles and version) via
// a switch on os.Args. The serve command runs auto-migration on startup so a
// freshly deployed container never needs a separate migration step.
//
// Prometheus metrics are served on a dedicated side port, never through the
// Gin router, so the scrape path stays off the public ingress.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bugtracker/bugtracker/internal/api"
	"github.com/bugtracker/bugtracker/internal/audit"
	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/cache"
	"github.com/bugtracker/bugtracker/internal/config"
	"github.com/bugtracker/bugtracker/internal/db"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
	"github.com/bugtracker/bugtracker/internal/middleware"
	"github.com/bugtracker/bugtracker/internal/safego"
	"github.com/bugtracker/bugtracker/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command == "version" {
		fmt.Printf("Bug Tracker v%s\n", api.Version)
		return nil
	}

	configPath := os.Getenv("CONFIG_PATH")

	switch command {
	case "serve":
		cfg, err := config.Watch(configPath, func(next *config.Config) {
			telemetry.SetLevel(next.Logging.Level)
		})
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runMigrations(cfg, os.Args[2])
	case "seed-roles":
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return seedRoles(cfg)
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, seed-roles, version", command)
	}
}

func serve(cfg *config.Config) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port, "name", cfg.Database.Name)

	telemetry.StartDBStatsCollector(database.DB)

	if err := db.RunMigrations(database.DB, "up"); err != nil {
		database.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := db.GetMigrationVersion(database.DB); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", version, "dirty", dirty)
	}

	tokens, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		database.Close()
		return fmt.Errorf("security configuration error: %w", err)
	}

	shippers, err := audit.NewMultiShipper(ctx, cfg.Audit.Shippers)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to configure audit shippers: %w", err)
	}
	var shipper audit.Shipper
	if shippers.Len() > 0 {
		shipper = shippers
	}
	store := repositories.NewCredentialStore(database)
	auditLogger := audit.NewLogger(store, shipper, cfg.Audit.AppendTimeout)

	deps := api.Dependencies{
		DB:     database,
		Tokens: tokens,
		Hasher: auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Audit:  auditLogger,
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			database.Close()
			return err
		}
		roleCache := cache.NewRoleCache(redisClient, store.Roles, cfg.Redis.RoleTTL)
		deps.Roles = roleCache
		deps.RoleCache = roleCache
		slog.Info("role cache enabled", "ttl", cfg.Redis.RoleTTL)
	}

	var memoryLimiter *middleware.MemoryLimiter
	if cfg.Security.RateLimiting.Enabled {
		limits := middleware.CredentialRateLimitConfig()
		if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
			limits.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
		}
		if cfg.Security.RateLimiting.Burst > 0 {
			limits.BurstSize = cfg.Security.RateLimiting.Burst
		}
		if redisClient != nil {
			deps.Limiter = middleware.NewRedisLimiter(redisClient, limits)
		} else {
			memoryLimiter = middleware.NewMemoryLimiter(limits)
			deps.Limiter = memoryLimiter
		}
		slog.Info("credential rate limiting enabled",
			"requests_per_minute", limits.RequestsPerMinute,
			"burst", limits.BurstSize,
			"distributed", redisClient != nil)
	}

	if cfg.Telemetry.Metrics.Enabled {
		startMetricsServer(cfg.Telemetry.Metrics.PrometheusPort)
	}

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      api.NewRouter(cfg, deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", server.Addr, "version", api.Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// In-flight requests finish, and append their edit records, before the
	// audit shippers and the stores behind them go away.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if memoryLimiter != nil {
		memoryLimiter.Stop()
	}
	if err := auditLogger.Close(); err != nil {
		slog.Error("failed to close audit shippers", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	if err := database.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("server stopped")
	return runErr
}

// startMetricsServer serves /metrics on its own port.
func startMetricsServer(port int) {
	addr := fmt.Sprintf(":%d", port)
	safego.Go("metrics server", func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		slog.Info("starting Prometheus metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	})
}

func runMigrations(cfg *config.Config, direction string) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	database, err := db.Connect(context.Background(), cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database.DB, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("migration completed", "version", version, "dirty", dirty)
	return nil
}

// seedRoles upserts the predefined roles, recording each as an edit with no actor.
func seedRoles(cfg *config.Config) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)
	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	return upsertPredefinedRoles(ctx, database)
}

func upsertPredefinedRoles(ctx context.Context, database *sqlx.DB) error {
	store := repositories.NewCredentialStore(database)
	auditLogger := audit.NewLogger(store, nil, audit.DefaultAppendTimeout)
	defer auditLogger.Close()

	for _, role := range models.PredefinedRoles() {
		saved, err := store.Roles.Upsert(ctx, &role)
		if err != nil {
			return fmt.Errorf("failed to seed role %q: %w", role.Name, err)
		}
		auditLogger.Record(ctx, models.EditOpUpdate, models.CollectionRole,
			map[string]string{"roleName": saved.Name},
			map[string]interface{}{"permissions": saved.Permissions}, nil)
		slog.Info("seeded role", "role", saved.Name, "permissions", len(saved.Permissions))
	}
	return nil
}
