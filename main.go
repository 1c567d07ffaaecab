package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mattn/go-isatty"

	"github.com/taskmasterpro/taskmaster-api/internal/config"
	"github.com/taskmasterpro/taskmaster-api/internal/middleware"
	"github.com/taskmasterpro/taskmaster-api/internal/settings"
	"github.com/taskmasterpro/taskmaster-api/internal/tasks"
	"github.com/taskmasterpro/taskmaster-api/internal/telemetry"
	"github.com/taskmasterpro/taskmaster-api/internal/transfer"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.TraceExporter, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("tracing_setup_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	repo, closeRepo, err := openRepo(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = closeRepo() }()

	prefs, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		logger.Error("settings_open_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	r := newRouter(repo, prefs, cfg, logger)

	logger.Info("server_listen", slog.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logger.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// openRepo picks the store per config. The sqlite open is retried with
// exponential backoff so a slow volume mount at boot does not kill the
// process.
func openRepo(ctx context.Context, cfg config.Config, logger *slog.Logger) (tasks.Repository, func() error, error) {
	if cfg.Ephemeral {
		logger.Warn("store_ephemeral", slog.String("note", "tasks will not survive a restart"))
		return tasks.NewInMemoryRepo(), func() error { return nil }, nil
	}

	dsn, err := tasks.SQLiteFileDSN(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	repo, err := backoff.Retry(ctx, func() (*tasks.SQLiteRepo, error) {
		r, err := tasks.NewSQLiteRepo(dsn)
		if err != nil {
			return nil, err
		}
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		if err := r.ApplyMigrations(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		return nil, nil, err
	}

	logger.Info("store_open", slog.String("path", cfg.DBPath))
	return repo, repo.Close, nil
}

// newRouter wires the health endpoint, task routes, and middleware stack
func newRouter(repo tasks.Repository, prefs *settings.Store, cfg config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, spans, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(15 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.RateLimitMiddleware(
		middleware.NewLimiter(cfg.RateRPS, cfg.RateBurst),
		"/health", "/metrics",
	))
	r.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Mode:        middleware.ParseAuthMode(cfg.AuthMode),
		APIKey:      cfg.APIKey,
		BearerToken: cfg.BearerToken,
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	// Our structured request logger (includes req_id).
	r.Use(middleware.RequestLogger(logger))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	tasks.RegisterRoutes(r, repo, settingsDefaults{prefs})
	transfer.RegisterRoutes(r, repo)
	settings.RegisterRoutes(r, prefs)

	return r
}

// settingsDefaults feeds the persisted preferences into task creation.
type settingsDefaults struct {
	prefs *settings.Store
}

func (d settingsDefaults) DefaultTaskPriority() tasks.Priority {
	p, err := tasks.ParsePriority(d.prefs.GetString("tasks.default_priority", ""))
	if err != nil {
		return tasks.DefaultPriority
	}
	return p
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: l}
	// Human-readable output on a terminal, JSON everywhere else.
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
