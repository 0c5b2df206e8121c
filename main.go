package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/MGallo-Code/obol/internal/config"
	"github.com/MGallo-Code/obol/internal/install"
	"github.com/MGallo-Code/obol/internal/shopline"
	"github.com/MGallo-Code/obol/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Embeds the audit trail migrations into the binary

//go:embed migrations/*.sql
var migrationsDir embed.FS

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Fallback logger; serve installs the JSON handler once config is loaded.
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// setupLogging installs the JSON slog handler at the configured level.
func setupLogging(level slog.Level) {
	// Include source location in log entries at debug level only.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})))
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup (ps, rdb) always runs.
// Shuts down when ctx is cancelled (signal handling is the caller's concern).
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
// A nil ex builds the platform client from cfg; tests pass one aimed at a stub platform.
func run(ctx context.Context, cfg *config.Config, ready chan<- string, ex install.Exchanger) error {
	if ex == nil {
		ex = shopline.NewClient(cfg.AppKey, cfg.AppSecret, cfg.PlatformDomain, cfg.ExchangeTimeout)
	}

	m, err := install.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	h := install.InstallHandler{
		Cfg: cfg,
		EX:  ex,
		EV:  store.NopRecorder{},
		TS:  install.LogSink{},
		M:   m,
	}

	// Worker goroutines stop when run() returns.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	// Audit trail is optional. Without Postgres, events are dropped.
	if cfg.DatabaseURL != "" {
		ps, err := openAuditStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer ps.Close()
		h.EV, h.DB = ps, ps

		if cfg.RedisURL != "" {
			// All queue traffic shares one connection pool.
			rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("failed to set up redis client: %w", err)
			}
			defer rdb.Close()

			q := store.NewQueuedRecorder(ps, rdb, cfg.EventQueueMax)
			go q.StartWorker(workerCtx)
			h.EV, h.Queue = q, q
		}
	} else {
		h.DB = store.NopRecorder{}
		if cfg.RedisURL != "" {
			slog.Warn("REDIS_URL ignored: the event queue needs DATABASE_URL")
		}
	}

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:           buildRouter(&h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine; run() continues past this.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("obol listening",
			"addr", ln.Addr().String(),
			"callback_url", cfg.CallbackURL,
			"platform_domain", cfg.PlatformDomain,
			"scopes", cfg.Scopes,
		)
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	// Stop accepting, let in-flight exchanges finish, give up after 30s.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// openAuditStore connects to Postgres and applies pending migrations.
func openAuditStore(ctx context.Context, databaseURL string) (*store.PostgresStore, error) {
	ps, err := store.NewPostgresStore(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to set up postgres store: %w", err)
	}
	migrationsFS, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	applied, err := ps.Migrate(ctx, migrationsFS)
	if err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		slog.Info("migrations applied", "versions", applied)
	}
	return ps, nil
}

// buildRouter wires all routes and middleware.
// Called from run() and from smoke tests.
func buildRouter(h *install.InstallHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(h.M.Instrument)

	// Platform-signed entry points
	r.With(h.VerifySignature(store.ActionInstallRejected)).Get("/", h.Install)
	r.With(h.VerifySignature(store.ActionCallbackRejected)).Get("/callback", h.Callback)

	r.Get("/test", h.TestPage)
	r.Get("/health", h.CheckHealth)
	r.Method(http.MethodGet, "/metrics", h.M.Handler())

	return r
}
