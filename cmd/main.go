package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/http/api"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/http/site"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/http/swagger"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/repository"
	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/config"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Re-initialize with the configured format now that it is known.
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server exited with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run opens the store, starts the engine and serves HTTP until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := repository.NewSQLiteStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "close store", logger.Error(err))
		}
	}()

	engine := newEngine(cfg, store, log)
	if err := engine.Start(ctx); err != nil {
		// An empty or unreadable store is not fatal: /healthz reports
		// loading until POST /reload succeeds.
		log.Warn(ctx, "initial load failed", logger.Error(err))
	}
	defer engine.Stop()

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg, engine),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("db", cfg.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}

func newEngine(cfg *config.Config, src repository.Source, log logger.Logger) *service.Engine {
	return service.New(
		service.WithSource(src),
		service.WithLogger(log.Named("engine")),
		service.WithCacheSize(cfg.CacheSize),
		service.WithWeights(cfg.Weights()),
		service.WithParallelThreshold(cfg.ParallelThreshold),
		service.WithScale(cfg.WARScale),
	)
}

// newRouter mounts the API, the OpenAPI docs and the landing page.
func newRouter(ctx context.Context, cfg *config.Config, engine *service.Engine) http.Handler {
	r := chi.NewRouter()
	api.NewServer(engine, api.WithMaxLimit(cfg.MaxLeaderboardLimit)).Register(ctx, r)
	swagger.Register(ctx, r)
	site.Register(ctx, r)
	return r
}

// startSystemMetricsUpdater samples runtime metrics every interval until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
