package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/kam/internal/adapters/auth"
	"github.com/okian/kam/internal/adapters/http/api"
	"github.com/okian/kam/internal/adapters/http/site"
	"github.com/okian/kam/internal/adapters/http/swagger"
	"github.com/okian/kam/internal/adapters/http/ws"
	"github.com/okian/kam/internal/adapters/storage"
	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/config"
	"github.com/okian/kam/pkg/logger"
	"github.com/okian/kam/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// the logger may not be initialized yet
		os.Stderr.WriteString("kam: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = backend.Close()
		return err
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithBackend(backend),
		service.WithWorkerCount(cfg.Persist.WorkerCount),
		service.WithQueueSize(cfg.Persist.QueueSize),
		service.WithPreviewTTL(cfg.Import.PreviewTTL),
		service.WithMaxPreviews(cfg.Import.MaxPreviews),
		service.WithConfirmedKeep(cfg.Import.ConfirmedKeep),
		service.WithTokenIssuer(tokens),
		service.WithAdmin(service.AdminBootstrap{
			Email:    cfg.Auth.AdminEmail,
			Username: cfg.Auth.AdminUsername,
			Password: cfg.Auth.AdminPassword,
			Name:     cfg.Auth.AdminName,
		}),
	)
	if err := svc.Start(ctx); err != nil {
		_ = backend.Close()
		return fmt.Errorf("start service: %w", err)
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	feed := ws.NewHandler(svc, svc, cfg.AllowedOrigins, log.Named("ws"))
	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log.Named("api")),
		api.WithAllowedOrigins(cfg.AllowedOrigins),
		api.WithMaxUploadBytes(cfg.Import.MaxUploadBytes),
		api.WithLoginLimit(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst),
		api.WithImportLimit(cfg.Import.RPS, cfg.Import.Burst),
		api.WithChangeFeed(feed),
	)
	apiServer.Register(ctx, mux)

	if cfg.UIDir != "" {
		if err := site.Register(ctx, mux, os.DirFS(cfg.UIDir)); err != nil {
			log.Warn(ctx, "dashboard not served", logger.String("ui_dir", cfg.UIDir), logger.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("storage", cfg.Storage.Driver),
			logger.Strings("origins", cfg.AllowedOrigins), logger.Bool("dashboard", cfg.UIDir != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		runEvery(gctx, systemMetricsInterval, updateSystemMetrics)
		return nil
	})
	g.Go(func() error {
		runEvery(gctx, serviceMetricsInterval, func() { updateServiceMetrics(svc, feed) })
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		// Stop drains queued saves before the backend closes.
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("service stop: %w", err))
		}
		log.Info(context.Background(), "server stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}

func runEvery(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
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

type statsSource interface {
	GetStats() map[string]interface{}
}

type clientCounter interface {
	Clients() int64
}

// updateServiceMetrics copies service stats into gauges.
func updateServiceMetrics(svc statsSource, feed clientCounter) {
	stats := svc.GetStats()

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
	if collections, ok := stats["collections"].(map[string]int); ok {
		for name, n := range collections {
			metrics.UpdateCollectionSize(name, n)
		}
	}
	if pending, ok := stats["pendingPreviews"].(int); ok {
		metrics.UpdatePreviewsActive(pending)
	}
	metrics.UpdateWebsocketClients(int(feed.Clients()))
}
