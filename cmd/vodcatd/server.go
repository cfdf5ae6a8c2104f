package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	v1 "github.com/vmunix/vodcat/internal/api/v1"
	"github.com/vmunix/vodcat/internal/app"
	"github.com/vmunix/vodcat/internal/config"
	"github.com/vmunix/vodcat/internal/server"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := app.NewLogger(os.Stdout, cfg.Log.Level)

	// Open database and run migrations
	db, err := app.OpenDB(cfg.Store.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// === Metrics ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === Application ===
	a, err := app.New(cfg, logger, db, reg)
	if err != nil {
		return err
	}

	runner := server.NewRunner(a, server.Config{
		Interval:   cfg.Server.Interval.Duration,
		RunOnStart: cfg.Server.RunOnStart,
		Categories: a.Categories,
	}, logger, a.Jobs()...)

	// === HTTP Setup ===
	mux := http.NewServeMux()
	apiV1, err := v1.New(v1.ServerDeps{
		Scheduler: runner,
		Catalogs:  a.Store,
		Runs:      a.History,
	}, v1.Config{Version: version, FeedCategories: a.FeedCategories()})
	if err != nil {
		return err
	}
	apiV1.RegisterRoutes(mux)
	mux.Handle("GET /metrics", a.Metrics.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting",
		"addr", addr,
		"store", cfg.Store.Format,
		"categories", len(a.Categories),
		"feeds", len(cfg.Feeds),
		"interval", cfg.Server.Interval.String(),
		"log_level", cfg.Log.Level,
	)

	srv := &http.Server{Addr: addr, Handler: logRequests(mux, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// Graceful HTTP shutdown with 30s timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
