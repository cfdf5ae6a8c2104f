// Package app wires configured components together for the CLI and daemon.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/vmunix/vodcat/internal/config"
	"github.com/vmunix/vodcat/internal/feed"
	"github.com/vmunix/vodcat/internal/fetch"
	"github.com/vmunix/vodcat/internal/guide"
	"github.com/vmunix/vodcat/internal/history"
	"github.com/vmunix/vodcat/internal/metrics"
	"github.com/vmunix/vodcat/internal/migrations"
	"github.com/vmunix/vodcat/internal/pipeline"
	"github.com/vmunix/vodcat/internal/resolver"
	"github.com/vmunix/vodcat/internal/scrape"
	"github.com/vmunix/vodcat/internal/server"
	"github.com/vmunix/vodcat/internal/store"
)

// App holds every component built from one configuration.
type App struct {
	Config     *config.Config
	Log        *slog.Logger
	DB         *sql.DB
	Fetch      *fetch.Client
	Resolver   *resolver.Resolver
	Store      store.Store
	History    *history.Store
	Metrics    *metrics.Metrics
	Pipeline   *pipeline.Pipeline
	Categories []pipeline.Category
	Importer   *feed.Importer
	Guide      *guide.Builder
	Locker     *store.Locker
}

// ParseLogLevel maps a config level name to a slog level. Unknown names are info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text logger at the given level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLogLevel(level),
	}))
}

// OpenDB opens (creating if needed) the SQLite database and applies migrations.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrations.Apply(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// New builds the application. reg may be nil, in which case metrics go to a
// private registry.
func New(cfg *config.Config, log *slog.Logger, db *sql.DB, reg *prometheus.Registry) (*App, error) {
	a := &App{
		Config:  cfg,
		Log:     log,
		DB:      db,
		History: history.NewStore(db),
		Metrics: metrics.New(reg),
		Locker:  store.NewLocker(cfg.Store.Dir),
	}

	// === Clients ===
	limiter := fetch.NewLimiter(cfg.HTTP.RateLimit, cfg.HTTP.Burst)
	a.Fetch = fetch.NewClient(
		fetch.WithUserAgent(cfg.Site.UserAgent),
		fetch.WithLimiter(limiter),
		fetch.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		fetch.WithTimeout(cfg.HTTP.Timeout.Duration),
		fetch.WithLogger(log.With("component", "fetch")),
	)

	resolverOpts := []resolver.Option{
		resolver.WithMode(resolver.Mode(cfg.Site.ResolveMode)),
		resolver.WithTimeout(cfg.HTTP.ResolveTimeout.Duration),
		resolver.WithLimiter(limiter),
		resolver.WithUserAgent(cfg.Site.UserAgent),
		resolver.WithLogger(log.With("component", "resolver")),
	}
	if cfg.Site.ProxyURLTemplate != "" {
		resolverOpts = append(resolverOpts, resolver.WithProxyTemplate(cfg.Site.ProxyURLTemplate))
	}
	a.Resolver = resolver.New(resolverOpts...)

	// === Stores ===
	st, err := store.New(store.Format(cfg.Store.Format), cfg.Store.Dir, db, log.With("component", "store"))
	if err != nil {
		return nil, err
	}
	a.Store = st

	// === Pipeline ===
	crawler, err := scrape.NewCrawler(a.Fetch, scrape.CrawlerConfig{
		BaseURL:    cfg.Site.BaseURL,
		ItemPrefix: cfg.Site.ItemPrefix,
		Selectors:  cfg.Site.Selectors,
	}, log.With("component", "crawler"))
	if err != nil {
		return nil, fmt.Errorf("crawler: %w", err)
	}
	extractor := scrape.NewExtractor(a.Fetch, cfg.Site.Selectors, log.With("component", "extractor"))

	a.Pipeline = pipeline.New(crawler, extractor, a.Resolver, a.Store, pipeline.Config{
		Workers:           cfg.Crawl.Workers,
		SeriesQuery:       cfg.Site.SeriesQuery,
		MovieQuery:        cfg.Site.MovieQuery,
		StreamURLTemplate: cfg.Site.StreamURLTemplate,
	}, log, pipeline.WithRecorder(a.History), pipeline.WithMetrics(a.Metrics))

	for _, c := range cfg.Categories {
		a.Categories = append(a.Categories, pipeline.Category{Name: c.Name, URL: c.URL, Kind: c.Kind})
	}

	// === Supplementary sources ===
	a.Importer = feed.NewImporter(a.Fetch, a.Store, log.With("component", "feed"))
	a.Guide = guide.NewBuilder(a.Fetch, guide.Config{
		URLTemplate: cfg.Guide.URLTemplate,
		Pages:       cfg.Guide.Pages,
		Lang:        cfg.Guide.Lang,
		Generator:   cfg.Guide.Generator,
	}, log.With("component", "guide"))

	return a, nil
}

// WithLock runs fn while holding the catalog directory lock. It fails with
// store.ErrLocked when another process holds it.
func (a *App) WithLock(fn func() error) error {
	if err := a.Locker.TryLock(); err != nil {
		return err
	}
	defer func() {
		if err := a.Locker.Unlock(); err != nil {
			a.Log.Warn("release lock", "path", a.Locker.Path(), "error", err)
		}
	}()
	return fn()
}

// Run crawls cats holding the catalog lock. When the lock is taken every
// category fails with store.ErrLocked.
func (a *App) Run(ctx context.Context, cats []pipeline.Category) []pipeline.Result {
	var results []pipeline.Result
	err := a.WithLock(func() error {
		results = a.Pipeline.Run(ctx, cats)
		return nil
	})
	if err != nil {
		a.Log.Warn("run skipped", "error", err)
		results = make([]pipeline.Result, 0, len(cats))
		for _, c := range cats {
			results = append(results, pipeline.Result{Category: c.Name, Err: err})
		}
	}
	return results
}

// Feeds returns the configured feeds.
func (a *App) Feeds() []feed.Feed {
	out := make([]feed.Feed, 0, len(a.Config.Feeds))
	for _, f := range a.Config.Feeds {
		out = append(out, feed.Feed{
			Name:              f.Name,
			URL:               f.URL,
			Category:          f.Category,
			VariantPreference: f.VariantPreference,
			StreamIDPattern:   f.StreamIDPattern,
		})
	}
	return out
}

// FeedCategories returns the catalog key each configured feed writes to.
// Feeds whose URL yields no category are left out.
func (a *App) FeedCategories() []string {
	var out []string
	for _, f := range a.Feeds() {
		name := f.Category
		if name == "" {
			c, err := feed.CategoryFromURL(f.URL)
			if err != nil {
				continue
			}
			name = c
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// ImportFeeds imports every configured feed. A failing feed is logged and
// does not stop the others; the first error is returned.
func (a *App) ImportFeeds(ctx context.Context) ([]feed.Result, error) {
	var (
		results  []feed.Result
		firstErr error
	)
	for _, f := range a.Feeds() {
		if ctx.Err() != nil {
			break
		}
		res, err := a.Importer.Import(ctx, f)
		if err != nil {
			a.Log.Warn("feed import failed", "feed", f.Name, "url", f.URL, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("feed %s: %w", f.Name, err)
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

// ExportGuide builds the programme guide and writes it to the configured
// output path. It returns the number of programmes written.
func (a *App) ExportGuide(ctx context.Context) (int, error) {
	tv, err := a.Guide.Build(ctx)
	if err != nil {
		return 0, err
	}
	if err := guide.WriteFile(a.Config.Guide.Output, tv); err != nil {
		return 0, fmt.Errorf("write guide: %w", err)
	}
	a.Log.Info("guide written", "path", a.Config.Guide.Output,
		"channels", len(tv.Channels), "programmes", len(tv.Programmes))
	return len(tv.Programmes), nil
}

// Jobs returns the daemon's per-cycle jobs for what is configured.
func (a *App) Jobs() []server.Job {
	var jobs []server.Job
	if len(a.Config.Feeds) > 0 {
		jobs = append(jobs, server.Job{Name: "feeds", Run: func(ctx context.Context) error {
			return a.WithLock(func() error {
				_, err := a.ImportFeeds(ctx)
				return err
			})
		}})
	}
	if a.Config.Guide.URLTemplate != "" {
		jobs = append(jobs, server.Job{Name: "guide", Run: func(ctx context.Context) error {
			_, err := a.ExportGuide(ctx)
			return err
		}})
	}
	return jobs
}
