// Package pipeline runs category crawls: list item pages, extract candidates,
// resolve stream ids and merge the results into the persisted catalog.
//
// Item pages of a category are processed by a bounded worker pool. Workers
// never touch the catalog; every batch is merged by a single writer in
// listing order, so a run produces the same catalog whatever the worker
// count.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vmunix/vodcat/internal/catalog"
	"github.com/vmunix/vodcat/internal/history"
	"github.com/vmunix/vodcat/internal/metrics"
	"github.com/vmunix/vodcat/internal/scrape"
	"github.com/vmunix/vodcat/internal/store"
)

//go:generate mockgen -destination=mocks/resolver_mock.go -package=mocks . StreamResolver

// StreamResolver maps a content id to a stream id.
type StreamResolver interface {
	Resolve(ctx context.Context, cuid int64) (catalog.StreamID, error)
}

// Recorder keeps a log of category runs.
type Recorder interface {
	Begin(ctx context.Context, category string) (*history.Run, error)
	Finish(ctx context.Context, r *history.Run) error
}

// Category kinds.
const (
	KindSeries = "series"
	KindMovies = "movies"
)

// ErrUnknownCategory is returned by Select for a name not in the list.
var ErrUnknownCategory = errors.New("unknown category")

// Category is one listing to crawl.
type Category struct {
	Name string
	URL  string
	Kind string
}

// Select returns the categories named in names, in configuration order.
// No names selects everything.
func Select(all []Category, names []string) ([]Category, error) {
	if len(names) == 0 {
		return all, nil
	}
	for _, n := range names {
		if !slices.ContainsFunc(all, func(c Category) bool { return c.Name == n }) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, n)
		}
	}
	var out []Category
	for _, c := range all {
		if slices.Contains(names, c.Name) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Config tunes a Pipeline.
type Config struct {
	Workers           int
	SeriesQuery       string
	MovieQuery        string
	StreamURLTemplate string
}

// Pipeline crawls categories one after another.
type Pipeline struct {
	crawler   *scrape.Crawler
	extractor *scrape.Extractor
	resolver  StreamResolver
	store     store.Store
	recorder  Recorder
	metrics   *metrics.Metrics
	cfg       Config
	log       *slog.Logger

	probes singleflight.Group
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithRecorder records every category run.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithMetrics exports run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline.
func New(crawler *scrape.Crawler, extractor *scrape.Extractor, resolver StreamResolver,
	st store.Store, cfg Config, log *slog.Logger, opts ...Option) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SeriesQuery == "" {
		cfg.SeriesQuery = scrape.DefaultSeriesQuery
	}
	if cfg.MovieQuery == "" {
		cfg.MovieQuery = scrape.DefaultMovieQuery
	}
	p := &Pipeline{
		crawler:   crawler,
		extractor: extractor,
		resolver:  resolver,
		store:     st,
		cfg:       cfg,
		log:       log.With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result summarizes one category run.
type Result struct {
	Category string
	RunID    string
	// Items is the number of item URLs listed.
	Items int
	// Failed counts item pages that could not be fetched.
	Failed int
	// Skipped counts item pages never started because the run was cancelled.
	Skipped int
	// Known counts candidates skipped before resolution because their CUID
	// was already catalogued.
	Known int
	// Unresolved counts candidates without a CUID or whose probe failed.
	Unresolved int
	Stats      catalog.Stats
	Duration   time.Duration
	Err        error
}

// Status classifies the result for logs and metrics.
func (r Result) Status() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Skipped > 0:
		return "cancelled"
	default:
		return "ok"
	}
}

// Run crawls cats in order. A failing category never stops the others;
// cancellation stops before the next category starts.
func (p *Pipeline) Run(ctx context.Context, cats []Category) []Result {
	results := make([]Result, 0, len(cats))
	for _, c := range cats {
		if ctx.Err() != nil {
			p.log.Info("run cancelled", "remaining", len(cats)-len(results))
			break
		}
		results = append(results, p.RunCategory(ctx, c))
	}
	return results
}

// RunCategory loads the category's catalog, merges everything new found on
// its listing and saves it. Cancelling ctx stops new item fetches; what was
// already resolved is still merged and saved.
func (p *Pipeline) RunCategory(ctx context.Context, c Category) (res Result) {
	start := time.Now()
	log := p.log.With("category", c.Name)
	res.Category = c.Name

	run := p.beginRun(ctx, c.Name, log)
	if run != nil {
		res.RunID = run.ID
	}
	var cat *catalog.Catalog
	defer func() {
		res.Duration = time.Since(start)
		p.finishRun(ctx, run, res, log)
		p.observe(res, cat)
	}()

	loaded, err := p.store.Load(ctx, c.Name)
	if err != nil {
		res.Err = err
		log.Error("load catalog", "error", err)
		return res
	}
	cat = loaded

	urls, err := p.crawler.ItemURLs(ctx, c.URL, p.itemQuery(c.Kind))
	if err != nil {
		res.Err = err
		log.Warn("category listing unavailable, skipping", "url", c.URL, "error", err)
		return res
	}
	res.Items = len(urls)
	log.Info("crawling category", "items", len(urls), "workers", p.cfg.Workers)

	merger := catalog.NewMerger(cat, log)
	p.process(ctx, c, urls, merger, &res, log)
	res.Stats = merger.Stats()

	if err := p.store.Save(context.WithoutCancel(ctx), c.Name, cat); err != nil {
		res.Err = err
		log.Error("save catalog", "error", err)
		return res
	}

	log.Info("category done",
		"episodes_added", res.Stats.Episodes,
		"movies_added", res.Stats.Movies,
		"new_series", res.Stats.NewSeries,
		"known", res.Known+res.Stats.Duplicates,
		"unresolved", res.Unresolved,
		"failed_items", res.Failed,
		"skipped_items", res.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Pipeline) itemQuery(kind string) string {
	if kind == KindMovies {
		return p.cfg.MovieQuery
	}
	return p.cfg.SeriesQuery
}

func (p *Pipeline) beginRun(ctx context.Context, category string, log *slog.Logger) *history.Run {
	if p.recorder == nil {
		return nil
	}
	run, err := p.recorder.Begin(ctx, category)
	if err != nil {
		log.Warn("record run start", "error", err)
		return nil
	}
	return run
}

func (p *Pipeline) finishRun(ctx context.Context, run *history.Run, res Result, log *slog.Logger) {
	if p.recorder == nil || run == nil {
		return
	}
	run.Items = res.Items
	run.Added = res.Stats.Added()
	run.Dropped = res.Unresolved + res.Failed
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	if err := p.recorder.Finish(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("record run finish", "error", err)
	}
}

func (p *Pipeline) observe(res Result, cat *catalog.Catalog) {
	s := metrics.RunStats{
		Category:   res.Category,
		Episodes:   res.Stats.Episodes,
		Movies:     res.Stats.Movies,
		Duplicates: res.Known + res.Stats.Duplicates,
		Status:     res.Status(),
		Duration:   res.Duration,
	}
	if cat != nil {
		s.TotalEpisodes = cat.EpisodeCount()
		s.TotalMovies = len(cat.Movies)
	}
	p.metrics.Run(s)
}
