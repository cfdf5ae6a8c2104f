// Package server schedules catalog runs for the daemon.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/vodcat/internal/pipeline"
)

// ErrBusy is returned by Trigger when a run is already queued.
var ErrBusy = errors.New("run already queued")

// Pipeline runs a list of categories.
type Pipeline interface {
	Run(ctx context.Context, cats []pipeline.Category) []pipeline.Result
}

// Job is extra work done after the categories of every cycle, such as feed
// imports or guide export.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config for the runner.
type Config struct {
	Interval   time.Duration
	RunOnStart bool
	Categories []pipeline.Category
}

// Status is a snapshot of the runner.
type Status struct {
	Running  bool
	LastRun  time.Time
	NextRun  time.Time
	Results  []pipeline.Result
	JobError map[string]string
}

// Runner runs the pipeline on an interval and on demand.
type Runner struct {
	pipe   Pipeline
	jobs   []Job
	config Config
	logger *slog.Logger

	queue chan []pipeline.Category

	mu     sync.Mutex
	status Status
}

// NewRunner creates a new runner.
func NewRunner(p Pipeline, cfg Config, logger *slog.Logger, jobs ...Job) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		pipe:   p,
		jobs:   jobs,
		config: cfg,
		logger: logger.With("component", "runner"),
		queue:  make(chan []pipeline.Category, 1),
	}
}

// Categories returns the configured categories in crawl order.
func (r *Runner) Categories() []pipeline.Category {
	return r.config.Categories
}

// Trigger queues a run of the named categories, or all of them when names is
// empty. Only one run can be queued at a time.
func (r *Runner) Trigger(names []string) ([]pipeline.Category, error) {
	cats, err := pipeline.Select(r.config.Categories, names)
	if err != nil {
		return nil, err
	}
	select {
	case r.queue <- cats:
		r.logger.Info("run queued", "categories", len(cats))
		return cats, nil
	default:
		return nil, ErrBusy
	}
}

// Status returns a copy of the current status.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	s.Results = append([]pipeline.Result(nil), r.status.Results...)
	return s
}

// Run schedules runs until the context is canceled.
// A run in progress when ctx is canceled finishes its current category
// and saves what it merged.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.schedule(ctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case cats := <-r.queue:
				r.cycle(ctx, cats)
			}
		}
	})

	return g.Wait()
}

func (r *Runner) schedule(ctx context.Context) error {
	if r.config.RunOnStart {
		r.enqueue()
	}
	if r.config.Interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()
	r.setNext(time.Now().Add(r.config.Interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			r.setNext(t.Add(r.config.Interval))
			r.enqueue()
		}
	}
}

func (r *Runner) enqueue() {
	if _, err := r.Trigger(nil); errors.Is(err, ErrBusy) {
		r.logger.Debug("scheduled run skipped, previous still queued")
	}
}

func (r *Runner) cycle(ctx context.Context, cats []pipeline.Category) {
	start := time.Now()
	r.mu.Lock()
	r.status.Running = true
	r.mu.Unlock()

	results := r.pipe.Run(ctx, cats)
	jobErrs := make(map[string]string)
	for _, job := range r.jobs {
		if ctx.Err() != nil {
			break
		}
		if err := job.Run(ctx); err != nil {
			r.logger.Warn("job failed", "job", job.Name, "error", err)
			jobErrs[job.Name] = err.Error()
		}
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.logger.Info("cycle done",
		"categories", len(results),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	r.mu.Lock()
	r.status.Running = false
	r.status.LastRun = start
	r.status.Results = results
	r.status.JobError = jobErrs
	r.mu.Unlock()
}

func (r *Runner) setNext(t time.Time) {
	r.mu.Lock()
	r.status.NextRun = t
	r.mu.Unlock()
}
