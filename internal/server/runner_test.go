package server

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/vodcat/internal/pipeline"
)

type fakePipeline struct {
	mu    sync.Mutex
	calls [][]string
	ran   chan struct{}
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{ran: make(chan struct{}, 16)}
}

func (f *fakePipeline) Run(ctx context.Context, cats []pipeline.Category) []pipeline.Result {
	names := make([]string, 0, len(cats))
	results := make([]pipeline.Result, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
		results = append(results, pipeline.Result{Category: c.Name})
	}
	f.mu.Lock()
	f.calls = append(f.calls, names)
	f.mu.Unlock()
	f.ran <- struct{}{}
	return results
}

func (f *fakePipeline) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

var testCategories = []pipeline.Category{
	{Name: "Drama", URL: "https://forja.ma/category/drama", Kind: pipeline.KindSeries},
	{Name: "Movies", URL: "https://forja.ma/category/films", Kind: pipeline.KindMovies},
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startRunner(t *testing.T, r *Runner) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("runner did not stop")
		}
	})
	return cancel
}

func waitRun(t *testing.T, f *fakePipeline) {
	t.Helper()
	select {
	case <-f.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run")
	}
}

func TestRunner_RunOnStart(t *testing.T) {
	fp := newFakePipeline()
	r := NewRunner(fp, Config{RunOnStart: true, Categories: testCategories}, discard())
	startRunner(t, r)

	waitRun(t, fp)
	assert.Equal(t, [][]string{{"Drama", "Movies"}}, fp.Calls())
}

func TestRunner_Trigger(t *testing.T) {
	fp := newFakePipeline()
	r := NewRunner(fp, Config{Categories: testCategories}, discard())
	startRunner(t, r)

	cats, err := r.Trigger([]string{"Movies"})
	require.NoError(t, err)
	require.Len(t, cats, 1)

	waitRun(t, fp)
	assert.Equal(t, [][]string{{"Movies"}}, fp.Calls())

	require.Eventually(t, func() bool {
		s := r.Status()
		return !s.Running && len(s.Results) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Movies", r.Status().Results[0].Category)
}

func TestRunner_TriggerUnknownCategory(t *testing.T) {
	r := NewRunner(newFakePipeline(), Config{Categories: testCategories}, discard())

	_, err := r.Trigger([]string{"Opera"})
	assert.ErrorIs(t, err, pipeline.ErrUnknownCategory)
}

func TestRunner_TriggerBusy(t *testing.T) {
	r := NewRunner(newFakePipeline(), Config{Categories: testCategories}, discard())

	_, err := r.Trigger(nil)
	require.NoError(t, err)
	_, err = r.Trigger(nil)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestRunner_Interval(t *testing.T) {
	fp := newFakePipeline()
	r := NewRunner(fp, Config{Interval: 20 * time.Millisecond, Categories: testCategories}, discard())
	startRunner(t, r)

	waitRun(t, fp)
	waitRun(t, fp)
	assert.GreaterOrEqual(t, len(fp.Calls()), 2)
	assert.False(t, r.Status().NextRun.IsZero())
}

func TestRunner_Jobs(t *testing.T) {
	fp := newFakePipeline()
	jobRan := make(chan string, 2)
	jobs := []Job{
		{Name: "feeds", Run: func(context.Context) error { jobRan <- "feeds"; return nil }},
		{Name: "guide", Run: func(context.Context) error { jobRan <- "guide"; return io.ErrUnexpectedEOF }},
	}
	r := NewRunner(fp, Config{RunOnStart: true, Categories: testCategories}, discard(), jobs...)
	startRunner(t, r)

	waitRun(t, fp)
	assert.Equal(t, "feeds", <-jobRan)
	assert.Equal(t, "guide", <-jobRan)

	require.Eventually(t, func() bool {
		return r.Status().JobError["guide"] != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, r.Status().JobError["feeds"])
}

func TestRunner_StopsOnCancel(t *testing.T) {
	fp := newFakePipeline()
	r := NewRunner(fp, Config{Interval: time.Hour, Categories: testCategories}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Empty(t, fp.Calls())
}
