package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/vodcat/internal/catalog"
	"github.com/vmunix/vodcat/internal/history"
	"github.com/vmunix/vodcat/internal/pipeline"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"x"}, {"y", "z"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "z")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}

func TestRenderResults(t *testing.T) {
	results := []pipeline.Result{
		{Category: "Drama", Items: 5, Stats: catalog.Stats{Episodes: 3, Duplicates: 1}, Known: 2, Duration: 1500 * time.Millisecond},
		{Category: "Movies", Err: errors.New("listing unavailable")},
	}
	out := renderResults(results)
	assert.Contains(t, out, "Drama")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "1.5s")
}

func TestResultsToJSON(t *testing.T) {
	out := resultsToJSON([]pipeline.Result{
		{Category: "Drama", Stats: catalog.Stats{Movies: 2, Duplicates: 1}, Known: 4, Skipped: 1},
		{Category: "Kids", Err: errors.New("boom")},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "cancelled", out[0].Status)
	assert.Equal(t, 5, out[0].Known)
	assert.Equal(t, 2, out[0].Movies)
	assert.Equal(t, "boom", out[1].Error)
}

func TestCrawlError(t *testing.T) {
	ok := []pipeline.Result{{Category: "Drama"}}
	assert.NoError(t, crawlError(context.Background(), ok))

	failed := []pipeline.Result{{Category: "Drama"}, {Category: "Kids", Err: errors.New("boom")}}
	err := crawlError(context.Background(), failed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.EqualError(t, crawlError(ctx, ok), "crawl interrupted")
}

func TestRenderRuns(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	runs := []*history.Run{
		{ID: "0f8c2e1a-1111-2222-3333-444455556666", Category: "Drama", StartedAt: start, FinishedAt: &end, Items: 10, Added: 4},
		{ID: "abc", Category: "Kids", StartedAt: start},
	}
	out := renderRuns(runs)
	assert.Contains(t, out, "0f8c2e1a")
	assert.NotContains(t, out, "0f8c2e1a-1111")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "running")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	got := truncate(strings.Repeat("é", 12), 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestRenderCatalog(t *testing.T) {
	cat := catalog.New("Drama")
	cat.Series = []*catalog.Series{{
		Name: "Bab El Bhar", Category: "Drama",
		Episodes: []catalog.Episode{
			{CUID: 101, Season: "S01", Index: 1, StreamID: "5551"},
			{CUID: 102, Season: "S01", Index: 2, StreamID: "5552"},
		},
	}}
	cat.Movies = []*catalog.Movie{{CUID: 300, Title: "Zanka", StreamID: "7000"}}

	series := renderSeries(cat)
	assert.Contains(t, series, "Bab El Bhar")
	assert.Contains(t, series, "E02")

	eps := renderEpisodes(cat)
	assert.Contains(t, eps, "5552")

	movies := renderMovies(cat)
	assert.Contains(t, movies, "Zanka")
}
