package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/vodcat/internal/catalog"
	"github.com/vmunix/vodcat/internal/metrics"
	"github.com/vmunix/vodcat/internal/resolver"
	"github.com/vmunix/vodcat/pkg/contentid"
)

// itemBatch is everything one item page produced.
type itemBatch struct {
	url        string
	series     string
	episodes   []catalog.EpisodeRecord
	movies     []catalog.MovieRecord
	known      int
	unresolved int
	skipped    bool
	err        error
}

// process fans item URLs out to the worker pool and merges their batches in
// listing order from the calling goroutine.
func (p *Pipeline) process(ctx context.Context, c Category, urls []string, merger *catalog.Merger, res *Result, log *slog.Logger) {
	slots := make([]chan itemBatch, len(urls))
	for i := range slots {
		slots[i] = make(chan itemBatch, 1)
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(p.cfg.Workers)
		for i, u := range urls {
			g.Go(func() error {
				slots[i] <- p.processItem(ctx, c, u, merger, log)
				return nil
			})
		}
		_ = g.Wait()
	}()

	for _, slot := range slots {
		p.apply(c, <-slot, merger, res, log)
	}
}

// apply is the single writer: the only place batches touch the catalog.
func (p *Pipeline) apply(c Category, b itemBatch, merger *catalog.Merger, res *Result, log *slog.Logger) {
	switch {
	case b.skipped:
		res.Skipped++
		p.metrics.Item(c.Name, metrics.OutcomeSkipped)
		return
	case b.err != nil:
		res.Failed++
		p.metrics.Item(c.Name, metrics.OutcomeFailed)
		log.Warn("item page unavailable", "url", b.url, "error", b.err)
		return
	}
	p.metrics.Item(c.Name, metrics.OutcomeOK)
	res.Known += b.known
	res.Unresolved += b.unresolved

	for _, rec := range b.episodes {
		if ep, ok := merger.MergeEpisode(b.series, c.Name, rec); ok {
			log.Info("episode added", "series", b.series, "episode", ep.Label(), "cuid", ep.CUID, "stream_id", ep.StreamID)
		}
	}
	for _, rec := range b.movies {
		if merger.MergeMovie(c.Name, rec) {
			log.Info("movie added", "title", rec.Title, "cuid", rec.CUID, "stream_id", rec.StreamID)
		}
	}
}

func (p *Pipeline) processItem(ctx context.Context, c Category, url string, merger *catalog.Merger, log *slog.Logger) itemBatch {
	if ctx.Err() != nil {
		return itemBatch{url: url, skipped: true}
	}
	if c.Kind == KindMovies {
		return p.movieItem(ctx, url, merger, log)
	}
	return p.seriesItem(ctx, url, merger, log)
}

// seriesItem resolves the page's episode candidates in page order.
func (p *Pipeline) seriesItem(ctx context.Context, url string, merger *catalog.Merger, log *slog.Logger) itemBatch {
	page, err := p.extractor.Series(ctx, url)
	if err != nil {
		return itemBatch{url: url, err: err}
	}

	b := itemBatch{url: url, series: page.Title}
	onPage := make(map[int64]bool, len(page.Episodes))
	for _, cand := range page.Episodes {
		cuid, ok := contentid.FromTileImage(cand.ImageURL)
		if !ok {
			b.unresolved++
			log.Debug("no content id in episode image", "url", url, "image", cand.ImageURL)
			continue
		}
		if onPage[cuid] || merger.Seen(cuid) {
			b.known++
			continue
		}
		onPage[cuid] = true

		id, err := p.resolve(ctx, cuid)
		if err != nil {
			b.unresolved++
			if ctx.Err() != nil {
				break
			}
			log.Warn("stream unresolved", "series", page.Title, "cuid", cuid, "error", err)
			continue
		}
		b.episodes = append(b.episodes, catalog.EpisodeRecord{
			CUID:      cuid,
			Name:      cand.Name,
			ImageURL:  cand.ImageURL,
			StreamID:  id,
			StreamURL: resolver.StreamURL(p.cfg.StreamURLTemplate, id),
		})
	}
	return b
}

// movieItem resolves a movie page. The CUID comes from the vertical image,
// falling back to the poster.
func (p *Pipeline) movieItem(ctx context.Context, url string, merger *catalog.Merger, log *slog.Logger) itemBatch {
	page, err := p.extractor.Movie(ctx, url)
	if err != nil {
		return itemBatch{url: url, err: err}
	}

	b := itemBatch{url: url}
	cuid, ok := contentid.FromVerticalImage(page.VerticalImage)
	if !ok {
		cuid, ok = contentid.FromPosterImage(page.PosterImage)
	}
	if !ok {
		b.unresolved++
		log.Debug("no content id in movie images", "url", url)
		return b
	}
	if merger.Seen(cuid) {
		b.known++
		return b
	}

	id, err := p.resolve(ctx, cuid)
	if err != nil {
		b.unresolved++
		if ctx.Err() == nil {
			log.Warn("stream unresolved", "title", page.Title, "cuid", cuid, "error", err)
		}
		return b
	}
	b.movies = append(b.movies, catalog.MovieRecord{
		CUID:          cuid,
		Title:         page.Title,
		Synopsis:      page.Synopsis,
		Info:          page.Info,
		VerticalImage: page.VerticalImage,
		PosterImage:   page.PosterImage,
		StreamID:      id,
		StreamURL:     resolver.StreamURL(p.cfg.StreamURLTemplate, id),
	})
	return b
}

// resolve probes cuid once even when several workers ask for it at the same
// time.
func (p *Pipeline) resolve(ctx context.Context, cuid int64) (catalog.StreamID, error) {
	v, err, _ := p.probes.Do(strconv.FormatInt(cuid, 10), func() (any, error) {
		start := time.Now()
		id, err := p.resolver.Resolve(ctx, cuid)
		p.metrics.Probe(probeResult(err), time.Since(start))
		return id, err
	})
	if err != nil {
		return "", err
	}
	return v.(catalog.StreamID), nil
}

func probeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, resolver.ErrNoLocation):
		return "no_location"
	case errors.Is(err, resolver.ErrPatternMismatch):
		return "mismatch"
	case errors.Is(err, resolver.ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
