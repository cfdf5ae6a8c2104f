// Package scrape turns fetched site pages into raw item records: category
// listings into item URLs, series pages into episode candidates and movie
// pages into movie details. Nothing here talks to the stream proxy.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vmunix/vodcat/internal/fetch"
	"github.com/vmunix/vodcat/pkg/title"
)

// Fallback values for fields missing from a page.
const (
	UnknownSeries   = "UnknownSeries"
	UnknownTitle    = "Unknown Title"
	NoSynopsis      = "No synopsis available"
	MissingInfoText = "N/A"
)

// EpisodeCandidate is one episode container in page order. Name and ImageURL
// may be empty.
type EpisodeCandidate struct {
	ImageURL string
	Name     string
}

// SeriesPage is what a series item page yields.
type SeriesPage struct {
	Title    string
	Episodes []EpisodeCandidate
}

// MoviePage is what a movie item page yields.
type MoviePage struct {
	Title         string
	Synopsis      string
	Info          map[string]string
	VerticalImage string
	PosterImage   string
}

// ParseSeriesPage reads the series title and every episode container.
// Missing parts fall back to defaults; it never fails.
func ParseSeriesPage(doc fetch.Document, sel Selectors) SeriesPage {
	page := SeriesPage{Title: pageTitle(doc, sel, UnknownSeries)}
	for _, container := range doc.Find(sel.EpisodeContainer) {
		var c EpisodeCandidate
		if src, ok := fetch.FirstAttr(container, sel.EpisodeImage, sel.EpisodeImageAttr); ok {
			c.ImageURL = strings.TrimSpace(src)
		}
		if el, ok := fetch.First(container, sel.EpisodeName); ok {
			c.Name = collapse(el.Text())
		}
		page.Episodes = append(page.Episodes, c)
	}
	return page
}

// ParseMoviePage reads a movie's title, synopsis, info table and images.
func ParseMoviePage(doc fetch.Document, sel Selectors) MoviePage {
	page := MoviePage{
		Title:    pageTitle(doc, sel, UnknownTitle),
		Synopsis: NoSynopsis,
		Info:     map[string]string{},
	}
	if el, ok := fetch.First(doc, sel.Synopsis); ok {
		if s := collapse(el.Text()); s != "" {
			page.Synopsis = s
		}
	}
	for _, el := range doc.Find(sel.Info) {
		key := collapse(el.Text())
		if key == "" {
			continue
		}
		value := MissingInfoText
		if next, ok := el.Next(); ok {
			if v, ok := fetch.First(next, sel.InfoValue); ok {
				if text := collapse(v.Text()); text != "" {
					value = text
				}
			}
		}
		page.Info[key] = value
	}
	if src, ok := fetch.FirstAttr(doc, sel.VerticalImage, sel.ImageAttr); ok {
		page.VerticalImage = strings.TrimSpace(src)
	}
	if src, ok := fetch.FirstAttr(doc, sel.PosterImage, sel.ImageAttr); ok {
		page.PosterImage = strings.TrimSpace(src)
	}
	return page
}

func pageTitle(doc fetch.Document, sel Selectors, def string) string {
	raw, _ := fetch.FirstAttr(doc, sel.Title, sel.TitleAttr)
	return title.OrDefault(raw, def)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Extractor fetches item pages and parses them.
type Extractor struct {
	fetcher   fetch.Fetcher
	selectors Selectors
	log       *slog.Logger
}

// NewExtractor creates an extractor. Empty selectors take their defaults.
func NewExtractor(f fetch.Fetcher, sel Selectors, log *slog.Logger) *Extractor {
	return &Extractor{
		fetcher:   f,
		selectors: sel.WithDefaults(),
		log:       log.With("component", "extractor"),
	}
}

// Series fetches and parses a series page.
func (e *Extractor) Series(ctx context.Context, url string) (SeriesPage, error) {
	doc, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return SeriesPage{}, fmt.Errorf("extract series: %w", err)
	}
	page := ParseSeriesPage(doc, e.selectors)
	if page.Title == UnknownSeries {
		e.log.Warn("series title missing", "url", url)
	}
	e.log.Debug("series page", "url", url, "title", page.Title, "candidates", len(page.Episodes))
	return page, nil
}

// Movie fetches and parses a movie page.
func (e *Extractor) Movie(ctx context.Context, url string) (MoviePage, error) {
	doc, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return MoviePage{}, fmt.Errorf("extract movie: %w", err)
	}
	page := ParseMoviePage(doc, e.selectors)
	if page.Title == UnknownTitle {
		e.log.Warn("movie title missing", "url", url)
	}
	return page, nil
}
