// Package feed imports catalog entries from JSON content feeds. A feed lists
// shows, episodes and movies that already carry their HLS variants, so no
// redirect probe is needed: the stream id is read from the chosen variant.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/vmunix/vodcat/internal/catalog"
	"github.com/vmunix/vodcat/internal/fetch"
	"github.com/vmunix/vodcat/internal/resolver"
	"github.com/vmunix/vodcat/internal/store"
	"github.com/vmunix/vodcat/pkg/contentid"
	"github.com/vmunix/vodcat/pkg/title"
)

// DefaultStreamIDPattern extracts the stream id from asharq HLS links.
const DefaultStreamIDPattern = `bloomberg/(.+?)\.smil`

// Item types.
const (
	TypeShow    = "show"
	TypeEpisode = "episode"
	TypeMovie   = "movie"
)

// Response is the feed envelope.
type Response struct {
	Status bool `json:"status"`
	Data   struct {
		Content []Item `json:"content"`
	} `json:"data"`
}

// Item is one feed entry.
type Item struct {
	ID    int64                        `json:"id"`
	Type  string                       `json:"type"`
	Title string                       `json:"title"`
	Slug  string                       `json:"slug"`
	Image map[string]map[string]string `json:"image"`
	Video struct {
		Sources struct {
			HLS []resolver.Variant `json:"HLS"`
		} `json:"sources"`
	} `json:"video"`
}

func (it Item) image(ratio string) string {
	return it.Image[ratio]["x-large"]
}

// Feed configures one feed URL.
type Feed struct {
	Name string
	URL  string
	// Category overrides the name taken from the URL path.
	Category          string
	VariantPreference []string
	StreamIDPattern   string
}

// CategoryFromURL returns the third path segment of a feed URL, decoded
// ("/api/categories/<name>/" yields "<name>").
func CategoryFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	segments := strings.Split(u.Path, "/")
	if len(segments) < 4 || segments[3] == "" {
		return "", fmt.Errorf("feed url %q has no category segment", raw)
	}
	return segments[3], nil
}

// Show is a series assembled from a feed.
type Show struct {
	Name     string
	Episodes []catalog.EpisodeRecord
}

// Records is what one feed yields, in feed order.
type Records struct {
	Shows  []Show
	Movies []catalog.MovieRecord
}

// Parser turns feed items into catalog records.
type Parser struct {
	preference []string
	pattern    *regexp.Regexp
}

// NewParser compiles the stream id pattern. Empty arguments take defaults.
func NewParser(preference []string, pattern string) (*Parser, error) {
	if len(preference) == 0 {
		preference = resolver.DefaultPreference
	}
	if pattern == "" {
		pattern = DefaultStreamIDPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile stream id pattern: %w", err)
	}
	return &Parser{preference: preference, pattern: re}, nil
}

// Parse builds records from items. Every show becomes a series whose first
// episode is the show itself; the feed's episodes follow in order under the
// first show. Movies map one to one.
func (p *Parser) Parse(items []Item) Records {
	var recs Records
	var loose []catalog.EpisodeRecord
	showImage := ""

	for _, it := range items {
		switch it.Type {
		case TypeShow:
			if len(recs.Shows) == 0 {
				showImage = it.image("2-3")
			}
			recs.Shows = append(recs.Shows, Show{
				Name:     title.OrDefault(it.Title, title.FromSlug(it.Slug)),
				Episodes: []catalog.EpisodeRecord{p.episode(it)},
			})
		case TypeEpisode:
			loose = append(loose, p.episode(it))
		case TypeMovie:
			recs.Movies = append(recs.Movies, p.movie(it))
		}
	}

	if len(recs.Shows) > 0 {
		for i := range loose {
			if loose[i].ImageURL == "" {
				loose[i].ImageURL = showImage
			}
		}
		recs.Shows[0].Episodes = append(recs.Shows[0].Episodes, loose...)
	}
	return recs
}

func (p *Parser) stream(it Item) (catalog.StreamID, string) {
	v, ok := resolver.SelectVariant(it.Video.Sources.HLS, p.preference)
	if !ok {
		return "", ""
	}
	id, _ := contentid.Match(p.pattern, v.Link)
	return catalog.StreamID(id), v.Link
}

func (p *Parser) episode(it Item) catalog.EpisodeRecord {
	id, link := p.stream(it)
	return catalog.EpisodeRecord{
		CUID:      it.ID,
		Name:      strings.TrimSpace(it.Title),
		ImageURL:  it.image("2-3"),
		StreamID:  id,
		StreamURL: link,
	}
}

func (p *Parser) movie(it Item) catalog.MovieRecord {
	id, link := p.stream(it)
	return catalog.MovieRecord{
		CUID:          it.ID,
		Title:         title.OrDefault(it.Title, title.FromSlug(it.Slug)),
		VerticalImage: it.image("2-3"),
		PosterImage:   it.image("16-9"),
		StreamID:      id,
		StreamURL:     link,
	}
}

// Getter downloads and decodes JSON.
type Getter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Result summarizes one feed import.
type Result struct {
	Feed     string
	Category string
	Items    int
	Stats    catalog.Stats
}

// Importer merges feeds into the catalog store.
type Importer struct {
	getter Getter
	store  store.Store
	log    *slog.Logger
}

// NewImporter creates an importer.
func NewImporter(g Getter, st store.Store, log *slog.Logger) *Importer {
	return &Importer{getter: g, store: st, log: log.With("component", "feed")}
}

// Import fetches f and merges its records into the category catalog. Items
// whose id is already catalogued are skipped; entries without a stream id
// are rejected by the merger.
func (im *Importer) Import(ctx context.Context, f Feed) (Result, error) {
	res := Result{Feed: f.Name, Category: f.Category}
	if res.Category == "" {
		c, err := CategoryFromURL(f.URL)
		if err != nil {
			return res, err
		}
		res.Category = c
	}
	parser, err := NewParser(f.VariantPreference, f.StreamIDPattern)
	if err != nil {
		return res, err
	}

	var resp Response
	if err := im.getter.GetJSON(ctx, f.URL, &resp); err != nil {
		return res, fmt.Errorf("import feed %s: %w", f.Name, err)
	}
	if !resp.Status {
		return res, fmt.Errorf("import feed %s: %w: %s: status false", f.Name, fetch.ErrFetch, f.URL)
	}
	res.Items = len(resp.Data.Content)

	cat, err := im.store.Load(ctx, res.Category)
	if err != nil {
		return res, err
	}
	merger := catalog.NewMerger(cat, im.log)
	recs := parser.Parse(resp.Data.Content)
	for _, show := range recs.Shows {
		for _, ep := range show.Episodes {
			merger.MergeEpisode(show.Name, res.Category, ep)
		}
	}
	for _, m := range recs.Movies {
		merger.MergeMovie(res.Category, m)
	}
	res.Stats = merger.Stats()

	if err := im.store.Save(context.WithoutCancel(ctx), res.Category, cat); err != nil {
		return res, err
	}
	im.log.Info("feed imported", "feed", f.Name, "category", res.Category, "items", res.Items,
		"episodes_added", res.Stats.Episodes, "movies_added", res.Stats.Movies,
		"rejected", res.Stats.Rejected, "duplicates", res.Stats.Duplicates)
	return res, nil
}
