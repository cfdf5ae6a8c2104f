package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/vmunix/vodcat/internal/fetch"
)

// Default listing settings for forja.ma.
const (
	DefaultBaseURL     = "https://forja.ma"
	DefaultItemPrefix  = "/content/"
	DefaultSeriesQuery = "lang=fr"
	DefaultMovieQuery  = "play=false&lang=fr"
)

// Crawler enumerates the item pages linked from a category listing.
type Crawler struct {
	fetcher  fetch.Fetcher
	base     *url.URL
	prefix   string
	selector string
	log      *slog.Logger
}

// CrawlerConfig configures a Crawler. Zero values take the defaults above.
type CrawlerConfig struct {
	BaseURL    string
	ItemPrefix string
	Selectors  Selectors
}

// NewCrawler creates a crawler. It fails only when BaseURL does not parse.
func NewCrawler(f fetch.Fetcher, cfg CrawlerConfig, log *slog.Logger) (*Crawler, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse base url %q: invalid", raw)
	}
	prefix := cfg.ItemPrefix
	if prefix == "" {
		prefix = DefaultItemPrefix
	}
	return &Crawler{
		fetcher:  f,
		base:     base,
		prefix:   prefix,
		selector: cfg.Selectors.WithDefaults().ListingLink,
		log:      log.With("component", "crawler"),
	}, nil
}

// ItemURLs fetches a listing page and returns the absolute URLs of its item
// links in encounter order, each carrying query instead of its own. Links
// outside the item prefix are ignored; repeats are kept.
func (c *Crawler) ItemURLs(ctx context.Context, listingURL, query string) ([]string, error) {
	doc, err := c.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("crawl listing: %w", err)
	}

	var urls []string
	for _, a := range doc.Find(c.selector) {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		if u, ok := c.itemURL(href, query); ok {
			urls = append(urls, u)
		}
	}
	c.log.Debug("listing crawled", "url", listingURL, "items", len(urls))
	return urls, nil
}

// itemURL resolves a root-relative href under the item prefix. Absolute
// links are accepted only when they point at the base host.
func (c *Crawler) itemURL(href, query string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	if ref.IsAbs() && !strings.EqualFold(ref.Host, c.base.Host) {
		return "", false
	}
	if !strings.HasPrefix(ref.Path, c.prefix) {
		return "", false
	}
	u := c.base.ResolveReference(ref)
	u.RawQuery = query
	u.Fragment = ""
	return u.String(), true
}
