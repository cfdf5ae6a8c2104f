// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"regexp"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validStoreFormats = map[string]bool{
	"json": true, "csv": true, "sqlite": true, "": true,
}

var validResolveModes = map[string]bool{
	"id": true, "location": true, "": true,
}

var validKinds = map[string]bool{
	"series": true, "movies": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Site.BaseURL != "" && !isAbsURL(c.Site.BaseURL) {
		errs = append(errs, fmt.Sprintf("site.base_url: must be an absolute URL, got %q", c.Site.BaseURL))
	}
	if !validResolveModes[c.Site.ResolveMode] {
		errs = append(errs, fmt.Sprintf("site.resolve_mode: must be one of id, location; got %q", c.Site.ResolveMode))
	}

	if c.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("http.rate_limit: must not be negative, got %v", c.HTTP.RateLimit))
	}
	if c.HTTP.Burst < 0 {
		errs = append(errs, fmt.Sprintf("http.burst: must not be negative, got %d", c.HTTP.Burst))
	}
	if c.Crawl.Workers < 0 {
		errs = append(errs, fmt.Sprintf("crawl.workers: must not be negative, got %d", c.Crawl.Workers))
	}

	if !validStoreFormats[c.Store.Format] {
		errs = append(errs, fmt.Sprintf("store.format: must be one of json, csv, sqlite; got %q", c.Store.Format))
	}
	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.Interval.Duration < 0 {
		errs = append(errs, "server.interval: must not be negative")
	}

	// Categories
	if len(c.Categories) == 0 && len(c.Feeds) == 0 {
		errs = append(errs, "categories: at least one category or feed must be configured")
	}
	names := make(map[string]bool)
	for i, cat := range c.Categories {
		field := fmt.Sprintf("categories[%d]", i)
		if cat.Name == "" {
			errs = append(errs, field+".name: required")
		} else if names[cat.Name] {
			errs = append(errs, fmt.Sprintf("%s.name: duplicate category %q", field, cat.Name))
		}
		names[cat.Name] = true
		if cat.URL == "" {
			errs = append(errs, field+".url: required")
		}
		if cat.Kind != "" && !validKinds[cat.Kind] {
			errs = append(errs, fmt.Sprintf("%s.kind: must be one of series, movies; got %q", field, cat.Kind))
		}
	}

	// Feeds
	for i, f := range c.Feeds {
		field := fmt.Sprintf("feeds[%d]", i)
		if !isAbsURL(f.URL) {
			errs = append(errs, fmt.Sprintf("%s.url: must be an absolute URL, got %q", field, f.URL))
		}
		if f.StreamIDPattern != "" {
			if _, err := regexp.Compile(f.StreamIDPattern); err != nil {
				errs = append(errs, fmt.Sprintf("%s.stream_id_pattern: %v", field, err))
			}
		}
	}

	if c.Guide.Pages < 0 {
		errs = append(errs, fmt.Sprintf("guide.pages: must not be negative, got %d", c.Guide.Pages))
	}

	return errs
}

func isAbsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
