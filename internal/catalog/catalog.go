// Package catalog holds the in-memory media catalog (series, episodes, movies)
// for one category and the merge engine that grows it without duplicates.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultSeason is the season label every scraped episode gets; the site does
// not expose seasons on its episode containers.
const DefaultSeason = "S01"

var (
	// ErrDuplicateCUID indicates two entries of a catalog share a CUID.
	ErrDuplicateCUID = errors.New("duplicate cuid")

	// ErrNumbering indicates a series whose episode indices are not 1..N.
	ErrNumbering = errors.New("episode numbering not sequential")
)

// StreamID identifies a playable stream. Usually numeric, but some sources
// hand out opaque tokens. Empty means unresolved.
type StreamID string

// IsNumeric reports whether the id can be written as a JSON number without
// losing information (digits only, no leading zero).
func (s StreamID) IsNumeric() bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return false
		}
	}
	_, err := strconv.ParseInt(string(s), 10, 64)
	return err == nil
}

// MarshalJSON writes numeric ids as numbers and everything else as strings.
func (s StreamID) MarshalJSON() ([]byte, error) {
	if s.IsNumeric() {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts a number, a string or null.
func (s *StreamID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null" || raw == "":
		*s = ""
		return nil
	case strings.HasPrefix(raw, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("stream id: %w", err)
		}
		*s = StreamID(str)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("stream id: %w", err)
		}
		*s = StreamID(n.String())
		return nil
	}
}

// Episode is one episode of a series. Immutable once merged.
type Episode struct {
	CUID      int64
	Season    string
	Index     int // 1-based, sequential per series
	Name      string
	ImageURL  string
	StreamID  StreamID
	StreamURL string
}

// Label renders the episode index the way catalogs persist it ("E01").
func (e Episode) Label() string {
	return FormatEpisodeLabel(e.Index)
}

// FormatEpisodeLabel renders n as "E%02d".
func FormatEpisodeLabel(n int) string {
	return fmt.Sprintf("E%02d", n)
}

// ParseEpisodeLabel parses "E07" (or "7") into 7.
func ParseEpisodeLabel(s string) (int, bool) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "E")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Series is identified by (Name, Category). A different scraped title makes a
// different series.
type Series struct {
	Name     string
	Category string
	Episodes []Episode
}

// Movie is identified by its CUID.
type Movie struct {
	CUID          int64
	Title         string
	Category      string
	Synopsis      string
	Info          map[string]string
	VerticalImage string
	PosterImage   string
	StreamID      StreamID
	StreamURL     string
}

// Catalog is everything known about one category. It is the unit of
// load, merge and save.
type Catalog struct {
	Category string
	Series   []*Series
	Movies   []*Movie
}

// New returns an empty catalog for category.
func New(category string) *Catalog {
	return &Catalog{Category: category}
}

// FindSeries returns the series keyed by (name, category), or nil.
func (c *Catalog) FindSeries(name, category string) *Series {
	for _, s := range c.Series {
		if s.Name == name && s.Category == category {
			return s
		}
	}
	return nil
}

// EpisodeCount returns the number of episodes across all series.
func (c *Catalog) EpisodeCount() int {
	n := 0
	for _, s := range c.Series {
		n += len(s.Episodes)
	}
	return n
}

// Empty reports whether the catalog holds nothing.
func (c *Catalog) Empty() bool {
	return len(c.Series) == 0 && len(c.Movies) == 0
}

// Verify checks the catalog invariants: unique CUIDs across all episodes,
// unique CUIDs across all movies, and gap-free 1..N numbering per series.
func (c *Catalog) Verify() error {
	var errs []error

	episodes := make(map[int64]string)
	for _, s := range c.Series {
		for i, ep := range s.Episodes {
			if prev, ok := episodes[ep.CUID]; ok {
				errs = append(errs, fmt.Errorf("episode %d in %q and %q: %w", ep.CUID, prev, s.Name, ErrDuplicateCUID))
			}
			episodes[ep.CUID] = s.Name
			if ep.Index != i+1 {
				errs = append(errs, fmt.Errorf("series %q position %d has %s: %w", s.Name, i+1, ep.Label(), ErrNumbering))
			}
		}
	}

	movies := make(map[int64]bool)
	for _, m := range c.Movies {
		if movies[m.CUID] {
			errs = append(errs, fmt.Errorf("movie %d: %w", m.CUID, ErrDuplicateCUID))
		}
		movies[m.CUID] = true
	}

	return errors.Join(errs...)
}
