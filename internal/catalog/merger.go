package catalog

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"
)

// similarNameThreshold is the Jaro-Winkler score above which a newly created
// series is reported as a probable rename of an existing one.
const similarNameThreshold = 0.92

// EpisodeRecord is a resolved episode candidate waiting to be merged.
type EpisodeRecord struct {
	CUID      int64
	Season    string // defaults to DefaultSeason
	Name      string
	ImageURL  string
	StreamID  StreamID
	StreamURL string
}

// MovieRecord is a resolved movie candidate waiting to be merged.
type MovieRecord struct {
	CUID          int64
	Title         string
	Synopsis      string
	Info          map[string]string
	VerticalImage string
	PosterImage   string
	StreamID      StreamID
	StreamURL     string
}

// Stats counts what a merger did since it was created.
type Stats struct {
	Episodes   int // episodes appended
	Movies     int // movies appended
	NewSeries  int // series created
	Duplicates int // candidates discarded because their CUID was known
	Rejected   int // candidates without a CUID or stream id
}

// Added returns the number of new catalog entries.
func (s Stats) Added() int {
	return s.Episodes + s.Movies
}

type seriesKey struct {
	name     string
	category string
}

// Merger folds resolved records into a catalog. Each CUID is inserted at most
// once across the whole catalog (episodes and movies share one seen-set), and
// episode indices continue from the series' current length, so numbering
// stays gap-free across runs. Safe for concurrent use.
type Merger struct {
	mu     sync.Mutex
	cat    *Catalog
	seen   map[int64]struct{}
	series map[seriesKey]*Series
	stats  Stats
	log    *slog.Logger
}

// NewMerger builds the seen-CUID set from everything already in cat.
func NewMerger(cat *Catalog, log *slog.Logger) *Merger {
	if log == nil {
		log = slog.Default()
	}
	m := &Merger{
		cat:    cat,
		seen:   make(map[int64]struct{}),
		series: make(map[seriesKey]*Series, len(cat.Series)),
		log:    log,
	}
	for _, s := range cat.Series {
		m.series[seriesKey{s.Name, s.Category}] = s
		for _, ep := range s.Episodes {
			m.seen[ep.CUID] = struct{}{}
		}
	}
	for _, mv := range cat.Movies {
		m.seen[mv.CUID] = struct{}{}
	}
	return m
}

// Catalog returns the catalog being merged into.
func (m *Merger) Catalog() *Catalog {
	return m.cat
}

// Stats returns a snapshot of the merge counters.
func (m *Merger) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Seen reports whether cuid is already in the catalog.
func (m *Merger) Seen(cuid int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[cuid]
	return ok
}

// MergeEpisode appends rec to the series (seriesName, category), creating the
// series on first sight. It returns the stored episode and true, or false when
// the CUID is already known or the record is incomplete.
func (m *Merger) MergeEpisode(seriesName, category string, rec EpisodeRecord) (Episode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.CUID <= 0 || rec.StreamID == "" {
		m.stats.Rejected++
		return Episode{}, false
	}
	if _, ok := m.seen[rec.CUID]; ok {
		m.stats.Duplicates++
		return Episode{}, false
	}

	key := seriesKey{seriesName, category}
	s, ok := m.series[key]
	if !ok {
		m.warnSimilar(seriesName, category)
		s = &Series{Name: seriesName, Category: category}
		m.series[key] = s
		m.cat.Series = append(m.cat.Series, s)
		m.stats.NewSeries++
	}

	season := rec.Season
	if season == "" {
		season = DefaultSeason
	}
	ep := Episode{
		CUID:      rec.CUID,
		Season:    season,
		Index:     len(s.Episodes) + 1,
		Name:      rec.Name,
		ImageURL:  rec.ImageURL,
		StreamID:  rec.StreamID,
		StreamURL: rec.StreamURL,
	}
	s.Episodes = append(s.Episodes, ep)
	m.seen[rec.CUID] = struct{}{}
	m.stats.Episodes++
	return ep, true
}

// MergeMovie inserts rec unless its CUID is known. Known CUIDs are dropped,
// never refreshed in place.
func (m *Merger) MergeMovie(category string, rec MovieRecord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.CUID <= 0 || rec.StreamID == "" {
		m.stats.Rejected++
		return false
	}
	if _, ok := m.seen[rec.CUID]; ok {
		m.stats.Duplicates++
		return false
	}

	m.cat.Movies = append(m.cat.Movies, &Movie{
		CUID:          rec.CUID,
		Title:         rec.Title,
		Category:      category,
		Synopsis:      rec.Synopsis,
		Info:          rec.Info,
		VerticalImage: rec.VerticalImage,
		PosterImage:   rec.PosterImage,
		StreamID:      rec.StreamID,
		StreamURL:     rec.StreamURL,
	})
	m.seen[rec.CUID] = struct{}{}
	m.stats.Movies++
	return true
}

// warnSimilar logs when name is almost identical to an existing series of the
// same category. Identity stays title-based; this only surfaces probable
// upstream renames. Caller holds m.mu.
func (m *Merger) warnSimilar(name, category string) {
	lower := strings.ToLower(name)
	for key := range m.series {
		if key.category != category {
			continue
		}
		score := edlib.JaroWinklerSimilarity(lower, strings.ToLower(key.name))
		if score >= similarNameThreshold {
			m.log.Warn("new series close to existing name",
				"series", name, "existing", key.name, "category", category, "similarity", score)
			return
		}
	}
}
