package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vmunix/vodcat/internal/catalog"
)

type seriesJSON struct {
	Name     string        `json:"Name"`
	Category string        `json:"Category"`
	Episodes []episodeJSON `json:"Episodes"`
}

type episodeJSON struct {
	CUID        int64            `json:"CUID"`
	Session     string           `json:"Session"`
	Episode     string           `json:"Episode"`
	EpisodeName string           `json:"EpisodeName,omitempty"`
	ImageURL    string           `json:"imageUrl"`
	StreamID    catalog.StreamID `json:"streamId"`
	StreamURL   string           `json:"streamUrl,omitempty"`
}

type movieJSON struct {
	CUID          int64             `json:"CUID"`
	Title         string            `json:"Title"`
	Category      string            `json:"Category"`
	Synopsis      string            `json:"Synopsis"`
	Info          map[string]string `json:"Info"`
	VerticalImage string            `json:"VerticalImage"`
	PosterImage   string            `json:"PosterImage"`
	StreamID      catalog.StreamID  `json:"StreamID"`
	StreamURL     string            `json:"streamUrl,omitempty"`
}

type mixedJSON struct {
	Series []seriesJSON `json:"series"`
	Movies []movieJSON  `json:"movies"`
}

// JSONStore keeps each catalog in <dir>/<key>.json. A series-only catalog is
// written as an array of series, a movie-only catalog as an array of movies
// and a mixed one as {"series": [...], "movies": [...]}.
type JSONStore struct {
	dir string
	log *slog.Logger
}

// NewJSONStore creates a JSON store rooted at dir.
func NewJSONStore(dir string, log *slog.Logger) *JSONStore {
	return &JSONStore{dir: dir, log: log.With("component", "store", "format", "json")}
}

// Path returns the file backing key.
func (s *JSONStore) Path(key string) string {
	return filepath.Join(s.dir, FileName(key)+".json")
}

// Load reads the catalog for key. A missing file is an empty catalog. A file
// that is not valid catalog JSON is moved aside and also treated as empty.
func (s *JSONStore) Load(_ context.Context, key string) (*catalog.Catalog, error) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return catalog.New(key), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: OpLoad, Key: key, Err: err}
	}

	cat, err := decodeJSON(key, data)
	if err != nil {
		return quarantine(s.log, key, path, err)
	}
	return cat, nil
}

// Read is Load without moving an unreadable file aside.
func (s *JSONStore) Read(_ context.Context, key string) (*catalog.Catalog, error) {
	return readFile(s.Path(key), key, decodeJSON)
}

// Save writes cat atomically.
func (s *JSONStore) Save(_ context.Context, key string, cat *catalog.Catalog) error {
	data, err := encodeJSON(cat)
	if err != nil {
		return &PersistenceError{Op: OpSave, Key: key, Err: err}
	}
	if err := WriteFileAtomic(s.Path(key), data); err != nil {
		return &PersistenceError{Op: OpSave, Key: key, Err: err}
	}
	s.log.Debug("catalog saved", "category", key, "series", len(cat.Series), "movies", len(cat.Movies))
	return nil
}

// readFile loads path with decode and never modifies it.
func readFile(path, key string, decode func(string, []byte) (*catalog.Catalog, error)) (*catalog.Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return catalog.New(key), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: OpLoad, Key: key, Err: err}
	}
	cat, err := decode(key, data)
	if err != nil {
		return nil, &PersistenceError{Op: OpLoad, Key: key, Err: err}
	}
	return cat, nil
}

// quarantine renames an unreadable catalog to <path>.corrupt-<unix> so the
// next save does not overwrite the evidence, and returns an empty catalog.
func quarantine(log *slog.Logger, key, path string, cause error) (*catalog.Catalog, error) {
	aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	if err := os.Rename(path, aside); err != nil {
		return nil, &PersistenceError{Op: OpLoad, Key: key, Err: errors.Join(cause, err)}
	}
	log.Warn("unreadable catalog moved aside", "category", key, "path", aside, "error", cause)
	return catalog.New(key), nil
}

func encodeJSON(cat *catalog.Catalog) ([]byte, error) {
	series := make([]seriesJSON, 0, len(cat.Series))
	for _, sr := range cat.Series {
		series = append(series, toSeriesJSON(sr))
	}
	movies := make([]movieJSON, 0, len(cat.Movies))
	for _, m := range cat.Movies {
		movies = append(movies, toMovieJSON(m))
	}

	var v any
	switch {
	case len(movies) == 0:
		v = series
	case len(series) == 0:
		v = movies
	default:
		v = mixedJSON{Series: series, Movies: movies}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeJSON(key string, data []byte) (*catalog.Catalog, error) {
	cat := catalog.New(key)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return cat, nil
	}

	switch trimmed[0] {
	case '{':
		var mixed mixedJSON
		if err := json.Unmarshal(trimmed, &mixed); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		for _, sr := range mixed.Series {
			cat.Series = append(cat.Series, fromSeriesJSON(sr))
		}
		for _, m := range mixed.Movies {
			cat.Movies = append(cat.Movies, fromMovieJSON(m))
		}
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		for i, entry := range entries {
			var probe struct {
				Episodes json.RawMessage `json:"Episodes"`
			}
			if err := json.Unmarshal(entry, &probe); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			if probe.Episodes != nil {
				var sr seriesJSON
				if err := json.Unmarshal(entry, &sr); err != nil {
					return nil, fmt.Errorf("series entry %d: %w", i, err)
				}
				cat.Series = append(cat.Series, fromSeriesJSON(sr))
				continue
			}
			var m movieJSON
			if err := json.Unmarshal(entry, &m); err != nil {
				return nil, fmt.Errorf("movie entry %d: %w", i, err)
			}
			cat.Movies = append(cat.Movies, fromMovieJSON(m))
		}
	default:
		return nil, errors.New("decode json: not an array or object")
	}
	return cat, nil
}

func toSeriesJSON(sr *catalog.Series) seriesJSON {
	out := seriesJSON{Name: sr.Name, Category: sr.Category, Episodes: make([]episodeJSON, 0, len(sr.Episodes))}
	for _, ep := range sr.Episodes {
		out.Episodes = append(out.Episodes, episodeJSON{
			CUID:        ep.CUID,
			Session:     ep.Season,
			Episode:     ep.Label(),
			EpisodeName: ep.Name,
			ImageURL:    ep.ImageURL,
			StreamID:    ep.StreamID,
			StreamURL:   ep.StreamURL,
		})
	}
	return out
}

func fromSeriesJSON(in seriesJSON) *catalog.Series {
	sr := &catalog.Series{Name: in.Name, Category: in.Category}
	for i, ep := range in.Episodes {
		idx, ok := catalog.ParseEpisodeLabel(ep.Episode)
		if !ok {
			idx = i + 1
		}
		season := ep.Session
		if season == "" {
			season = catalog.DefaultSeason
		}
		sr.Episodes = append(sr.Episodes, catalog.Episode{
			CUID:      ep.CUID,
			Season:    season,
			Index:     idx,
			Name:      ep.EpisodeName,
			ImageURL:  ep.ImageURL,
			StreamID:  ep.StreamID,
			StreamURL: ep.StreamURL,
		})
	}
	return sr
}

func toMovieJSON(m *catalog.Movie) movieJSON {
	return movieJSON{
		CUID:          m.CUID,
		Title:         m.Title,
		Category:      m.Category,
		Synopsis:      m.Synopsis,
		Info:          m.Info,
		VerticalImage: m.VerticalImage,
		PosterImage:   m.PosterImage,
		StreamID:      m.StreamID,
		StreamURL:     m.StreamURL,
	}
}

func fromMovieJSON(in movieJSON) *catalog.Movie {
	return &catalog.Movie{
		CUID:          in.CUID,
		Title:         in.Title,
		Category:      in.Category,
		Synopsis:      in.Synopsis,
		Info:          in.Info,
		VerticalImage: in.VerticalImage,
		PosterImage:   in.PosterImage,
		StreamID:      in.StreamID,
		StreamURL:     in.StreamURL,
	}
}
