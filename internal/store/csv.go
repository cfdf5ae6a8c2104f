package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmunix/vodcat/internal/catalog"
)

// CSVHeader is the catalog column layout. Columns are matched by name, so
// legacy files without EpisodeName or streamId still load.
var CSVHeader = []string{"CUID", "Name", "Session", "Episode", "EpisodeName", "imageUrl", "Category", "streamUrl", "streamId"}

// CSVStore keeps each catalog in <dir>/<key>.csv, one row per episode.
// Movies are rows with empty Session and Episode; only their title, vertical
// image and stream survive the format.
type CSVStore struct {
	dir string
	log *slog.Logger
}

// NewCSVStore creates a CSV store rooted at dir.
func NewCSVStore(dir string, log *slog.Logger) *CSVStore {
	return &CSVStore{dir: dir, log: log.With("component", "store", "format", "csv")}
}

// Path returns the file backing key.
func (s *CSVStore) Path(key string) string {
	return filepath.Join(s.dir, FileName(key)+".csv")
}

// Load reads the catalog for key.
func (s *CSVStore) Load(_ context.Context, key string) (*catalog.Catalog, error) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return catalog.New(key), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: OpLoad, Key: key, Err: err}
	}

	cat, err := decodeCSV(key, data)
	if err != nil {
		return quarantine(s.log, key, path, err)
	}
	return cat, nil
}

// Read is Load without moving an unreadable file aside.
func (s *CSVStore) Read(_ context.Context, key string) (*catalog.Catalog, error) {
	return readFile(s.Path(key), key, decodeCSV)
}

// Save writes cat atomically.
func (s *CSVStore) Save(_ context.Context, key string, cat *catalog.Catalog) error {
	data, err := encodeCSV(cat)
	if err != nil {
		return &PersistenceError{Op: OpSave, Key: key, Err: err}
	}
	if err := WriteFileAtomic(s.Path(key), data); err != nil {
		return &PersistenceError{Op: OpSave, Key: key, Err: err}
	}
	return nil
}

func encodeCSV(cat *catalog.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, sr := range cat.Series {
		for _, ep := range sr.Episodes {
			row := []string{
				strconv.FormatInt(ep.CUID, 10), sr.Name, ep.Season, ep.Label(), ep.Name,
				ep.ImageURL, sr.Category, streamColumn(ep.StreamID, ep.StreamURL), string(ep.StreamID),
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write episode %d: %w", ep.CUID, err)
			}
		}
	}
	for _, m := range cat.Movies {
		row := []string{
			strconv.FormatInt(m.CUID, 10), m.Title, "", "", "",
			m.VerticalImage, m.Category, streamColumn(m.StreamID, m.StreamURL), string(m.StreamID),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write movie %d: %w", m.CUID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// streamColumn stores the playable URL when there is one, otherwise the id.
func streamColumn(id catalog.StreamID, streamURL string) string {
	if streamURL != "" {
		return streamURL
	}
	return string(id)
}

// parseStreamColumns reverses streamColumn. With a streamId column the id is
// taken from it and streamUrl is kept only when it differs. Legacy rows
// recover the id from an id query parameter, anything else is the bare id.
func parseStreamColumns(v, id string, hasID bool) (catalog.StreamID, string) {
	v = strings.TrimSpace(v)
	if hasID {
		id = strings.TrimSpace(id)
		if v == id {
			return catalog.StreamID(id), ""
		}
		return catalog.StreamID(id), v
	}
	if !strings.Contains(v, "://") {
		return catalog.StreamID(v), ""
	}
	u, err := url.Parse(v)
	if err != nil {
		return catalog.StreamID(v), ""
	}
	if id := u.Query().Get("id"); id != "" {
		return catalog.StreamID(id), v
	}
	return catalog.StreamID(v), ""
}

func decodeCSV(key string, data []byte) (*catalog.Catalog, error) {
	cat := catalog.New(key)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return cat, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := col["CUID"]; !ok {
		return nil, errors.New("header has no CUID column")
	}
	_, hasStreamID := col["streamId"]
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	series := make(map[[2]string]*catalog.Series)
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cuid, err := strconv.ParseInt(strings.TrimSpace(field(row, "CUID")), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: cuid: %w", line, err)
		}
		id, streamURL := parseStreamColumns(field(row, "streamUrl"), field(row, "streamId"), hasStreamID)
		name, category := field(row, "Name"), field(row, "Category")

		if field(row, "Session") == "" && field(row, "Episode") == "" {
			cat.Movies = append(cat.Movies, &catalog.Movie{
				CUID:          cuid,
				Title:         name,
				Category:      category,
				VerticalImage: field(row, "imageUrl"),
				StreamID:      id,
				StreamURL:     streamURL,
			})
			continue
		}

		k := [2]string{name, category}
		sr, ok := series[k]
		if !ok {
			sr = &catalog.Series{Name: name, Category: category}
			series[k] = sr
			cat.Series = append(cat.Series, sr)
		}
		idx, ok := catalog.ParseEpisodeLabel(field(row, "Episode"))
		if !ok {
			idx = len(sr.Episodes) + 1
		}
		season := field(row, "Session")
		if season == "" {
			season = catalog.DefaultSeason
		}
		sr.Episodes = append(sr.Episodes, catalog.Episode{
			CUID:      cuid,
			Season:    season,
			Index:     idx,
			Name:      field(row, "EpisodeName"),
			ImageURL:  field(row, "imageUrl"),
			StreamID:  id,
			StreamURL: streamURL,
		})
	}
	return cat, nil
}
