package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vmunix/vodcat/internal/catalog"
)

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLStore keeps catalogs in SQLite tables keyed by category. The schema
// comes from internal/migrations. Save replaces a category's rows in one
// transaction.
type SQLStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLStore creates a store over an already migrated database.
func NewSQLStore(db *sql.DB, log *slog.Logger) *SQLStore {
	return &SQLStore{db: db, log: log.With("component", "store", "format", "sqlite")}
}

// Load reads every series, episode and movie stored under key.
func (s *SQLStore) Load(ctx context.Context, key string) (*catalog.Catalog, error) {
	cat, err := loadCatalog(ctx, s.db, key)
	if err != nil {
		return nil, &PersistenceError{Op: OpLoad, Key: key, Err: err}
	}
	return cat, nil
}

// Read is Load; reading rows has no side effects.
func (s *SQLStore) Read(ctx context.Context, key string) (*catalog.Catalog, error) {
	return s.Load(ctx, key)
}

// Save replaces the rows for key with cat.
func (s *SQLStore) Save(ctx context.Context, key string, cat *catalog.Catalog) error {
	if err := s.save(ctx, key, cat); err != nil {
		return &PersistenceError{Op: OpSave, Key: key, Err: err}
	}
	s.log.Debug("catalog saved", "category", key, "series", len(cat.Series), "movies", len(cat.Movies))
	return nil
}

func (s *SQLStore) save(ctx context.Context, key string, cat *catalog.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteCatalog(ctx, tx, key); err != nil {
		return err
	}
	for pos, sr := range cat.Series {
		if err := insertSeries(ctx, tx, key, pos, sr); err != nil {
			return err
		}
	}
	for pos, m := range cat.Movies {
		if err := insertMovie(ctx, tx, key, pos, m); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func deleteCatalog(ctx context.Context, q querier, key string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM episodes WHERE series_id IN (SELECT id FROM series WHERE category = ?)`, key); err != nil {
		return fmt.Errorf("delete episodes: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM series WHERE category = ?`, key); err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM movies WHERE category = ?`, key); err != nil {
		return fmt.Errorf("delete movies: %w", err)
	}
	return nil
}

// insertSeries stores sr and its episodes under the catalog key; the series'
// own category is kept alongside.
func insertSeries(ctx context.Context, q querier, key string, pos int, sr *catalog.Series) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO series (category, name, position, series_category)
		VALUES (?, ?, ?, ?)`,
		key, sr.Name, pos, sr.Category,
	)
	if err != nil {
		return fmt.Errorf("insert series %q: %w", sr.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	for _, ep := range sr.Episodes {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO episodes (series_id, cuid, season, idx, name, image_url, stream_id, stream_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, ep.CUID, ep.Season, ep.Index, ep.Name, ep.ImageURL, string(ep.StreamID), ep.StreamURL,
		); err != nil {
			return fmt.Errorf("insert episode %d: %w", ep.CUID, err)
		}
	}
	return nil
}

func insertMovie(ctx context.Context, q querier, key string, pos int, m *catalog.Movie) error {
	info, err := json.Marshal(m.Info)
	if err != nil {
		return fmt.Errorf("encode info for movie %d: %w", m.CUID, err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO movies (category, cuid, position, title, movie_category, synopsis, info,
			vertical_image, poster_image, stream_id, stream_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, m.CUID, pos, m.Title, m.Category, m.Synopsis, string(info),
		m.VerticalImage, m.PosterImage, string(m.StreamID), m.StreamURL,
	); err != nil {
		return fmt.Errorf("insert movie %d: %w", m.CUID, err)
	}
	return nil
}

func loadCatalog(ctx context.Context, q querier, key string) (*catalog.Catalog, error) {
	cat := catalog.New(key)

	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.name, s.series_category, e.cuid, e.season, e.idx, e.name, e.image_url, e.stream_id, e.stream_url
		FROM series s LEFT JOIN episodes e ON e.series_id = s.id
		WHERE s.category = ?
		ORDER BY s.position, e.idx`, key)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	byID := make(map[int64]*catalog.Series)
	for rows.Next() {
		var id int64
		var name, category string
		var cuid, idx sql.NullInt64
		var season, epName, img, sid, su sql.NullString
		if err := rows.Scan(&id, &name, &category, &cuid, &season, &idx, &epName, &img, &sid, &su); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan series: %w", err)
		}
		sr, ok := byID[id]
		if !ok {
			sr = &catalog.Series{Name: name, Category: category}
			byID[id] = sr
			cat.Series = append(cat.Series, sr)
		}
		if !cuid.Valid {
			continue
		}
		sr.Episodes = append(sr.Episodes, catalog.Episode{
			CUID:      cuid.Int64,
			Season:    season.String,
			Index:     int(idx.Int64),
			Name:      epName.String,
			ImageURL:  img.String,
			StreamID:  catalog.StreamID(sid.String),
			StreamURL: su.String,
		})
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close series rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT cuid, title, movie_category, synopsis, info, vertical_image, poster_image, stream_id, stream_url
		FROM movies WHERE category = ? ORDER BY position`, key)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		m := &catalog.Movie{}
		var info, sid string
		if err := rows.Scan(&m.CUID, &m.Title, &m.Category, &m.Synopsis, &info,
			&m.VerticalImage, &m.PosterImage, &sid, &m.StreamURL); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		if err := json.Unmarshal([]byte(info), &m.Info); err != nil {
			return nil, fmt.Errorf("decode info for movie %d: %w", m.CUID, err)
		}
		m.StreamID = catalog.StreamID(sid)
		cat.Movies = append(cat.Movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return cat, nil
}
