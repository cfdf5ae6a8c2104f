// Package history records category runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one category run.
type Run struct {
	ID         string     `json:"id"`
	Category   string     `json:"category"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Items      int        `json:"items"`
	Added      int        `json:"added"`
	Dropped    int        `json:"dropped"`
	Error      string     `json:"error,omitempty"`
}

// Running reports whether the run has not finished yet.
func (r *Run) Running() bool {
	return r.FinishedAt == nil
}

// Filter narrows List. Zero values mean no constraint.
type Filter struct {
	Category string
	Limit    int
}

// Store persists runs. The runs table comes from internal/migrations.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a run store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Begin inserts a new run for category and returns it.
func (s *Store) Begin(ctx context.Context, category string) (*Run, error) {
	r := &Run{
		ID:        uuid.NewString(),
		Category:  category,
		StartedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, category, started_at) VALUES (?, ?, ?)`,
		r.ID, r.Category, r.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// Finish stamps r as finished and stores its counters.
func (s *Store) Finish(ctx context.Context, r *Run) error {
	finished := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, items = ?, added = ?, dropped = ?, error = ?
		WHERE id = ?`,
		finished, r.Items, r.Added, r.Dropped, r.Error, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", r.ID, ErrNotFound)
	}
	r.FinishedAt = &finished
	return nil
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, category, started_at, finished_at, items, added, dropped, error
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// List returns runs, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Run, error) {
	query := `SELECT id, category, started_at, finished_at, items, added, dropped, error FROM runs`
	var args []any
	if f.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Last returns the most recent run of category.
func (s *Store) Last(ctx context.Context, category string) (*Run, error) {
	runs, err := s.List(ctx, Filter{Category: category, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("last run of %q: %w", category, ErrNotFound)
	}
	return runs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	r := &Run{}
	var finished sql.NullTime
	if err := sc.Scan(&r.ID, &r.Category, &r.StartedAt, &finished,
		&r.Items, &r.Added, &r.Dropped, &r.Error); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}
