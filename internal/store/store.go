// Package store persists category catalogs. Three backends share one
// interface: JSON files (default), legacy CSV files and SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/vmunix/vodcat/internal/catalog"
)

// Store loads and saves one catalog per key (the category name).
// Load returns an empty catalog when nothing was stored yet.
type Store interface {
	Reader
	Load(ctx context.Context, key string) (*catalog.Catalog, error)
	Save(ctx context.Context, key string, cat *catalog.Catalog) error
}

// Reader reads a catalog without touching what is stored. Unlike Load, an
// unreadable catalog is a PersistenceError and is left in place.
type Reader interface {
	Read(ctx context.Context, key string) (*catalog.Catalog, error)
}

// Format names a Store backend.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// ErrUnknownFormat is returned for an unsupported store format.
var ErrUnknownFormat = errors.New("unknown store format")

// New returns the backend for format. dir roots the file backends; db is
// required for FormatSQLite and ignored otherwise.
func New(format Format, dir string, db *sql.DB, log *slog.Logger) (Store, error) {
	switch format {
	case FormatJSON, "":
		return NewJSONStore(dir, log), nil
	case FormatCSV:
		return NewCSVStore(dir, log), nil
	case FormatSQLite:
		if db == nil {
			return nil, errors.New("sqlite store: no database")
		}
		return NewSQLStore(db, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Op is the operation a PersistenceError happened in.
type Op string

const (
	OpLoad Op = "load"
	OpSave Op = "save"
)

// PersistenceError means a catalog could not be read or written. It aborts
// the affected category's run; previously persisted state is left intact.
type PersistenceError struct {
	Op  Op
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s catalog %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// FileName turns a category key into a safe file stem: letters and digits
// are kept, everything else becomes '_'.
func FileName(key string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
