// Package migrations provides embedded SQL migration files.
package migrations

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed sql/001_catalog.sql
var CatalogSQL string

//go:embed sql/002_runs.sql
var RunsSQL string

// All lists every migration in apply order. Each file is idempotent.
var All = []string{CatalogSQL, RunsSQL}

// Apply runs every migration against db.
func Apply(db *sql.DB) error {
	for i, m := range All {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %03d: %w", i+1, err)
		}
	}
	return nil
}
