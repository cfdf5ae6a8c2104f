package v1

import (
	"context"
	"errors"

	"github.com/vmunix/vodcat/internal/catalog"
	"github.com/vmunix/vodcat/internal/history"
	"github.com/vmunix/vodcat/internal/pipeline"
	"github.com/vmunix/vodcat/internal/server"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// Scheduler queues and reports catalog runs.
type Scheduler interface {
	Categories() []pipeline.Category
	Trigger(names []string) ([]pipeline.Category, error)
	Status() server.Status
}

// CatalogLoader reads a persisted category catalog without modifying it.
type CatalogLoader interface {
	Read(ctx context.Context, key string) (*catalog.Catalog, error)
}

// RunHistory lists recorded runs.
type RunHistory interface {
	List(ctx context.Context, f history.Filter) ([]*history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, error)
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Scheduler Scheduler
	Catalogs  CatalogLoader

	// Optional dependencies (nil if not configured)
	Runs RunHistory
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Scheduler == nil {
		return errors.New("scheduler is required")
	}
	if d.Catalogs == nil {
		return errors.New("catalog store is required")
	}
	return nil
}
