// Package store persists pipeline runs and their merged output tables so the
// rendering collaborator (and the serve surface) can read them after the
// batch process exits.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/urban-data-lab/tractjoin/internal/model"
	"github.com/urban-data-lab/tractjoin/internal/table"
)

// ErrRunNotFound is returned when a run ID does not exist, or when the
// latest run is requested on an empty store.
var ErrRunNotFound = eris.New("store: run not found")

// Store is the persistence interface for pipeline runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, manifestName string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	LatestRun(ctx context.Context) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Merged output tables, stored with their positional row order intact.
	SaveTable(ctx context.Context, runID string, t *table.Table) error
	GetTable(ctx context.Context, runID string) (*table.Table, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
