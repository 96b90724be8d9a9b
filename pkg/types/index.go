package types

import "errors"

// OverviewIndex stores experiment overviews so experiments can be listed
// and looked up without loading their bodies. Callers attach to a data
// directory, use the index, and detach when done.
type OverviewIndex interface {
	// Attach opens the index under dataDir, creating it if needed.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(dataDir string) error

	// Detach releases index resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrIndexDetached.
	Detach() error

	// Get returns the overview with the given experiment ID.
	// Returns ErrNotFound if no overview exists with that ID.
	Get(experimentID string) (ExperimentOverview, error)

	// Set creates or replaces the overview keyed by its ExperimentID.
	Set(overview ExperimentOverview) error

	// Delete removes the overview with the given experiment ID.
	// Returns ErrNotFound if no overview exists with that ID.
	Delete(experimentID string) error

	// Fetch returns overviews matching filter, most recently used first.
	Fetch(filter OverviewFilter) ([]ExperimentOverview, error)
}

// OverviewFilter narrows Fetch. The zero value returns every unarchived
// overview.
type OverviewFilter struct {
	IncludeArchived bool
	Limit           int
}

// Index lifecycle errors.
var (
	ErrIndexDetached   = errors.New("overview index is detached")
	ErrAlreadyAttached = errors.New("overview index is already attached")
)
