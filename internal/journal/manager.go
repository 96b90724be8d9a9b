// Package journal manages the experiments under one storage root. It keeps
// the active-experiment cache and the overview index consistent and is the
// entry point used by the command line and the controller.
package journal

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/journal/internal/cache"
	"github.com/mesh-intelligence/journal/internal/logger"
	"github.com/mesh-intelligence/journal/internal/storage"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// Manager is not safe for concurrent use; internal/controller serializes
// access from multiple goroutines.
type Manager struct {
	store *storage.Store
	index types.OverviewIndex
	cache *cache.Cache
	lggr  logger.Logger
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(lggr logger.Logger) Option {
	return func(m *Manager) { m.lggr = lggr }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a manager over an open store, an attached index and a cache
// built on the same store. The manager owns all three; Close releases them.
func New(store *storage.Store, index types.OverviewIndex, c *cache.Cache, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		index: index,
		cache: c,
		lggr:  logger.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lggr = m.lggr.Named("Manager")
	return m
}

// NewExperiment creates an experiment with a fresh UUID v7 identifier and
// makes it active. It is written by the cache's deferred write, an explicit
// Flush, or Close.
func (m *Manager) NewExperiment(title string) (*types.Experiment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating UUID v7: %w", err)
	}
	existing, err := m.index.Fetch(types.OverviewFilter{IncludeArchived: true})
	if err != nil {
		return nil, fmt.Errorf("counting experiments: %w", err)
	}

	exp := types.NewExperiment(m.now().UnixMilli(), id.String(), int32(len(existing)))
	exp.SetTitle(title)
	if err := m.index.Set(exp.Overview()); err != nil {
		return nil, fmt.Errorf("indexing experiment %s: %w", exp.ID(), err)
	}
	if !m.cache.CreateNewExperiment(exp) {
		// The previously active experiment could not be saved and stays active.
		if err := m.index.Delete(exp.ID()); err != nil {
			m.lggr.Errorw("failed to unindex experiment", "id", exp.ID(), "err", err)
		}
		return nil, fmt.Errorf("saving active experiment before creating %s: %w", exp.ID(), types.ErrWriteFailed)
	}
	m.lggr.Infow("created experiment", "id", exp.ID(), "title", title)
	return exp, nil
}

// GetExperimentByID returns the experiment with the given id, making it
// active. Returns ErrNotFound for unknown ids and ErrUnavailable when the
// experiment could not be loaded.
func (m *Manager) GetExperimentByID(id string) (*types.Experiment, error) {
	if err := storage.ValidateID(id); err != nil {
		return nil, err
	}
	overview, err := m.index.Get(id)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", id, err)
	}
	exp := m.cache.GetExperiment(overview)
	if exp == nil {
		return nil, fmt.Errorf("%s: %w", id, types.ErrUnavailable)
	}
	return exp, nil
}

// UpdateExperiment records changes made to exp, which must be the active
// experiment, and refreshes its overview.
func (m *Manager) UpdateExperiment(exp *types.Experiment) error {
	exp.SetLastUsedTime(m.now())
	if err := m.cache.UpdateExperiment(exp); err != nil {
		return err
	}
	if err := m.index.Set(exp.Overview()); err != nil {
		return fmt.Errorf("indexing experiment %s: %w", exp.ID(), err)
	}
	return nil
}

// UpdateExperimentByID records changes made to the in-memory copy of the
// experiment with the given id.
func (m *Manager) UpdateExperimentByID(id string) error {
	exp, err := m.GetExperimentByID(id)
	if err != nil {
		return err
	}
	return m.UpdateExperiment(exp)
}

// SetTitle renames an experiment.
func (m *Manager) SetTitle(id, title string) error {
	return m.edit(id, func(exp *types.Experiment) error {
		exp.SetTitle(title)
		return nil
	})
}

// SetDescription replaces an experiment's description.
func (m *Manager) SetDescription(id, description string) error {
	return m.edit(id, func(exp *types.Experiment) error {
		exp.SetDescription(description)
		return nil
	})
}

// SetArchived archives or restores an experiment.
func (m *Manager) SetArchived(id string, archived bool) error {
	return m.edit(id, func(exp *types.Experiment) error {
		exp.SetArchived(archived)
		return nil
	})
}

// AddLabel attaches a label to an experiment. An empty label ID is replaced
// with a fresh UUID v7 and a zero creation time with the current time.
func (m *Manager) AddLabel(id string, label types.Label) (types.Label, error) {
	if label.LabelID == "" {
		labelID, err := uuid.NewV7()
		if err != nil {
			return types.Label{}, fmt.Errorf("generating UUID v7: %w", err)
		}
		label.LabelID = labelID.String()
	}
	if label.CreationTimeMs == 0 {
		label.CreationTimeMs = m.now().UnixMilli()
	}
	err := m.edit(id, func(exp *types.Experiment) error {
		return exp.AddLabel(label)
	})
	return label, err
}

// AddAsset copies r into the experiment's assets directory under name and
// returns the path relative to the experiment directory.
func (m *Manager) AddAsset(id, name string, r io.Reader) (string, error) {
	if _, err := m.GetExperimentByID(id); err != nil {
		return "", err
	}
	rel, err := m.store.CopyAsset(id, name, r)
	if err != nil {
		return "", fmt.Errorf("copying asset for %s: %w", id, err)
	}
	m.lggr.Debugw("added asset", "id", id, "path", rel)
	return rel, nil
}

// SetCoverImage uses an asset, given relative to the experiment directory,
// as the experiment's overview image.
func (m *Manager) SetCoverImage(id, relativePathInExperiment string) error {
	return m.edit(id, func(exp *types.Experiment) error {
		exp.SetImagePath(storage.OverviewImagePath(id, relativePathInExperiment))
		return nil
	})
}

// DeleteExperiment removes an experiment from disk and from the index.
func (m *Manager) DeleteExperiment(id string) error {
	if err := storage.ValidateID(id); err != nil {
		return err
	}
	if err := m.cache.DeleteExperiment(id); err != nil {
		return err
	}
	if err := m.index.Delete(id); err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("removing %s from index: %w", id, err)
	}
	m.lggr.Infow("deleted experiment", "id", id)
	return nil
}

// ListOverviews returns experiment overviews, most recently used first.
func (m *Manager) ListOverviews(filter types.OverviewFilter) ([]types.ExperimentOverview, error) {
	return m.index.Fetch(filter)
}

// ActiveExperiment returns the experiment currently held in memory, or nil.
func (m *Manager) ActiveExperiment() *types.Experiment {
	return m.cache.ActiveExperiment()
}

// Flush writes the active experiment now. Returns ErrWriteFailed if it
// could not be written.
func (m *Manager) Flush() error {
	m.cache.WriteActiveExperimentFile()
	if m.cache.NeedsWrite() {
		return types.ErrWriteFailed
	}
	return nil
}

// Close flushes the active experiment and releases the index and the
// storage root lock.
func (m *Manager) Close() error {
	var errs []error
	if err := m.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.index.Detach(); err != nil {
		errs = append(errs, fmt.Errorf("detaching index: %w", err))
	}
	if err := m.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}

func (m *Manager) edit(id string, fn func(exp *types.Experiment) error) error {
	exp, err := m.GetExperimentByID(id)
	if err != nil {
		return err
	}
	if err := fn(exp); err != nil {
		return err
	}
	return m.UpdateExperiment(exp)
}
