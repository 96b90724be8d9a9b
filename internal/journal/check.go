package journal

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/journal/internal/codec"
	"github.com/mesh-intelligence/journal/internal/migrate"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// CheckStatus classifies an experiment file found on disk.
type CheckStatus string

const (
	StatusOK         CheckStatus = "ok"
	StatusUpgradable CheckStatus = "upgradable"
	StatusTooNew     CheckStatus = "too-new"
	StatusUnreadable CheckStatus = "unreadable"
)

// CheckResult describes one experiment directory.
type CheckResult struct {
	ExperimentID string
	Version      types.Version
	Status       CheckStatus
	// Indexed is false when the experiment has no overview.
	Indexed bool
	// Fixed is set when Check(true) upgraded the file or indexed it.
	Fixed bool
	Err   error
}

// Check inspects every experiment directory under the storage root. With
// fix set, readable experiments missing from the overview index are added
// to it, and experiments that need an upgrade are loaded, upgraded and
// written back. Files from newer versions are indexed but never rewritten.
func (m *Manager) Check(fix bool) ([]CheckResult, error) {
	ids, err := m.store.ListExperimentIDs()
	if err != nil {
		return nil, fmt.Errorf("listing experiments: %w", err)
	}

	results := make([]CheckResult, 0, len(ids))
	for _, id := range ids {
		res := m.checkOne(id)
		if fix && res.Err == nil {
			if err := m.fix(&res); err != nil {
				res.Err = err
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (m *Manager) checkOne(id string) CheckResult {
	res := CheckResult{ExperimentID: id, Status: StatusUnreadable}

	_, err := m.index.Get(id)
	switch {
	case err == nil:
		res.Indexed = true
	case !errors.Is(err, types.ErrNotFound):
		res.Err = err
		return res
	}

	data, err := m.store.ReadExperiment(id)
	if err != nil {
		res.Err = err
		return res
	}
	schema, err := codec.Decode(data)
	if err != nil {
		res.Err = err
		return res
	}
	res.Version = schema.Version

	switch result, err := migrate.Upgrade(schema.Clone(), types.CurrentMajorVersion, types.CurrentMinorVersion); {
	case err != nil:
		res.Err = err
	case result == migrate.TooNew || migrate.IsNewerThan(res.Version, types.CurrentMajorVersion, types.CurrentMinorVersion):
		res.Status = StatusTooNew
	case result == migrate.Upgraded:
		res.Status = StatusUpgradable
	default:
		res.Status = StatusOK
	}
	return res
}

func (m *Manager) fix(res *CheckResult) error {
	if res.Status == StatusUnreadable {
		return nil
	}
	id := res.ExperimentID

	if !res.Indexed {
		data, err := m.store.ReadExperiment(id)
		if err != nil {
			return err
		}
		schema, err := codec.Decode(data)
		if err != nil {
			return err
		}
		overview := types.ExperimentOverview{
			ExperimentID:   id,
			Title:          schema.Title,
			LastUsedTimeMs: schema.CreationTimeMs,
			SortKey:        schema.SortKey,
			Archived:       schema.Archived,
		}
		if err := m.index.Set(overview); err != nil {
			return fmt.Errorf("indexing %s: %w", id, err)
		}
		res.Indexed = true
		res.Fixed = true
		m.lggr.Infow("indexed experiment found on disk", "id", id)
	}

	if res.Status == StatusUpgradable {
		if _, err := m.GetExperimentByID(id); err != nil {
			return err
		}
		if err := m.Flush(); err != nil {
			return err
		}
		res.Version = types.CurrentVersion()
		res.Status = StatusOK
		res.Fixed = true
	}
	return nil
}
