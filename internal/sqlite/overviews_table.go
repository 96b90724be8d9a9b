package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/journal/pkg/types"
)

const upsertOverviewSQL = `INSERT INTO experiment_overviews
    (experiment_id, title, image_path, last_used_time_ms, sort_key, archived)
    VALUES (?, ?, ?, ?, ?, ?)
    ON CONFLICT(experiment_id) DO UPDATE SET
        title = excluded.title,
        image_path = excluded.image_path,
        last_used_time_ms = excluded.last_used_time_ms,
        sort_key = excluded.sort_key,
        archived = excluded.archived`

const selectOverviewColumns = "SELECT experiment_id, title, image_path, last_used_time_ms, sort_key, archived FROM experiment_overviews"

func overviewArgs(o overviewJSON) []any {
	return []any{o.ExperimentID, o.Title, o.ImagePath, o.LastUsedTimeMs, o.SortKey, o.Archived}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOverview(row rowScanner) (types.ExperimentOverview, error) {
	var o overviewJSON
	if err := row.Scan(&o.ExperimentID, &o.Title, &o.ImagePath, &o.LastUsedTimeMs, &o.SortKey, &o.Archived); err != nil {
		return types.ExperimentOverview{}, err
	}
	return o.overview(), nil
}

// Get returns the overview stored for id.
func (b *Backend) Get(id string) (types.ExperimentOverview, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ExperimentOverview{}, types.ErrIndexDetached
	}
	if id == "" {
		return types.ExperimentOverview{}, types.ErrInvalidID
	}

	o, err := scanOverview(b.db.QueryRow(selectOverviewColumns+" WHERE experiment_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.ExperimentOverview{}, types.ErrNotFound
	}
	if err != nil {
		return types.ExperimentOverview{}, fmt.Errorf("getting overview %s: %w", id, err)
	}
	return o, nil
}

// Set inserts or replaces an overview and rewrites overviews.jsonl. The
// SQLite change is rolled back if the JSONL file cannot be written.
func (b *Backend) Set(o types.ExperimentOverview) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrIndexDetached
	}
	if o.ExperimentID == "" {
		return types.ErrInvalidID
	}

	return b.mutate(func(tx *sql.Tx) error {
		if _, err := tx.Exec(upsertOverviewSQL, overviewArgs(toOverviewJSON(o))...); err != nil {
			return fmt.Errorf("upserting overview %s: %w", o.ExperimentID, err)
		}
		return nil
	})
}

// Delete removes the overview for id. Returns ErrNotFound if absent.
func (b *Backend) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrIndexDetached
	}
	if id == "" {
		return types.ErrInvalidID
	}

	return b.mutate(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM experiment_overviews WHERE experiment_id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting overview %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking delete result: %w", err)
		}
		if n == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}

// Fetch lists overviews, most recently used first. Archived overviews are
// omitted unless the filter includes them. A positive Limit caps the result.
// The result is never nil.
func (b *Backend) Fetch(filter types.OverviewFilter) ([]types.ExperimentOverview, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrIndexDetached
	}

	query := selectOverviewColumns
	if !filter.IncludeArchived {
		query += " WHERE archived = 0"
	}
	query += " ORDER BY last_used_time_ms DESC, experiment_id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := b.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("fetching overviews: %w", err)
	}
	defer rows.Close()

	results := []types.ExperimentOverview{}
	for rows.Next() {
		o, err := scanOverview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning overview: %w", err)
		}
		results = append(results, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating overviews: %w", err)
	}
	return results, nil
}

// mutate runs fn in a transaction, persists the resulting table to
// overviews.jsonl and commits. Caller holds b.mu.
func (b *Backend) mutate(fn func(tx *sql.Tx) error) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	records, err := overviewRecords(tx)
	if err != nil {
		return err
	}
	if err := writeJSONL(b.jsonlPath(), records); err != nil {
		return fmt.Errorf("persisting %s: %w", overviewsJSONL, err)
	}
	return tx.Commit()
}

func overviewRecords(tx *sql.Tx) ([]json.RawMessage, error) {
	rows, err := tx.Query(selectOverviewColumns + " ORDER BY experiment_id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying overviews for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		o, err := scanOverview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning overview for JSONL: %w", err)
		}
		data, err := json.Marshal(toOverviewJSON(o))
		if err != nil {
			return nil, fmt.Errorf("marshaling overview for JSONL: %w", err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating overviews for JSONL: %w", err)
	}
	return records, nil
}
