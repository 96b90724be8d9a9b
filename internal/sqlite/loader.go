package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// loadOverviewsJSONL inserts every record of the JSONL file at path into
// experiment_overviews and returns how many were loaded. Loading is
// transactional: all records load or the table stays empty. Malformed
// records and records without an experiment ID are skipped; unknown
// fields are ignored so files from newer versions still load. A later
// duplicate ID replaces an earlier one.
func loadOverviewsJSONL(db *sql.DB, path string) (int, error) {
	records, err := readJSONL(path)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertOverviewSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	loaded := 0
	for _, rec := range records {
		var o overviewJSON
		if err := json.Unmarshal(rec, &o); err != nil || o.ExperimentID == "" {
			continue
		}
		if _, err := stmt.Exec(overviewArgs(o)...); err != nil {
			continue
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return loaded, nil
}
