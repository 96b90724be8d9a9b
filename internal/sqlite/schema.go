package sqlite

import (
	"database/sql"
	"fmt"
)

const createOverviews = `CREATE TABLE experiment_overviews (
    experiment_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    image_path TEXT NOT NULL,
    last_used_time_ms INTEGER NOT NULL,
    sort_key INTEGER NOT NULL,
    archived INTEGER NOT NULL
);`

const (
	idxOverviewsLastUsed = `CREATE INDEX idx_overviews_last_used ON experiment_overviews(last_used_time_ms);`
	idxOverviewsArchived = `CREATE INDEX idx_overviews_archived ON experiment_overviews(archived);`
)

var schemaDDL = []string{
	createOverviews,
	idxOverviewsLastUsed,
	idxOverviewsArchived,
}

func createSchema(db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
