// Package sqlite implements the experiment overview index. overviews.jsonl
// in the data directory is the source of truth; a SQLite database is
// rebuilt from it on Attach and serves lookups and listings.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/journal/internal/logger"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// File names under the data directory.
const (
	overviewsJSONL = "overviews.jsonl"
	indexDBName    = "index.db"
)

// Backend implements types.OverviewIndex using SQLite as the query engine
// and a JSONL file as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	dataDir  string
	db       *sql.DB
	lggr     logger.Logger
}

var _ types.OverviewIndex = (*Backend)(nil)

// NewBackend creates a detached index. Call Attach to initialize it.
func NewBackend(lggr logger.Logger) *Backend {
	if lggr == nil {
		lggr = logger.Nop()
	}
	return &Backend{lggr: lggr}
}

// Attach opens the index under dataDir. It creates dataDir and an empty
// overviews.jsonl if needed, recreates the SQLite schema, and loads the
// JSONL records into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(dataDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if dataDir == "" {
		return types.ErrDataDirEmpty
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is disposable; remove it so the schema is always fresh.
	dbPath := filepath.Join(dataDir, indexDBName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// One connection keeps the SQLite handle single-writer.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	jsonlPath := filepath.Join(dataDir, overviewsJSONL)
	if err := ensureJSONL(jsonlPath); err != nil {
		db.Close()
		return err
	}

	n, err := loadOverviewsJSONL(db, jsonlPath)
	if err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.dataDir = dataDir
	b.attached = true
	b.lggr.Debugw("overview index attached", "dataDir", dataDir, "overviews", n)
	return nil
}

// Detach closes the SQLite connection. After Detach, all operations return
// ErrIndexDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

func (b *Backend) jsonlPath() string {
	return filepath.Join(b.dataDir, overviewsJSONL)
}
