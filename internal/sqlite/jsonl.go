package sqlite

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/mesh-intelligence/journal/internal/storage"
)

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically replaces path with one record per line.
func writeJSONL(path string, records []json.RawMessage) error {
	return storage.WriteFileAtomic(path, func(w io.Writer) error {
		for _, rec := range records {
			if _, err := w.Write(rec); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
			if _, err := w.Write([]byte{'\n'}); err != nil {
				return fmt.Errorf("writing newline: %w", err)
			}
		}
		return nil
	})
}

// ensureJSONL creates an empty JSONL file at path if none exists.
func ensureJSONL(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return os.WriteFile(path, nil, 0o644)
}
