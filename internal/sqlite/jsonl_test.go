package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONL(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty file", "", 0},
		{"one record", `{"experiment_id":"a"}` + "\n", 1},
		{"blank lines skipped", "\n" + `{"experiment_id":"a"}` + "\n\n" + `{"experiment_id":"b"}` + "\n", 2},
		{"malformed skipped", `{"experiment_id":"a"}` + "\n{not json\n" + `{"experiment_id":"b"}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "x.jsonl")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			records, err := readJSONL(path)
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestReadJSONL_MissingFile(t *testing.T) {
	_, err := readJSONL(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestWriteJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	records := []json.RawMessage{
		json.RawMessage(`{"experiment_id":"a"}`),
		json.RawMessage(`{"experiment_id":"b"}`),
	}
	require.NoError(t, writeJSONL(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{`{"experiment_id":"a"}`, `{"experiment_id":"b"}`}, lines)

	// Rewrite replaces the file contents.
	require.NoError(t, writeJSONL(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestEnsureJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	require.NoError(t, ensureJSONL(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	// Existing content is preserved.
	require.NoError(t, os.WriteFile(path, []byte("keep\n"), 0o644))
	require.NoError(t, ensureJSONL(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep\n", string(data))
}
