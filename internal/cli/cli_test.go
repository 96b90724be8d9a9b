package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/journal/internal/codec"
	"github.com/mesh-intelligence/journal/internal/storage"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// env is an isolated config and data directory pair.
type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	t.Setenv("JOURNAL_CONFIG_DIR", "")
	t.Setenv("JOURNAL_DATA_DIR", "")
	return env{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

// run executes the CLI and returns stdout, stderr and the error.
func (e env) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir, "--log-level", "error"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	require.NoError(t, err, "journal %s: %s", strings.Join(args, " "), stderr)
	return out
}

func (e env) show(t *testing.T, id string) experimentView {
	t.Helper()
	var v experimentView
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "--json", "show", id)), &v))
	return v
}

func (e env) list(t *testing.T, args ...string) []types.ExperimentOverview {
	t.Helper()
	var overviews []types.ExperimentOverview
	out := e.mustRun(t, append([]string{"--json", "list"}, args...)...)
	require.NoError(t, json.Unmarshal([]byte(out), &overviews))
	return overviews
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "version")
	assert.Contains(t, out, "journal v")
	assert.Contains(t, out, "module: "+modulePath)
	assert.Contains(t, out, "schema: "+types.CurrentVersion().String())
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "init")
	assert.Contains(t, out, "Wrote")
	assert.Contains(t, out, "Journal initialized at "+e.dataDir)
	assert.FileExists(t, filepath.Join(e.dataDir, "overviews.jsonl"))

	data, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "data_dir: "+e.dataDir)
	assert.Contains(t, string(data), "write_delay_ms: 1000")
	assert.Contains(t, string(data), "log_level: warn")

	// Second run keeps the existing file.
	out = e.mustRun(t, "init")
	assert.NotContains(t, out, "Wrote")
}

func TestExperimentLifecycle(t *testing.T) {
	e := newEnv(t)

	id := strings.TrimSpace(e.mustRun(t, "new", "Pendulum"))
	require.NotEmpty(t, id)

	v := e.show(t, id)
	assert.Equal(t, "Pendulum", v.Title)
	assert.Equal(t, types.CurrentVersion().String(), v.Version)

	e.mustRun(t, "title", id, "Long pendulum")
	assert.Equal(t, "Long pendulum", e.show(t, id).Title)

	text := e.mustRun(t, "show", id)
	assert.Contains(t, text, "Title:       Long pendulum")

	other := strings.TrimSpace(e.mustRun(t, "new", "Ramp"))
	list := e.list(t)
	require.Len(t, list, 2)

	e.mustRun(t, "archive", id)
	list = e.list(t)
	require.Len(t, list, 1)
	assert.Equal(t, other, list[0].ExperimentID)
	assert.Len(t, e.list(t, "--all"), 2)

	e.mustRun(t, "archive", "--restore", id)
	assert.Len(t, e.list(t), 2)
	assert.Len(t, e.list(t, "--limit", "1"), 1)

	e.mustRun(t, "delete", id)
	_, _, err := e.run(t, "show", id)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
	assert.NoDirExists(t, filepath.Join(e.dataDir, id))
}

func TestAssetAndImage(t *testing.T) {
	e := newEnv(t)
	id := strings.TrimSpace(e.mustRun(t, "new", "Photos"))

	src := filepath.Join(t.TempDir(), "leaf.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg"), 0o644))

	out := e.mustRun(t, "asset", id, src)
	assert.Equal(t, "assets/leaf.jpg", strings.TrimSpace(out))

	out = e.mustRun(t, "asset", "--name", "renamed.jpg", id, src)
	assert.Equal(t, "assets/renamed.jpg", strings.TrimSpace(out))
	assert.FileExists(t, filepath.Join(e.dataDir, id, "assets", "renamed.jpg"))

	out = e.mustRun(t, "image", id, src)
	assert.Equal(t, id+"/assets/leaf.jpg", strings.TrimSpace(out))
	assert.Equal(t, id+"/assets/leaf.jpg", e.show(t, id).ImagePath)

	_, _, err := e.run(t, "asset", id, filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestCheck(t *testing.T) {
	e := newEnv(t)
	current := strings.TrimSpace(e.mustRun(t, "new", "Current"))

	store, err := storage.Open(e.dataDir)
	require.NoError(t, err)
	data, err := codec.Encode(&types.ExperimentSchema{Version: types.Version{Major: 1, Minor: 0}, Title: "Old"})
	require.NoError(t, err)
	require.NoError(t, store.WriteExperiment("old", data))
	require.NoError(t, store.Close())

	var views []checkView
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "--json", "check")), &views))
	require.Len(t, views, 2)
	byID := map[string]checkView{}
	for _, v := range views {
		byID[v.ExperimentID] = v
	}
	assert.Equal(t, "ok", byID[current].Status)
	assert.Equal(t, "upgradable", byID["old"].Status)
	assert.False(t, byID["old"].Indexed)

	out := e.mustRun(t, "check", "--fix")
	assert.Contains(t, out, "old")

	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "--json", "check")), &views))
	for _, v := range views {
		assert.Equal(t, "ok", v.Status, v.ExperimentID)
		assert.True(t, v.Indexed, v.ExperimentID)
	}
	assert.Equal(t, "Old", e.show(t, "old").Title)
}

func TestConfigValidation(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"),
		[]byte("write_delay_ms: -5\n"), 0o644))

	_, _, err := e.run(t, "list")
	assert.ErrorIs(t, err, types.ErrWriteDelayInvalid)
}

func TestDataDirFromConfig(t *testing.T) {
	e := newEnv(t)
	configured := filepath.Join(t.TempDir(), "from-config")
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"),
		[]byte(fmt.Sprintf("data_dir: %s\nwrite_delay_ms: 0\n", configured)), 0o644))

	root := NewRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"--config-dir", e.configDir, "new", "Configured"})
	require.NoError(t, root.Execute())

	id := strings.TrimSpace(stdout.String())
	assert.FileExists(t, filepath.Join(configured, id, "experiment.jrnx"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"not found", fmt.Errorf("x: %w", types.ErrNotFound), exitUserError},
		{"usage", fmt.Errorf("%w: bad", errUsage), exitUserError},
		{"locked", types.ErrLocked, exitUserError},
		{"write failed", types.ErrWriteFailed, exitSysError},
		{"unavailable", fmt.Errorf("id: %w", types.ErrUnavailable), exitSysError},
		{"permission", os.ErrPermission, exitSysError},
		{"other", errors.New("unknown"), exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
