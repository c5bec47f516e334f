package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/statekeep/pkg/kv"
	"github.com/cuemby/statekeep/pkg/kv/memfs"
)

func memfsBackends() Backends {
	return Backends{
		Open: func(path string) (kv.Backend, error) {
			return memfs.Open(path)
		},
		Destroy: memfs.Destroy,
	}
}

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	e, err := New(root, memfsBackends(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, root
}

func getMap(t *testing.T, e *Engine, keys ...string) map[string]string {
	t.Helper()
	got, err := e.Get(context.Background(), keys)
	require.NoError(t, err)
	out := make(map[string]string, len(got))
	for _, kvp := range got {
		out[kvp.Key] = string(kvp.Value)
	}
	return out
}

func setMap(t *testing.T, e *Engine, pairs map[string]string) {
	t.Helper()
	batch := make([]kv.KeyValue, 0, len(pairs))
	for k, v := range pairs {
		batch = append(batch, kv.KeyValue{Key: k, Value: []byte(v)})
	}
	require.NoError(t, e.Set(context.Background(), batch))
}

// TestScenarioS1 exercises a full checkpoint/revert/cleanup sequence
// end to end: create, revert, mutate, checkpoint again, clean up, and
// revert to each remaining checkpoint in turn.
func TestScenarioS1(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	id, err := e.CreateCheckpoint(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "0", id)

	require.NoError(t, e.Revert(ctx, "0"))
	assert.Empty(t, getMap(t, e, "a", "b", "c"))

	setMap(t, e, map[string]string{"a": "0", "b": "0"})
	setMap(t, e, map[string]string{"a": "1"})

	got := getMap(t, e, "a", "b", "c")
	assert.Equal(t, map[string]string{"a": "1", "b": "0"}, got)

	id, err = e.CreateCheckpoint(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	got = getMap(t, e, "a", "b", "c")
	assert.Equal(t, map[string]string{"a": "1", "b": "0"}, got)

	setMap(t, e, map[string]string{"a": "2", "c": "2"})

	require.NoError(t, e.Cleanup(ctx, "1"))
	assert.Equal(t, []Checkpoint{{ID: "1", Payload: "1"}}, e.Checkpoints())

	err = e.Revert(ctx, "0")
	assert.Error(t, err)

	got = getMap(t, e, "a", "b", "c")
	assert.Equal(t, map[string]string{"a": "2", "b": "0", "c": "2"}, got)

	require.NoError(t, e.Revert(ctx, "1"))
	got = getMap(t, e, "a", "b", "c")
	assert.Equal(t, map[string]string{"a": "1", "b": "0"}, got)

	assert.Equal(t, int64(8), e.ModificationsNumber())
}

func TestCreateCheckpointRetentionVector(t *testing.T) {
	ctx := context.Background()
	e, root := newTestEngine(t)

	for i := 0; i < 16; i++ {
		_, err := e.CreateCheckpoint(ctx, "p")
		require.NoError(t, err)
	}

	got := make([]string, 0, len(e.Checkpoints()))
	for _, cp := range e.Checkpoints() {
		got = append(got, cp.ID)
	}
	assert.Equal(t, []string{"0", "8", "12", "14", "15"}, got)

	entries, err := os.ReadDir(filepath.Join(root, checkpointsDirName))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"0", "8", "12", "14", "15"}, names)

	assert.Equal(t, int64(11), e.DecayRemovedCount())
}

func TestResetClearsHead(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	setMap(t, e, map[string]string{"a": "1"})
	require.NoError(t, e.Reset(ctx))
	assert.Empty(t, getMap(t, e, "a"))
}

// TestConsistencyRepair simulates a crash between directory removal
// and manifest persist: it leaves an orphaned manifest entry, which
// load-time repair must drop.
func TestConsistencyRepair(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	e, err := New(root, memfsBackends(), zerolog.Nop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := e.CreateCheckpoint(ctx, "p")
		require.NoError(t, err)
	}
	require.NoError(t, e.Close())

	require.NoError(t, os.RemoveAll(filepath.Join(root, checkpointsDirName, "1")))

	e2, err := Load(root, memfsBackends(), zerolog.Nop())
	require.NoError(t, err)
	defer e2.Close()

	ids := make([]string, 0)
	for _, cp := range e2.Checkpoints() {
		ids = append(ids, cp.ID)
	}
	assert.Equal(t, []string{"0", "2"}, ids)
}

func TestConsistencyRepairOrphanDirectory(t *testing.T) {
	root := t.TempDir()
	e, err := New(root, memfsBackends(), zerolog.Nop())
	require.NoError(t, err)

	orphan := filepath.Join(root, checkpointsDirName, "99")
	require.NoError(t, os.MkdirAll(orphan, 0o755))
	require.NoError(t, e.Close())

	e2, err := Load(root, memfsBackends(), zerolog.Nop())
	require.NoError(t, err)
	defer e2.Close()

	_, statErr := os.Stat(orphan)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadMissingRootIsNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"), memfsBackends(), zerolog.Nop())
	assert.Error(t, err)
}
