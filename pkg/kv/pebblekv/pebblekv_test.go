package pebblekv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/statekeep/pkg/errs"
	"github.com/cuemby/statekeep/pkg/kv"
)

func open(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestWriteThenGetOne(t *testing.T) {
	b := open(t)

	require.NoError(t, b.Write(context.Background(), []kv.KeyValue{{Key: "a", Value: []byte("1")}}))

	v, err := b.GetOne(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func TestGetOneMissingIsNotFound(t *testing.T) {
	b := open(t)

	_, err := b.GetOne(context.Background(), "missing")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestGetOmitsMissingKeys(t *testing.T) {
	b := open(t)
	require.NoError(t, b.Write(context.Background(), []kv.KeyValue{{Key: "a", Value: []byte("1")}}))

	values, err := b.Get(context.Background(), []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "a", values[0].Key)
}

func TestSaveCopyCheckpointIsIndependentlyReadable(t *testing.T) {
	b := open(t)
	require.NoError(t, b.Write(context.Background(), []kv.KeyValue{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
	}))

	dest := filepath.Join(t.TempDir(), "checkpoint")
	require.NoError(t, b.SaveCopy(context.Background(), dest))

	reopened, err := Open(dest)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.GetOne(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	require.NoError(t, b.Write(context.Background(), []kv.KeyValue{{Key: "a", Value: []byte("changed")}}))
	v, err = reopened.GetOne(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v, "checkpoint must not observe writes made after it was taken")
}

func TestDestroyTolerance(t *testing.T) {
	assert.NoError(t, Destroy(filepath.Join(t.TempDir(), "never-opened")))
}

func TestCloseStopsStatisticsPoller(t *testing.T) {
	b, err := Open(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	select {
	case <-b.done:
	case <-time.After(time.Second):
		t.Fatal("done channel not closed after Close")
	}
}
