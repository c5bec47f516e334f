// Package kv defines the capability contract shared by the state
// manager's KV backends: a single-namespace key-to-bytes store with
// point/multi get, batched writes, and a cheap snapshot-to-path
// primitive used to build checkpoints. Two implementations satisfy it:
// memfs (pkg/kv/memfs) mirrors an in-memory map to one file per key,
// and pebblekv (pkg/kv/pebblekv) wraps an embedded LSM engine and uses
// its native hard-linked checkpoint facility.
package kv

import (
	"context"

	"github.com/cuemby/statekeep/pkg/errs"
)

// KeyValue is a single key/value pair flowing through Get/Write.
type KeyValue struct {
	Key   string
	Value []byte
}

// Backend is the capability every KV implementation supplies. All
// methods are synchronous; callers that want cooperative suspension
// wrap calls themselves (the façade never calls these across an await
// point other than process scheduling).
type Backend interface {
	// GetOne returns the value for key, or an errs.NotFound error.
	GetOne(ctx context.Context, key string) ([]byte, error)

	// Get returns the present (key, value) pairs for the requested
	// keys, in the order those keys first hit. Missing keys are
	// silently omitted — there is no NotFound for the batch form.
	Get(ctx context.Context, keys []string) ([]KeyValue, error)

	// Write durably commits the batch. pebblekv applies it as one
	// synced batch, so either every pair lands or none do, even across
	// a crash; memfs writes one file per pair, so a crash part-way
	// through a batch can leave only some of its pairs on disk.
	Write(ctx context.Context, batch []KeyValue) error

	// SaveCopy produces an independent store at path with contents
	// equal to this store's current contents. Implementations must
	// keep this near-constant cost (hard links, directory snapshots,
	// or equivalent copy-on-write tricks) — it runs on every
	// checkpoint and every revert.
	SaveCopy(ctx context.Context, path string) error

	// Close releases any resources (file handles, background
	// goroutines) held by this backend. It does not delete on-disk
	// data; see Destroy for that.
	Close() error
}

// Opener constructs or opens a Backend at path. Open must be
// idempotent for a path that does not yet exist: it creates an empty
// store rather than failing.
type Opener func(path string) (Backend, error)

// Destroyer removes all on-disk artifacts at path, tolerating the
// path's non-existence.
type Destroyer func(path string) error

// WrapIOErr is a small helper the backends share to attach the IoError
// kind to filesystem failures surfaced from os/* calls.
func WrapIOErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errs.New(errs.IoError, op, err)
}

// WrapDBErr attaches the DbError kind to engine-internal failures.
func WrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errs.New(errs.DbError, op, err)
}
