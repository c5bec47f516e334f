// Package memfs implements the "Variant A" KV backend: every value is
// mirrored in an in-memory map, loaded from one file per key under
// path/ at open, written to that file by Write, and written out the
// same way to another directory by SaveCopy. It is the
// default backend — intended for the small working sets typical of a
// single app's state.
package memfs

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/statekeep/pkg/errs"
	"github.com/cuemby/statekeep/pkg/kv"
)

// Backend is the memfs implementation of kv.Backend.
type Backend struct {
	mu     sync.RWMutex
	path   string
	values map[string][]byte
}

var _ kv.Backend = (*Backend)(nil)

// Open creates path if it does not exist (an empty store) and loads
// every regular file directly under it as a key/value pair — the file
// name is the key, its bytes are the value.
func Open(path string) (*Backend, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, kv.WrapIOErr("memfs.Open", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, kv.WrapIOErr("memfs.Open", err)
	}

	values := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, kv.WrapIOErr("memfs.Open", err)
		}
		values[e.Name()] = data
	}

	return &Backend{path: path, values: values}, nil
}

// Destroy removes path and everything under it, tolerating its
// non-existence.
func Destroy(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return kv.WrapIOErr("memfs.Destroy", err)
	}
	return nil
}

func (b *Backend) GetOne(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.values[key]
	if !ok {
		return nil, errs.NotFoundf("memfs.GetOne", "key %q not found", key)
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (b *Backend) Get(_ context.Context, keys []string) ([]kv.KeyValue, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]kv.KeyValue, 0, len(keys))
	for _, k := range keys {
		v, ok := b.values[k]
		if !ok {
			continue
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		out = append(out, kv.KeyValue{Key: k, Value: cp})
	}
	return out, nil
}

// Write stores each pair in the in-memory map and as a file under the
// backend's path, one pair after another. A crash part-way through a
// batch can leave only some of its pairs on disk.
func (b *Backend) Write(_ context.Context, batch []kv.KeyValue) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, kvp := range batch {
		cp := make([]byte, len(kvp.Value))
		copy(cp, kvp.Value)
		if err := os.WriteFile(filepath.Join(b.path, kvp.Key), cp, 0o644); err != nil {
			return kv.WrapIOErr("memfs.Write", err)
		}
		b.values[kvp.Key] = cp
	}
	return nil
}

// SaveCopy writes every key as a file under path, creating path if
// needed. This is O(n) in the number of keys, not truly constant —
// the honest cost of a "cheap" copy for a backend with no
// copy-on-write primitive of its own. It is still cheap in practice
// because memfs is reserved for small working sets (see package doc).
func (b *Backend) SaveCopy(_ context.Context, path string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := os.MkdirAll(path, 0o755); err != nil {
		return kv.WrapIOErr("memfs.SaveCopy", err)
	}
	for key, val := range b.values {
		if err := os.WriteFile(filepath.Join(path, key), val, 0o644); err != nil {
			return kv.WrapIOErr("memfs.SaveCopy", err)
		}
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}
