// Package pebblekv implements the "Variant B" KV backend: an embedded
// log-structured engine (github.com/cockroachdb/pebble) whose native
// Checkpoint facility hard-links SSTs into the destination directory,
// giving SaveCopy the near-constant cost the kv.Backend contract
// requires. Opened with validation of ingested sstables, a large block
// cache and write buffer, as called for by apps whose working set
// outgrows memfs.
package pebblekv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/rs/zerolog"

	"github.com/cuemby/statekeep/pkg/errs"
	"github.com/cuemby/statekeep/pkg/kv"
	"github.com/cuemby/statekeep/pkg/metrics"
)

const (
	// blockCacheSize is kept modest since most app working sets never
	// approach it; the cache is shared process-wide across backend
	// instances via Options.Cache.
	blockCacheSize = 8 << 30 // 8 GiB
	memTableSize   = 256 << 20
	statsInterval  = 30 * time.Second
)

var sharedCache = pebble.NewCache(blockCacheSize)

// Backend wraps a single Pebble instance rooted at one app's
// checkpoint or HEAD directory.
type Backend struct {
	db   *pebble.DB
	path string
	done chan struct{}
	log  zerolog.Logger

	prevCompactions int64
	prevFlushes     int64
}

var _ kv.Backend = (*Backend)(nil)

// Open creates the database at path if missing and starts the
// statistics poller.
func Open(path string) (*Backend, error) {
	return OpenWithLogger(path, zerolog.Nop())
}

// OpenWithLogger is like Open but attaches log to the corruption
// event listener and the statistics poller.
func OpenWithLogger(path string, log zerolog.Logger) (*Backend, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, kv.WrapIOErr("pebblekv.Open", err)
	}

	opts := &pebble.Options{
		Cache:        sharedCache,
		MemTableSize: memTableSize,
	}
	opts.EnsureDefaults()
	// ValidateOnIngest schedules a validation of every sstable after it
	// is ingested. Reads and flush/compaction outputs get no validation
	// beyond pebble's defaults.
	opts.Experimental.ValidateOnIngest = true
	el := pebble.EventListener{
		BackgroundError: func(err error) {
			log.Error().Err(err).Str("path", path).Msg("pebble background error")
		},
	}
	opts.EventListener = &el

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, kv.WrapDBErr("pebblekv.Open", err)
	}

	b := &Backend{db: db, path: path, done: make(chan struct{}), log: log}
	go b.pollStatistics()
	return b, nil
}

// Destroy removes everything under path, tolerating its non-existence.
// Pebble must not be open on path when this is called.
func Destroy(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return kv.WrapIOErr("pebblekv.Destroy", err)
	}
	return nil
}

func (b *Backend) GetOne(_ context.Context, key string) ([]byte, error) {
	v, closer, err := b.db.Get([]byte(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, errs.NotFoundf("pebblekv.GetOne", "key %q not found", key)
		}
		return nil, kv.WrapDBErr("pebblekv.GetOne", err)
	}
	defer closer.Close()

	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (b *Backend) Get(_ context.Context, keys []string) ([]kv.KeyValue, error) {
	out := make([]kv.KeyValue, 0, len(keys))
	for _, key := range keys {
		v, closer, err := b.db.Get([]byte(key))
		if err != nil {
			if err == pebble.ErrNotFound {
				continue
			}
			return nil, kv.WrapDBErr("pebblekv.Get", err)
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		closer.Close()
		out = append(out, kv.KeyValue{Key: key, Value: cp})
	}
	return out, nil
}

func (b *Backend) Write(_ context.Context, batch []kv.KeyValue) error {
	wb := b.db.NewBatch()
	defer wb.Close()

	for _, kvp := range batch {
		if err := wb.Set([]byte(kvp.Key), kvp.Value, nil); err != nil {
			return kv.WrapDBErr("pebblekv.Write", err)
		}
	}
	if err := b.db.Apply(wb, pebble.Sync); err != nil {
		return kv.WrapDBErr("pebblekv.Write", err)
	}
	return nil
}

// SaveCopy invokes Pebble's native checkpoint: SSTs are hard-linked
// into dest, the WAL and MANIFEST are copied. Near-constant cost
// regardless of the store's size.
func (b *Backend) SaveCopy(_ context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return kv.WrapIOErr("pebblekv.SaveCopy", err)
	}
	if err := b.db.Checkpoint(dest); err != nil {
		return kv.WrapDBErr("pebblekv.SaveCopy", err)
	}
	return nil
}

func (b *Backend) Close() error {
	close(b.done)
	return b.db.Close()
}

// pollStatistics dumps pebble.Metrics() to <path>/statistics roughly
// every 30s until Close fires the done channel. Best-effort: a write
// failure is logged, not propagated, since this is purely diagnostic.
func (b *Backend) pollStatistics() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.dumpStatistics()
		case <-b.done:
			return
		}
	}
}

func (b *Backend) dumpStatistics() {
	m := b.db.Metrics()
	var numSSTables uint64
	for _, lm := range m.Levels {
		numSSTables += uint64(lm.NumFiles)
	}
	data, err := json.MarshalIndent(statisticsSnapshot{
		CompactionCount: m.Compact.Count,
		FlushCount:      m.Flush.Count,
		MemTableSize:    m.MemTable.Size,
		NumSSTables:     numSSTables,
		CacheSize:       m.BlockCache.Size,
		Timestamp:       time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		b.log.Warn().Err(err).Msg("marshal pebble statistics")
		return
	}
	if err := os.WriteFile(filepath.Join(b.path, "statistics"), data, 0o644); err != nil {
		b.log.Warn().Err(err).Msg("write pebble statistics")
	}

	metrics.PebbleCacheBytes.Set(float64(m.BlockCache.Size))
	metrics.PebbleMemTableBytes.Set(float64(m.MemTable.Size))
	metrics.PebbleSSTables.Set(float64(numSSTables))

	if delta := m.Compact.Count - b.prevCompactions; delta > 0 {
		metrics.PebbleCompactionsTotal.Add(float64(delta))
	}
	b.prevCompactions = m.Compact.Count

	if delta := m.Flush.Count - b.prevFlushes; delta > 0 {
		metrics.PebbleFlushesTotal.Add(float64(delta))
	}
	b.prevFlushes = m.Flush.Count
}

type statisticsSnapshot struct {
	CompactionCount int64     `json:"compaction_count"`
	FlushCount      int64     `json:"flush_count"`
	MemTableSize    uint64    `json:"mem_table_size"`
	NumSSTables     uint64    `json:"num_sstables"`
	CacheSize       int64     `json:"cache_size"`
	Timestamp       time.Time `json:"timestamp"`
}

// DefaultFS is pebble's default OS-backed filesystem. Nothing in this
// package reads it: Open always uses pebble's own default, so
// reassigning DefaultFS does not change where a store is kept.
var DefaultFS = vfs.Default
