// Package app implements the per-app state engine: HEAD, the ordered
// checkpoint chain, and the operations that mutate them — get/set,
// create_checkpoint, revert, cleanup, reset, and snapshot upload —
// plus the load-time consistency repair that reconciles the manifest
// with whatever actually exists on disk.
package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/cuemby/statekeep/pkg/errs"
	"github.com/cuemby/statekeep/pkg/kv"
	"github.com/cuemby/statekeep/pkg/retention"
	"github.com/cuemby/statekeep/pkg/uploader"
)

const (
	headDirName        = "HEAD"
	checkpointsDirName = "checkpoints"
)

// Backends bundles the Open/Destroy pair for whichever kv.Backend
// implementation the process was started with (memfs or pebblekv).
// An Engine never chooses its own backend — the registry resolves it
// once at startup and hands every Engine the same pair.
type Backends struct {
	Open    kv.Opener
	Destroy kv.Destroyer
}

// Engine owns one app's directory tree: HEAD/, checkpoints/<id>/, and
// manifest.json. It is not internally synchronized — callers (the
// tenant registry) are responsible for serializing access to a single
// Engine.
type Engine struct {
	root     string
	backends Backends
	log      zerolog.Logger

	head     kv.Backend
	manifest Manifest

	// modifications is the non-persistent monotonic counter bumped on
	// every successful mutating operation. It resets to zero whenever
	// the process restarts, which is why etags embed a run id.
	modifications int64

	// decayRemovedTotal counts checkpoints dropped by the retention
	// policy since this Engine was constructed. Polled by the metrics
	// collector rather than reported directly, since pkg/metrics
	// already imports this package.
	decayRemovedTotal int64
}

// New creates root/checkpoints/ and falls through to Load.
func New(root string, backends Backends, log zerolog.Logger) (*Engine, error) {
	if err := os.MkdirAll(filepath.Join(root, checkpointsDirName), 0o755); err != nil {
		return nil, errs.New(errs.IoError, "app.New", err)
	}
	return Load(root, backends, log)
}

// Load opens an existing app directory, running consistency repair
// before returning. It fails with errs.NotFound if root is not a
// directory.
func Load(root string, backends Backends, log zerolog.Logger) (*Engine, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errs.NotFoundf("app.Load", "app root %q does not exist", root)
	}

	manifest, err := loadManifest(root)
	if err != nil {
		return nil, err
	}

	head, err := backends.Open(filepath.Join(root, headDirName))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		root:     root,
		backends: backends,
		log:      log,
		head:     head,
		manifest: manifest,
	}

	if err := e.repair(); err != nil {
		head.Close()
		return nil, err
	}

	return e, nil
}

// repair reconciles the manifest with what is actually on disk: every
// checkpoint directory not in the manifest is orphaned and removed;
// manifest entries that no longer have a backing directory are dropped
// and the manifest is rewritten. Best-effort — a directory that fails
// to remove is logged and the repair continues, favoring availability
// over strictness.
func (e *Engine) repair() error {
	checkpointsDir := filepath.Join(e.root, checkpointsDirName)

	entries, err := os.ReadDir(checkpointsDir)
	if err != nil {
		return errs.New(errs.IoError, "app.repair", err)
	}

	existing := make(map[string]bool, len(entries))
	for _, ent := range entries {
		if ent.IsDir() {
			existing[ent.Name()] = true
		}
	}

	recorded := make(map[string]bool, len(e.manifest.Checkpoints))
	for _, cp := range e.manifest.Checkpoints {
		recorded[cp.ID] = true
	}

	for name := range existing {
		if recorded[name] {
			continue
		}
		path := filepath.Join(checkpointsDir, name)
		if err := os.RemoveAll(path); err != nil {
			e.log.Warn().Err(err).Str("path", path).Msg("could not remove orphaned checkpoint directory during repair")
		}
	}

	kept := e.manifest.Checkpoints[:0:0]
	dropped := false
	for _, cp := range e.manifest.Checkpoints {
		if existing[cp.ID] {
			kept = append(kept, cp)
		} else {
			dropped = true
		}
	}
	if dropped {
		e.manifest.Checkpoints = kept
		if err := persist(e.root, e.manifest); err != nil {
			return err
		}
	}

	return nil
}

// ModificationsNumber returns the current value of the per-process
// mutation counter.
func (e *Engine) ModificationsNumber() int64 {
	return atomic.LoadInt64(&e.modifications)
}

func (e *Engine) bump() {
	atomic.AddInt64(&e.modifications, 1)
}

// Get delegates to HEAD; the result is exactly the keys present in
// HEAD — there is no fall-through read into any checkpoint.
func (e *Engine) Get(ctx context.Context, keys []string) ([]kv.KeyValue, error) {
	return e.head.Get(ctx, keys)
}

// Set writes batch into HEAD and bumps the modification counter.
func (e *Engine) Set(ctx context.Context, batch []kv.KeyValue) error {
	if err := e.head.Write(ctx, batch); err != nil {
		return err
	}
	e.bump()
	return nil
}

// Checkpoints returns a clone of the manifest's checkpoint list.
func (e *Engine) Checkpoints() []Checkpoint {
	return e.manifest.clone()
}

// CreateCheckpoint takes a cheap snapshot of HEAD, assigns it the next
// id under the exponential-decay retention policy, persists the
// updated manifest, and removes whatever checkpoints retention decided
// to drop. Returns the new checkpoint's id.
func (e *Engine) CreateCheckpoint(ctx context.Context, payload string) (string, error) {
	ids, err := e.sortedIDs()
	if err != nil {
		return "", err
	}

	var keptIDs, removedIDs []int64
	if len(ids) == 0 {
		keptIDs, removedIDs = []int64{0}, nil
	} else {
		keptIDs, removedIDs = retention.Extend(ids)
	}
	newID := keptIDs[len(keptIDs)-1]
	newIDStr := idString(newID)

	cpPath := filepath.Join(e.root, checkpointsDirName, newIDStr)
	if err := e.head.SaveCopy(ctx, cpPath); err != nil {
		return "", err
	}

	byID := make(map[string]Checkpoint, len(e.manifest.Checkpoints)+1)
	for _, cp := range e.manifest.Checkpoints {
		byID[cp.ID] = cp
	}
	byID[newIDStr] = Checkpoint{ID: newIDStr, Payload: payload}

	newCheckpoints := make([]Checkpoint, 0, len(keptIDs))
	for _, id := range keptIDs {
		s := idString(id)
		if cp, ok := byID[s]; ok {
			newCheckpoints = append(newCheckpoints, cp)
		}
	}
	e.manifest.Checkpoints = newCheckpoints

	if err := persist(e.root, e.manifest); err != nil {
		return "", err
	}

	for _, id := range removedIDs {
		path := filepath.Join(e.root, checkpointsDirName, idString(id))
		if err := os.RemoveAll(path); err != nil {
			return "", errs.New(errs.IoError, "app.CreateCheckpoint", err)
		}
	}
	e.decayRemovedTotal += int64(len(removedIDs))

	e.bump()
	return newIDStr, nil
}

// DecayRemovedCount returns the number of checkpoints this Engine has
// dropped via the retention policy since it was constructed.
func (e *Engine) DecayRemovedCount() int64 {
	return e.decayRemovedTotal
}

// Revert resets HEAD to the contents of checkpoint id and drops every
// checkpoint strictly younger than it.
func (e *Engine) Revert(ctx context.Context, id string) error {
	idx, err := e.indexOf(id)
	if err != nil {
		return err
	}

	cpPath := filepath.Join(e.root, checkpointsDirName, id)
	headPath := filepath.Join(e.root, headDirName)

	if err := e.resetHeadTo(ctx, cpPath, headPath); err != nil {
		return err
	}

	toDrop := e.manifest.Checkpoints[idx+1:]
	e.manifest.Checkpoints = append([]Checkpoint{}, e.manifest.Checkpoints[:idx+1]...)

	if err := persist(e.root, e.manifest); err != nil {
		return err
	}

	for _, cp := range toDrop {
		path := filepath.Join(e.root, checkpointsDirName, cp.ID)
		if err := os.RemoveAll(path); err != nil {
			return errs.New(errs.IoError, "app.Revert", err)
		}
	}

	e.bump()
	return nil
}

// resetHeadTo closes HEAD, destroys the directory at headPath, opens
// the checkpoint at cpPath with the engine's normal Opener just long
// enough to SaveCopy it back to headPath, then reopens HEAD.
func (e *Engine) resetHeadTo(ctx context.Context, cpPath, headPath string) error {
	if err := e.head.Close(); err != nil {
		return errs.New(errs.IoError, "app.resetHeadTo", err)
	}
	if err := e.backends.Destroy(headPath); err != nil {
		return err
	}

	cp, err := e.backends.Open(cpPath)
	if err != nil {
		return err
	}
	err = cp.SaveCopy(ctx, headPath)
	closeErr := cp.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return errs.New(errs.IoError, "app.resetHeadTo", closeErr)
	}

	head, err := e.backends.Open(headPath)
	if err != nil {
		return err
	}
	e.head = head
	return nil
}

// Cleanup drops every checkpoint strictly older than untilID (untilID
// itself is kept).
func (e *Engine) Cleanup(_ context.Context, untilID string) error {
	idx, err := e.indexOf(untilID)
	if err != nil {
		return err
	}

	toDrop := append([]Checkpoint{}, e.manifest.Checkpoints[:idx]...)
	e.manifest.Checkpoints = append([]Checkpoint{}, e.manifest.Checkpoints[idx:]...)

	if err := persist(e.root, e.manifest); err != nil {
		return err
	}

	for _, cp := range toDrop {
		path := filepath.Join(e.root, checkpointsDirName, cp.ID)
		if err := os.RemoveAll(path); err != nil {
			return errs.New(errs.IoError, "app.Cleanup", err)
		}
	}

	e.bump()
	return nil
}

// Reset empties HEAD, leaving the checkpoint chain untouched.
func (e *Engine) Reset(_ context.Context) error {
	headPath := filepath.Join(e.root, headDirName)

	if err := e.head.Close(); err != nil {
		return errs.New(errs.IoError, "app.Reset", err)
	}
	if err := e.backends.Destroy(headPath); err != nil {
		return err
	}
	head, err := e.backends.Open(headPath)
	if err != nil {
		return err
	}
	e.head = head

	e.bump()
	return nil
}

// StoreSnapshot uploads the youngest checkpoint's directory tree plus
// a single-entry manifest to remotePrefix. Requires at least one
// checkpoint to exist.
func (e *Engine) StoreSnapshot(ctx context.Context, up uploader.Backend, remotePrefix string) error {
	if len(e.manifest.Checkpoints) == 0 {
		return errs.NotFoundf("app.StoreSnapshot", "app has no checkpoints to snapshot")
	}
	cp := e.manifest.Checkpoints[len(e.manifest.Checkpoints)-1]

	localDir := filepath.Join(e.root, checkpointsDirName, cp.ID)
	remoteDir := filepath.Join(remotePrefix, checkpointsDirName, cp.ID)
	if err := up.UploadFolder(ctx, localDir, remoteDir); err != nil {
		return err
	}

	trimmed := Manifest{Version: manifestVersion, Checkpoints: []Checkpoint{cp}}
	data, err := jsonMarshal(trimmed)
	if err != nil {
		return errs.New(errs.IoError, "app.StoreSnapshot", err)
	}

	remoteManifestPath := filepath.Join(remotePrefix, manifestFileName)
	if err := up.UploadBuffer(ctx, data, remoteManifestPath); err != nil {
		return err
	}
	return nil
}

// Close releases HEAD's resources. The checkpoint chain holds no open
// handles between operations.
func (e *Engine) Close() error {
	return e.head.Close()
}

func (e *Engine) sortedIDs() ([]int64, error) {
	ids := make([]int64, 0, len(e.manifest.Checkpoints))
	for _, cp := range e.manifest.Checkpoints {
		id, err := cp.IntID()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (e *Engine) indexOf(id string) (int, error) {
	for i, cp := range e.manifest.Checkpoints {
		if cp.ID == id {
			return i, nil
		}
	}
	return 0, errs.NotFoundf("app.indexOf", "checkpoint %q not found", id)
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func jsonMarshal(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
