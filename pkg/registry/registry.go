// Package registry implements the tenant registry: a process-wide map
// from app id to its state engine, loaded lazily on first access and
// exclusively locked per-app so that two calls against distinct apps
// proceed in parallel while two calls against the same app serialize.
// The shape mirrors a mutex-guarded lookup table generalized from a
// single registry-wide lock to one mutex per entry.
package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/statekeep/pkg/app"
	"github.com/cuemby/statekeep/pkg/errs"
)

// entry pairs an app's engine with the mutex that serializes every
// operation against it. The mutex is held for the duration of a single
// WithApp call, never across calls.
type entry struct {
	mu     sync.Mutex
	engine *app.Engine
}

// Registry is the process-wide tenant table. Root is the directory
// under which every app gets its own subdirectory, named by app id.
type Registry struct {
	root     string
	backends app.Backends
	log      zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns a Registry rooted at root. root is created if absent.
func New(root string, backends app.Backends, log zerolog.Logger) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.New(errs.IoError, "registry.New", err)
	}
	return &Registry{
		root:     root,
		backends: backends,
		log:      log,
		entries:  make(map[string]*entry),
	}, nil
}

func (r *Registry) appPath(id string) string {
	return filepath.Join(r.root, id)
}

// InitApp creates a new, empty app with the given id. It is idempotent:
// calling it again for an id that already has a live entry is a no-op
// and returns nil.
func (r *Registry) InitApp(_ context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.entries[id]; ok {
		r.mu.Unlock()
		return nil
	}
	e := &entry{}
	r.entries[id] = e
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	engine, err := app.New(r.appPath(id), r.backends, r.log.With().Str("app", id).Logger())
	if err != nil {
		r.mu.Lock()
		delete(r.entries, id)
		r.mu.Unlock()
		return err
	}
	e.engine = engine
	return nil
}

// WithApp runs fn against the engine for id, serialized against every
// other call naming the same id. On a cold miss — no live entry yet,
// but a directory exists on disk from a previous process — the engine
// is loaded before fn runs. A miss with no on-disk app is errs.NotFound.
func (r *Registry) WithApp(_ context.Context, id string, fn func(*app.Engine) error) error {
	e, err := r.getOrLoad(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.engine)
}

func (r *Registry) getOrLoad(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		return e, nil
	}

	path := r.appPath(id)
	if info, statErr := os.Stat(path); statErr != nil || !info.IsDir() {
		return nil, errs.NotFoundf("registry.WithApp", "app %q is not registered", id)
	}

	engine, err := app.Load(path, r.backends, r.log.With().Str("app", id).Logger())
	if err != nil {
		return nil, err
	}

	e = &entry{engine: engine}
	r.entries[id] = e
	return e, nil
}

// DropApp removes id's entry from the registry and deletes its
// directory tree entirely. It errors with errs.NotFound if the tree is
// absent, and with errs.IoError if it exists but cannot be stat'd.
func (r *Registry) DropApp(_ context.Context, id string) error {
	path := r.appPath(id)
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return errs.NotFoundf("registry.DropApp", "app %q is not registered", id)
		}
		return errs.New(errs.IoError, "registry.DropApp", statErr)
	}
	if !info.IsDir() {
		return errs.NotFoundf("registry.DropApp", "app %q is not registered", id)
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if ok {
		e.mu.Lock()
		if e.engine != nil {
			_ = e.engine.Close()
		}
		e.mu.Unlock()
	}

	if err := os.RemoveAll(path); err != nil {
		return errs.New(errs.IoError, "registry.DropApp", err)
	}
	return nil
}

// List returns the ids of every app with a live entry in the registry.
// Apps that exist on disk but have not yet been touched this process
// are not included — matching the "loaded lazily" contract.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Close closes every live entry's engine. Intended for process
// shutdown.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, e := range r.entries {
		e.mu.Lock()
		if e.engine != nil {
			if err := e.engine.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		e.mu.Unlock()
	}
	return firstErr
}
