package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/statekeep/pkg/app"
	"github.com/cuemby/statekeep/pkg/errs"
	"github.com/cuemby/statekeep/pkg/kv"
	"github.com/cuemby/statekeep/pkg/kv/memfs"
)

func testBackends() app.Backends {
	return app.Backends{
		Open: func(path string) (kv.Backend, error) {
			return memfs.Open(path)
		},
		Destroy: memfs.Destroy,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(t.TempDir(), testBackends(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestInitAppIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	require.NoError(t, r.InitApp(ctx, "alpha"))
	require.NoError(t, r.InitApp(ctx, "alpha"))

	assert.ElementsMatch(t, []string{"alpha"}, r.List())
}

func TestWithAppUnknownIsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	err := r.WithApp(context.Background(), "missing", func(e *app.Engine) error {
		return nil
	})
	assert.Error(t, err)
}

func TestWithAppLoadsFromDiskOnColdMiss(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)
	require.NoError(t, r.InitApp(ctx, "alpha"))

	require.NoError(t, r.WithApp(ctx, "alpha", func(e *app.Engine) error {
		return e.Set(ctx, []kv.KeyValue{{Key: "k", Value: []byte("v")}})
	}))

	// Evict the live entry to force a cold-load path, the way a
	// freshly started process would encounter an existing app dir.
	r.mu.Lock()
	delete(r.entries, "alpha")
	r.mu.Unlock()

	var got []kv.KeyValue
	require.NoError(t, r.WithApp(ctx, "alpha", func(e *app.Engine) error {
		var err error
		got, err = e.Get(ctx, []string{"k"})
		return err
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "v", string(got[0].Value))
}

func TestDropAppRemovesDirectory(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)
	require.NoError(t, r.InitApp(ctx, "alpha"))
	require.NoError(t, r.DropApp(ctx, "alpha"))

	assert.Empty(t, r.List())
	err := r.WithApp(ctx, "alpha", func(e *app.Engine) error { return nil })
	assert.Error(t, err)
}

func TestDropAppOnMissingAppIsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	err := r.DropApp(context.Background(), "never-existed")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

// TestDistinctAppsRunConcurrently checks that two calls against
// distinct apps do not serialize behind one another. A call that
// blocks on "other" must not delay a call on "alpha" starting and
// finishing.
func TestDistinctAppsRunConcurrently(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)
	require.NoError(t, r.InitApp(ctx, "alpha"))
	require.NoError(t, r.InitApp(ctx, "other"))

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.WithApp(ctx, "other", func(e *app.Engine) error {
			<-release
			return nil
		})
	}()

	done := make(chan struct{})
	go func() {
		_ = r.WithApp(ctx, "alpha", func(e *app.Engine) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("call on alpha blocked behind an in-flight call on other")
	}

	close(release)
	wg.Wait()
}

// TestSameAppSerializes checks that two calls against the same app
// never run concurrently.
func TestSameAppSerializes(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)
	require.NoError(t, r.InitApp(ctx, "alpha"))

	var mu sync.Mutex
	inside := 0
	maxInside := 0
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.WithApp(ctx, "alpha", func(e *app.Engine) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
}
