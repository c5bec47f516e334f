package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/statekeep/pkg/app"
	"github.com/cuemby/statekeep/pkg/kv"
	"github.com/cuemby/statekeep/pkg/kv/memfs"
	"github.com/cuemby/statekeep/pkg/registry"
)

func TestCollectorStartStopUpdatesGauges(t *testing.T) {
	reg, err := registry.New(t.TempDir(), app.Backends{
		Open:    func(path string) (kv.Backend, error) { return memfs.Open(path) },
		Destroy: memfs.Destroy,
	}, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, reg.InitApp(ctx, "alpha"))
	require.NoError(t, reg.WithApp(ctx, "alpha", func(e *app.Engine) error {
		return e.Set(ctx, []kv.KeyValue{{Key: "k", Value: []byte("v")}})
	}))

	c := NewCollector(reg)
	c.collect()

	assert.Equal(t, float64(1), testutil.ToFloat64(AppsLoaded))
	assert.Equal(t, float64(1), testutil.ToFloat64(ModificationsTotal.WithLabelValues("alpha")))

	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Stop()
}
