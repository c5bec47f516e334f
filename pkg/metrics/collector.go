package metrics

import (
	"context"
	"time"

	"github.com/cuemby/statekeep/pkg/app"
	"github.com/cuemby/statekeep/pkg/registry"
)

// Collector periodically refreshes the registry/engine gauges with a
// background goroutine gated by a ticker and a stop channel.
type Collector struct {
	registry *registry.Registry
	stopCh   chan struct{}

	lastDecayRemoved map[string]int64
}

func NewCollector(reg *registry.Registry) *Collector {
	return &Collector{
		registry:         reg,
		stopCh:           make(chan struct{}),
		lastDecayRemoved: make(map[string]int64),
	}
}

func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ids := c.registry.List()
	AppsLoaded.Set(float64(len(ids)))

	ctx := context.Background()
	for _, id := range ids {
		id := id
		_ = c.registry.WithApp(ctx, id, func(e *app.Engine) error {
			CheckpointsPerApp.WithLabelValues(id).Set(float64(len(e.Checkpoints())))
			ModificationsTotal.WithLabelValues(id).Set(float64(e.ModificationsNumber()))

			removed := e.DecayRemovedCount()
			if delta := removed - c.lastDecayRemoved[id]; delta > 0 {
				CheckpointsDecayRemovedTotal.Add(float64(delta))
			}
			c.lastDecayRemoved[id] = removed
			return nil
		})
	}
}
