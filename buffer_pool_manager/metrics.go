package buffer_pool_manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// poolMetrics counts what the buffer pool does to its frames. All counters are
// incremented under the pool latch, so they are mutually consistent.
type poolMetrics struct {
	hits         prometheus.Counter
	misses       prometheus.Counter
	evictions    prometheus.Counter
	dirtyWrites  prometheus.Counter
	flushes      prometheus.Counter
	pinnedFrames prometheus.Gauge
}

// newPoolMetrics registers the pool's collectors on the given registerer.
// A nil registerer keeps the metrics private to the pool.
func newPoolMetrics(registerer prometheus.Registerer) *poolMetrics {

	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	factory := promauto.With(registerer)

	return &poolMetrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wyvern",
			Subsystem: "buffer_pool",
			Name:      "hits_total",
			Help:      "Fetches served from a resident frame.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wyvern",
			Subsystem: "buffer_pool",
			Name:      "misses_total",
			Help:      "Fetches that had to read the page from disk.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wyvern",
			Subsystem: "buffer_pool",
			Name:      "evictions_total",
			Help:      "Frames repurposed for another page.",
		}),
		dirtyWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wyvern",
			Subsystem: "buffer_pool",
			Name:      "dirty_write_backs_total",
			Help:      "Dirty frames written back before their frame was repurposed for another page.",
		}),
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wyvern",
			Subsystem: "buffer_pool",
			Name:      "flushes_total",
			Help:      "Pages written by FlushPage or FlushAllPages.",
		}),
		pinnedFrames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wyvern",
			Subsystem: "buffer_pool",
			Name:      "pinned_frames",
			Help:      "Frames currently holding at least one pin.",
		}),
	}
}
