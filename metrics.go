// Prometheus wiring (SPEC_FULL.md's domain stack). Registration is
// optional: a Collector initialized with a nil Config.Registerer
// simply never touches this file's types.
package qcgc

import "github.com/prometheus/client_golang/prometheus"

type metricsSet struct {
	grayTotal             prometheus.Gauge
	freeCells             prometheus.Gauge
	largestFreeBlock      prometheus.Gauge
	bytesSinceCollection  prometheus.Gauge
	bytesSinceIncMark     prometheus.Gauge
	collectionsCompleted  prometheus.Counter
	incMarkSlicesComplete prometheus.Counter
}

func newMetricsSet(reg prometheus.Registerer) *metricsSet {
	if reg == nil {
		return nil
	}
	m := &metricsSet{
		grayTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qcgc", Name: "gray_total",
			Help: "Combined size of all gray work-lists.",
		}),
		freeCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qcgc", Name: "free_cells",
			Help: "Free cells observed at the end of the last sweep.",
		}),
		largestFreeBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qcgc", Name: "largest_free_block",
			Help: "Largest contiguous free run observed at the end of the last sweep.",
		}),
		bytesSinceCollection: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qcgc", Name: "bytes_since_collection",
			Help: "Bytes allocated since the last full collection.",
		}),
		bytesSinceIncMark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qcgc", Name: "bytes_since_incmark",
			Help: "Bytes allocated since the last incremental mark slice.",
		}),
		collectionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qcgc", Name: "collections_completed_total",
			Help: "Full collections completed.",
		}),
		incMarkSlicesComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qcgc", Name: "incmark_slices_completed_total",
			Help: "Incremental mark slices completed.",
		}),
	}
	reg.MustRegister(
		m.grayTotal, m.freeCells, m.largestFreeBlock,
		m.bytesSinceCollection, m.bytesSinceIncMark,
		m.collectionsCompleted, m.incMarkSlicesComplete,
	)
	return m
}

func (c *Collector) reportMetrics() {
	if c.metrics == nil {
		return
	}
	c.metrics.grayTotal.Set(float64(c.grayTotal))
	c.metrics.freeCells.Set(float64(c.freeCells))
	c.metrics.largestFreeBlock.Set(float64(c.largestFreeBlock))
	c.metrics.bytesSinceCollection.Set(float64(c.bytesSinceCollection))
	c.metrics.bytesSinceIncMark.Set(float64(c.bytesSinceIncMark))
}
