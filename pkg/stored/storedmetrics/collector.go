// Package storedmetrics exposes [stored.Runtime] counters as Prometheus
// metrics.
package storedmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/calvinalkan/slotarena/pkg/stored"
)

// Collector reads a runtime's Stats on every scrape.
//
// A Runtime is not safe for concurrent use, so Gather must be called from
// the goroutine that owns the runtime (the registry's internal fan-out is
// fine: Gather does not return until collection is done).
type Collector struct {
	rt *stored.Runtime

	live       *prometheus.Desc
	capacity   *prometheus.Desc
	scopes     *prometheus.Desc
	stored     *prometheus.Desc
	disposed   *prometheus.Desc
	violations *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Collector for rt. Every metric carries a "runtime"
// const label with the runtime id.
func NewCollector(rt *stored.Runtime) *Collector {
	labels := prometheus.Labels{"runtime": rt.ID().String()}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("slotarena", "", name), help, nil, labels)
	}

	return &Collector{
		rt:         rt,
		live:       desc("live_slots", "Slots currently holding a value."),
		capacity:   desc("capacity_slots", "Slot indices allocated by the arena, live or free."),
		scopes:     desc("scopes", "Scopes not yet disposed, including the root."),
		stored:     desc("stored_total", "Values stored since the runtime was created."),
		disposed:   desc("disposed_total", "Slots removed since the runtime was created."),
		violations: desc("aliasing_violations_total", "Overlapping accesses detected."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.live
	ch <- c.capacity
	ch <- c.scopes
	ch <- c.stored
	ch <- c.disposed
	ch <- c.violations
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.rt.Stats()

	ch <- prometheus.MustNewConstMetric(c.live, prometheus.GaugeValue, float64(s.Live))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.scopes, prometheus.GaugeValue, float64(s.Scopes))
	ch <- prometheus.MustNewConstMetric(c.stored, prometheus.CounterValue, float64(s.Stored))
	ch <- prometheus.MustNewConstMetric(c.disposed, prometheus.CounterValue, float64(s.Disposed))
	ch <- prometheus.MustNewConstMetric(c.violations, prometheus.CounterValue, float64(s.AliasingViolations))
}
