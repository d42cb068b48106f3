package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/basant256/respkv/internal/storage/memory"
)

// StatsSource reports keyspace statistics. Stats must be safe to call from
// the scraping goroutine.
type StatsSource interface {
	Stats() memory.Stats
}

// Collector exports keyspace statistics at scrape time.
type Collector struct {
	src StatsSource

	keys    *prometheus.Desc
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	expired *prometheus.Desc
}

// NewCollector creates a collector over src.
func NewCollector(src StatsSource) *Collector {
	return &Collector{
		src: src,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "keyspace", "keys"),
			"Number of stored keys, including expired keys not yet purged.",
			nil, nil,
		),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "keyspace", "hits_total"),
			"Reads that found a live key.",
			nil, nil,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "keyspace", "misses_total"),
			"Reads that found no live key.",
			nil, nil,
		),
		expired: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "keyspace", "expired_total"),
			"Keys purged by lazy expiry.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.hits
	ch <- c.misses
	ch <- c.expired
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(st.Keys))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(st.Expired))
}
