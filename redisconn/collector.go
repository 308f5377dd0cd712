package redisconn

import "github.com/prometheus/client_golang/prometheus"

// Collector exports Pool stats as Prometheus metrics under keel_redis_pool_*.
type Collector struct {
	pool *Pool

	size     *prometheus.Desc
	inUse    *prometheus.Desc
	idle     *prometheus.Desc
	dials    *prometheus.Desc
	discards *prometheus.Desc
}

// NewCollector creates a collector for p. Register it with a
// prometheus.Registerer.
func NewCollector(p *Pool) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("keel", "redis_pool", name), help, nil, nil)
	}
	return &Collector{
		pool:     p,
		size:     desc("size", "Maximum number of connections leased at once."),
		inUse:    desc("in_use", "Connections currently leased to callers."),
		idle:     desc("idle", "Connections waiting in the pool."),
		dials:    desc("dials_total", "Connections dialed since the pool was created."),
		discards: desc("discards_total", "Connections discarded after a failover or panic."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.inUse
	ch <- c.idle
	ch <- c.dials
	ch <- c.discards
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.dials, prometheus.CounterValue, float64(s.Dials))
	ch <- prometheus.MustNewConstMetric(c.discards, prometheus.CounterValue, float64(s.Discards))
}
