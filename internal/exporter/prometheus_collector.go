package exporter

import (
	"log/slog"

	"github.com/neox5/chainbox/internal/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// collector implements prometheus.Collector over a metric store.
// It is an unchecked collector: keys are read from a store snapshot on
// every scrape, so nothing is described up front.
type collector struct {
	store *metric.Store
}

// NewCollector creates a collector that exposes every store key as a gauge.
func NewCollector(store *metric.Store) prometheus.Collector {
	return &collector{store: store}
}

// Describe sends no descriptors.
func (c *collector) Describe(chan<- *prometheus.Desc) {}

// Collect snapshots the store and sends one gauge per key.
// This is called on each Prometheus scrape.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.store.Snapshot() {
		desc := prometheus.NewDesc(s.Key, "Value of "+s.Key, nil, nil)

		m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, s.Value.Float64())
		if err != nil {
			slog.Debug("skipping metric", "key", s.Key, "error", err)
			continue
		}

		ch <- m
	}
}
