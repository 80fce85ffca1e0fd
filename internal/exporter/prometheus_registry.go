package exporter

import (
	"github.com/neox5/chainbox/internal/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// createPrometheusRegistry creates a registry exposing the store.
func createPrometheusRegistry(store *metric.Store) *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(NewCollector(store))
	return promRegistry
}
