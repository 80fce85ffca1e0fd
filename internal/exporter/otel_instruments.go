package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neox5/chainbox/internal/metric"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// registerOTELInstruments creates one observable gauge per store key and a
// callback that observes them from a snapshot. Keys are fixed once the
// adapters are built, so instruments are created once.
func registerOTELInstruments(meter otelmetric.Meter, store *metric.Store) (otelmetric.Registration, error) {
	gauges := make(map[string]otelmetric.Float64ObservableGauge)
	var observables []otelmetric.Observable

	for _, s := range store.Snapshot() {
		gauge, err := meter.Float64ObservableGauge(
			s.Key,
			otelmetric.WithDescription("Value of "+s.Key),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create gauge %q: %w", s.Key, err)
		}
		gauges[s.Key] = gauge
		observables = append(observables, gauge)
	}

	slog.Info("registered otel gauges", "count", len(gauges))

	reg, err := meter.RegisterCallback(
		func(ctx context.Context, observer otelmetric.Observer) error {
			slog.Debug("otel push", "metrics", len(gauges))

			for _, s := range store.Snapshot() {
				gauge, ok := gauges[s.Key]
				if !ok {
					continue
				}
				observer.ObserveFloat64(gauge, s.Value.Float64())
			}
			return nil
		},
		observables...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register callback: %w", err)
	}

	return reg, nil
}
