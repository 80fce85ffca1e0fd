package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neox5/chainbox/internal/config"
	"github.com/neox5/chainbox/internal/metric"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/neox5/chainbox"

// OTELExporter pushes store readings to an OTLP collector.
type OTELExporter struct {
	config        *config.OTELExportConfig
	meterProvider *sdkmetric.MeterProvider
	registration  otelmetric.Registration
}

// NewOTELExporter creates a new OTEL exporter. It must be created after
// all adapters have registered their keys.
func NewOTELExporter(cfg *config.OTELExportConfig, store *metric.Store) (*OTELExporter, error) {
	res, err := createOTELResource(cfg.Resource)
	if err != nil {
		return nil, err
	}

	meterProvider, err := createMeterProvider(cfg, res)
	if err != nil {
		return nil, err
	}

	reg, err := registerOTELInstruments(meterProvider.Meter(meterName), store)
	if err != nil {
		_ = meterProvider.Shutdown(context.Background())
		return nil, err
	}

	return &OTELExporter{
		config:        cfg,
		meterProvider: meterProvider,
		registration:  reg,
	}, nil
}

// Start blocks until ctx is cancelled; the periodic reader pushes in the
// background.
func (e *OTELExporter) Start(ctx context.Context) error {
	slog.Info("starting otel exporter",
		"transport", e.config.Transport,
		"endpoint", e.config.Endpoint(),
		"push_interval", e.config.Interval,
	)

	<-ctx.Done()
	return e.Stop()
}

// Stop flushes pending data and shuts the meter provider down.
func (e *OTELExporter) Stop() error {
	slog.Info("shutting down otel exporter")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.registration.Unregister(); err != nil {
		slog.Warn("failed to unregister otel callback", "error", err)
	}
	if err := e.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel shutdown: %w", err)
	}
	return nil
}
