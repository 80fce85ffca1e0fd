// Package app wires configuration, adapters, the poller and the exporters
// into a runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neox5/chainbox/internal/adapter"
	"github.com/neox5/chainbox/internal/config"
	"github.com/neox5/chainbox/internal/exporter"
	"github.com/neox5/chainbox/internal/metric"
	"github.com/neox5/chainbox/internal/monitor"
	"github.com/neox5/chainbox/internal/poller"
	"github.com/neox5/chainbox/internal/upstream/blockinfo"
	"golang.org/x/sync/errgroup"
)

// App holds initialized application components.
type App struct {
	Config             *config.Config
	Store              *metric.Store
	Registry           *adapter.Registry
	Poller             *poller.Poller
	Monitor            *monitor.Monitor
	PrometheusExporter *exporter.PrometheusExporter
	OTELExporter       *exporter.OTELExporter

	logger *slog.Logger
}

// Options overrides the clients used to reach upstream services.
type Options struct {
	Clients *adapter.Clients
	Logger  *slog.Logger
}

// New initializes the application from a resolved configuration.
// Sources that fail to build are logged and skipped.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clients := adapter.DefaultClients(blockinfo.DefaultTimeout)
	if opts.Clients != nil {
		clients = *opts.Clients
	}

	store := metric.NewStore()

	registry, err := adapter.BuildRegistry(ctx, cfg.EnabledSources(), store, clients, logger)
	if err != nil {
		logger.Warn("some sources were skipped", "built", registry.Len(), "error", err)
	}
	if registry.Len() == 0 {
		logger.Warn("no adapters configured")
	}

	a := &App{
		Config:   cfg,
		Store:    store,
		Registry: registry,
		logger:   logger,
	}

	var instruments *poller.Instruments
	if cfg.Export.PrometheusEnabled() {
		a.PrometheusExporter = exporter.NewPrometheusExporter(
			cfg.Export.Prometheus.Port,
			cfg.Export.Prometheus.Path,
			store,
			cfg.Settings.InternalMetrics,
		)

		if cfg.Settings.InternalMetrics {
			instruments, err = poller.NewInstruments(a.PrometheusExporter.Registerer())
			if err != nil {
				_ = registry.Close()
				return nil, fmt.Errorf("failed to create poller instruments: %w", err)
			}
		}
	}

	// Keys are fixed once every adapter is built.
	if cfg.Export.OTELEnabled() {
		a.OTELExporter, err = exporter.NewOTELExporter(cfg.Export.OTEL, store)
		if err != nil {
			_ = registry.Close()
			return nil, fmt.Errorf("failed to create OTEL exporter: %w", err)
		}
	}

	a.Poller, err = poller.New(registry.Adapters(), poller.Options{
		Interval:    cfg.Interval,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
		Instruments: instruments,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create poller: %w", err)
	}

	if cfg.Settings.MonitorInterval > 0 {
		a.Monitor, err = monitor.New(cfg.Settings.MonitorInterval, a.Poller, logger)
		if err != nil {
			// Resource logging is optional.
			logger.Warn("resource monitor disabled", "error", err)
		}
	}

	return a, nil
}

// Run starts the poller, the monitor and every enabled exporter, and blocks
// until ctx is cancelled or an exporter fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Poller.Run(ctx)
		return nil
	})

	if a.Monitor != nil {
		a.Monitor.Run(ctx)
		g.Go(func() error {
			a.Monitor.Wait()
			return nil
		})
	}

	if a.PrometheusExporter != nil {
		g.Go(func() error {
			if err := a.PrometheusExporter.Start(ctx); err != nil {
				return fmt.Errorf("prometheus exporter: %w", err)
			}
			return nil
		})
	}

	if a.OTELExporter != nil {
		g.Go(func() error {
			if err := a.OTELExporter.Start(ctx); err != nil {
				return fmt.Errorf("otel exporter: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if cerr := a.Registry.Close(); cerr != nil {
		a.logger.Warn("failed to close adapters", "error", cerr)
	}
	return err
}

// Close releases upstream connections and stops the OTEL meter provider
// without running the application.
func (a *App) Close() error {
	var errs []error
	if a.OTELExporter != nil {
		errs = append(errs, a.OTELExporter.Stop())
	}
	errs = append(errs, a.Registry.Close())
	return errors.Join(errs...)
}
