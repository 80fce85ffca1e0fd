package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/neox5/chainbox/internal/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter serves the metric store over HTTP.
type PrometheusExporter struct {
	addr         string
	path         string
	server       *http.Server
	handler      http.Handler
	promRegistry *prometheus.Registry
}

// NewPrometheusExporter creates a new Prometheus HTTP exporter.
func NewPrometheusExporter(port int, path string, store *metric.Store, internalMetricsEnabled bool) *PrometheusExporter {
	promRegistry := createPrometheusRegistry(store)
	handler := createHandler(promRegistry, internalMetricsEnabled)
	addr := fmt.Sprintf(":%d", port)

	return &PrometheusExporter{
		addr:         addr,
		path:         path,
		handler:      handler,
		promRegistry: promRegistry,
		server:       createHTTPServer(addr, path, handler),
	}
}

// Registerer returns the registry used for internal metrics.
func (e *PrometheusExporter) Registerer() prometheus.Registerer {
	return e.promRegistry
}

// Handler returns the scrape handler.
func (e *PrometheusExporter) Handler() http.Handler {
	return e.handler
}

// Start begins serving HTTP requests and blocks until ctx is cancelled.
func (e *PrometheusExporter) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		slog.Info("starting prometheus exporter", "addr", e.addr, "path", e.path)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return e.Stop()
	}
}

// Stop gracefully stops the exporter.
func (e *PrometheusExporter) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down prometheus exporter")
	return e.server.Shutdown(ctx)
}
