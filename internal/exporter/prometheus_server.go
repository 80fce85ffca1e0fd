package exporter

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// createHandler creates the scrape handler for a registry.
func createHandler(promRegistry *prometheus.Registry, internalMetricsEnabled bool) http.Handler {
	// Plain text exposition only, never cached.
	var handler http.Handler = promhttp.HandlerFor(
		promRegistry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: false,
		},
	)

	// Conditionally wrap with instrumentation
	if internalMetricsEnabled {
		handler = promhttp.InstrumentMetricHandler(promRegistry, handler)
		slog.Info("enabled prometheus internal metrics",
			"metrics", []string{
				"promhttp_metric_handler_requests_total",
				"promhttp_metric_handler_requests_in_flight",
			})
	}

	return loggingMiddleware(handler)
}

// createHTTPServer creates an HTTP server serving handler on path.
func createHTTPServer(addr, path string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET "+path, handler)

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

// loggingMiddleware logs scrape requests when debug logging is enabled
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("prometheus scrape", "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
