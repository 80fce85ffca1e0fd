package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/neox5/chainbox/internal/version"
)

const (
	DefaultPrometheusPort = 9090
	DefaultPrometheusPath = "/metrics"

	DefaultOTELPushInterval = 10 * time.Second
	DefaultOTELTransport    = "grpc"
	DefaultOTELHost         = "localhost"
	DefaultServiceName      = "chainbox"
)

// otelDefaultPorts maps each supported OTLP transport to its collector port.
var otelDefaultPorts = map[string]int{
	"grpc": 4317,
	"http": 4318,
}

// ExportConfig selects the exporters serving the store. Prometheus and OTEL
// read snapshots only and may be enabled together.
type ExportConfig struct {
	Prometheus *PrometheusExportConfig
	OTEL       *OTELExportConfig
}

// Validate fills defaults and checks every enabled exporter. With no
// export section at all the Prometheus endpoint is served on its defaults.
func (e *ExportConfig) Validate() error {
	if e.Prometheus == nil && e.OTEL == nil {
		e.Prometheus = &PrometheusExportConfig{Enabled: true}
	}

	if !e.PrometheusEnabled() && !e.OTELEnabled() {
		return errors.New("no exporter enabled")
	}

	if e.PrometheusEnabled() {
		if err := e.Prometheus.Validate(); err != nil {
			return fmt.Errorf("prometheus: %w", err)
		}
	}
	if e.OTELEnabled() {
		if err := e.OTEL.Validate(); err != nil {
			return fmt.Errorf("otel: %w", err)
		}
	}
	return nil
}

// PrometheusEnabled reports whether the pull endpoint is configured.
func (e *ExportConfig) PrometheusEnabled() bool {
	return e.Prometheus != nil && e.Prometheus.Enabled
}

// OTELEnabled reports whether OTLP push is configured.
func (e *ExportConfig) OTELEnabled() bool {
	return e.OTEL != nil && e.OTEL.Enabled
}

// PrometheusExportConfig is the scrape endpoint served by chainbox.
type PrometheusExportConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// Validate fills the default port and path and checks them.
func (c *PrometheusExportConfig) Validate() error {
	if c.Port == 0 {
		c.Port = DefaultPrometheusPort
	}
	if c.Path == "" {
		c.Path = DefaultPrometheusPath
	}

	if err := checkPort(c.Port); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path %q must start with /", c.Path)
	}
	return nil
}

// OTELExportConfig is the OTLP collector chainbox pushes to.
type OTELExportConfig struct {
	Enabled   bool
	Transport string
	Host      string
	Port      int
	Interval  time.Duration
	Resource  map[string]string
	Headers   map[string]string
}

// Validate fills transport dependent defaults and checks them.
// service.name and service.version are always present in Resource.
func (c *OTELExportConfig) Validate() error {
	if c.Transport == "" {
		c.Transport = DefaultOTELTransport
	}
	defaultPort, ok := otelDefaultPorts[c.Transport]
	if !ok {
		return fmt.Errorf("unknown transport %q, want grpc or http", c.Transport)
	}

	if c.Host == "" {
		c.Host = DefaultOTELHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if err := checkPort(c.Port); err != nil {
		return err
	}

	switch {
	case c.Interval == 0:
		c.Interval = DefaultOTELPushInterval
	case c.Interval < 0:
		return fmt.Errorf("push interval %s must be positive", c.Interval)
	}

	if c.Resource == nil {
		c.Resource = make(map[string]string)
	}
	setDefault(c.Resource, "service.name", DefaultServiceName)
	setDefault(c.Resource, "service.version", version.String())
	return nil
}

// Endpoint returns the collector address as host:port.
func (c *OTELExportConfig) Endpoint() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func checkPort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}

func setDefault(m map[string]string, key, value string) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}
