package config

import (
	"fmt"
	"sort"
	"time"
)

const (
	DefaultInterval        = 10 * time.Second
	DefaultConcurrency     = 4
	DefaultMonitorInterval = 30 * time.Second
)

// Config holds the complete application configuration.
type Config struct {
	Interval    time.Duration
	Concurrency int
	Export      ExportConfig
	Settings    SettingsConfig
	Sources     []SourceConfig // sorted by name
}

// SettingsConfig holds general application settings.
type SettingsConfig struct {
	InternalMetrics bool
	// MonitorInterval is the resource monitor period; zero disables it.
	MonitorInterval time.Duration
}

// Resolve validates raw configuration and applies defaults.
// Errors in global settings are returned; errors in a single source are
// recorded on that source and do not fail resolution.
func Resolve(raw *RawConfig) (*Config, error) {
	cfg := &Config{
		Interval:    DefaultInterval,
		Concurrency: DefaultConcurrency,
	}

	if raw.Interval.Set {
		if raw.Interval.Duration <= 0 {
			return nil, fmt.Errorf("interval must be positive")
		}
		cfg.Interval = raw.Interval.Duration
	}

	if raw.Concurrency != 0 {
		if raw.Concurrency < 0 {
			return nil, fmt.Errorf("concurrency must be positive: %d", raw.Concurrency)
		}
		cfg.Concurrency = raw.Concurrency
	}

	cfg.Export = resolveExport(raw.Export)
	if err := cfg.Export.Validate(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	cfg.Settings = SettingsConfig{
		InternalMetrics: raw.Settings.InternalMetrics.Enabled,
		MonitorInterval: DefaultMonitorInterval,
	}
	if raw.Settings.Monitor != nil {
		if raw.Settings.Monitor.Duration < 0 {
			return nil, fmt.Errorf("settings: monitor interval must not be negative")
		}
		cfg.Settings.MonitorInterval = raw.Settings.Monitor.Duration
	}

	names := make([]string, 0, len(raw.Sources))
	for name := range raw.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg.Sources = append(cfg.Sources, resolveSource(name, raw.Sources[name]))
	}

	return cfg, nil
}

// EnabledSources returns the sources that should be built.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func resolveExport(raw RawExportConfig) ExportConfig {
	var e ExportConfig
	if raw.Prometheus != nil {
		e.Prometheus = &PrometheusExportConfig{
			Enabled: raw.Prometheus.Enabled,
			Port:    raw.Prometheus.Port,
			Path:    raw.Prometheus.Path,
		}
	}
	if raw.OTEL != nil {
		e.OTEL = &OTELExportConfig{
			Enabled:   raw.OTEL.Enabled,
			Transport: raw.OTEL.Transport,
			Host:      raw.OTEL.Host,
			Port:      raw.OTEL.Port,
			Interval:  raw.OTEL.Interval.Duration,
			Resource:  raw.OTEL.Resource,
			Headers:   raw.OTEL.Headers,
		}
	}
	return e
}
