package config

import (
	"fmt"
	"time"

	"go.yaml.in/yaml/v4"
)

// RawConfig represents unparsed YAML structure
type RawConfig struct {
	Interval    RawDuration                `yaml:"interval"`
	Concurrency int                        `yaml:"concurrency"`
	Export      RawExportConfig            `yaml:"export"`
	Settings    RawSettingsConfig          `yaml:"settings"`
	Sources     map[string]RawSourceConfig `yaml:"sources"`
}

// RawSettingsConfig holds general application settings
type RawSettingsConfig struct {
	InternalMetrics RawInternalMetricsConfig `yaml:"internal_metrics"`
	Monitor         *RawDuration             `yaml:"monitor,omitempty"`
}

// RawInternalMetricsConfig controls chainbox's self-monitoring metrics
type RawInternalMetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RawSourceConfig is a named data source before type-specific decoding.
// Config is kept as a node and decoded once the type is known.
type RawSourceConfig struct {
	Enabled *bool     `yaml:"enabled,omitempty"`
	Type    string    `yaml:"type"`
	Config  yaml.Node `yaml:"config"`
}

// RawDuration accepts a duration string (10s) or integer seconds (10).
type RawDuration struct {
	time.Duration
	Set bool
}

// UnmarshalYAML handles both duration and integer forms.
func (d *RawDuration) UnmarshalYAML(value *yaml.Node) error {
	// Try integer seconds first
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		d.Duration = time.Duration(seconds) * time.Second
		d.Set = true
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: invalid duration", value.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	d.Duration = parsed
	d.Set = true
	return nil
}
