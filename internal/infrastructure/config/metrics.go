package config

import "time"

// MetricsConfig controls the Prometheus collectors served by the daemon
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`

	// How often the status gauges are refreshed from the runner
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}
