package config

import "time"

// DaemonConfig holds the listeners and lifecycle of pharmasim-daemon
type DaemonConfig struct {
	// HTTP surface: status, health, task and control routes, metrics
	HTTPAddress       string        `mapstructure:"http_address" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`

	// gRPC control socket used by the pharmasim CLI
	SocketPath string `mapstructure:"socket_path" validate:"required"`

	PIDFile         string        `mapstructure:"pid_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}
