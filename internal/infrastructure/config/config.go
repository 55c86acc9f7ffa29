package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (PHARMA_SIMULATION_SPEED, ...)
const EnvPrefix = "PHARMA"

// Config is the main configuration struct combining all sub-configs
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Assignment AssignmentConfig `mapstructure:"assignment"`
	Integrity  IntegrityConfig  `mapstructure:"integrity"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pharmasim")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// DATABASE_URL is honoured without the prefix for hosted Postgres
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadConfigOrDefault loads configuration or returns a default config on error
func LoadConfigOrDefault(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Default()
	}
	return cfg
}

// MustLoadConfig loads configuration and panics on error (for use in main.go)
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	cfg := &Config{}
	cfg.Simulation.AutoStartNextDay = true
	cfg.Integrity.ForceCompleteEnabled = true
	SetDefaults(cfg)
	return cfg
}

// registerDefaults seeds viper with values whose zero value is meaningful
// and therefore cannot be filled in after unmarshalling
func registerDefaults(v *viper.Viper) {
	v.SetDefault("simulation.auto_start_next_day", true)
	v.SetDefault("integrity.force_complete_enabled", true)
	v.SetDefault("metrics.enabled", true)
}
