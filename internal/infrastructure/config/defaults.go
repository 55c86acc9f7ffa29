package config

import (
	"strings"
	"time"
)

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "pharmasim.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "pharmasim"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "pharmasim"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = 5 * time.Second
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 10
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 2
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// Simulation defaults
	sim := &cfg.Simulation
	if sim.OpeningHour == 0 {
		sim.OpeningHour = 8
	}
	if sim.ClosingHour == 0 {
		sim.ClosingHour = 22
	}
	if sim.FixedStep == 0 {
		sim.FixedStep = time.Second / 60
	}
	if sim.GameMinute == 0 {
		sim.GameMinute = time.Second
	}
	if sim.MaxUpdatesPerCall == 0 {
		sim.MaxUpdatesPerCall = 10
	}
	if sim.MinSpeed == 0 {
		sim.MinSpeed = 0.25
	}
	if sim.MaxSpeed == 0 {
		sim.MaxSpeed = 16
	}
	if sim.Speed == 0 {
		sim.Speed = 1
	}
	if sim.NextDayDelay == 0 {
		sim.NextDayDelay = 5 * time.Second
	}
	if sim.TickInterval == 0 {
		sim.TickInterval = 50 * time.Millisecond
	}
	if sim.MaxDelta == 0 {
		sim.MaxDelta = time.Second
	}
	if sim.Verifier.Tolerance == 0 {
		sim.Verifier.Tolerance = 0.001
	}
	if sim.Verifier.HistoryCapacity == 0 {
		sim.Verifier.HistoryCapacity = 100
	}
	if sim.Verifier.ResetThreshold == 0 {
		sim.Verifier.ResetThreshold = 20
	}

	// Assignment defaults
	a := &cfg.Assignment
	if a.ContinuityBonus == 0 {
		a.ContinuityBonus = 50
	}
	if a.PrimaryRoleBonus == 0 {
		a.PrimaryRoleBonus = 30
	}
	if a.MoraleBonusMax == 0 {
		a.MoraleBonusMax = 5
	}
	if a.MoraleFactorMin == 0 {
		a.MoraleFactorMin = 0.5
	}
	if a.MoraleFactorMax == 0 {
		a.MoraleFactorMax = 1
	}
	if a.TaskSkillMultiplier == 0 {
		a.TaskSkillMultiplier = 2
	}
	if a.RepassDelay == 0 {
		a.RepassDelay = 100 * time.Millisecond
	}

	// Integrity defaults
	in := &cfg.Integrity
	if in.Interval == 0 {
		in.Interval = 60 * time.Second
	}
	if in.StuckThreshold == 0 {
		in.StuckThreshold = 10 * time.Minute
	}
	if in.ForceCompleteThreshold == 0 {
		in.ForceCompleteThreshold = 30 * time.Minute
	}
	if in.CustomerWaitThreshold == 0 {
		in.CustomerWaitThreshold = 15 * time.Minute
	}
	if in.AnomalyThreshold == 0 {
		in.AnomalyThreshold = 10
	}
	if in.MaxCustomerRecoveries == 0 {
		in.MaxCustomerRecoveries = 3
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	cfg.Logging.PersistLevel = strings.ToUpper(cfg.Logging.PersistLevel)
	if cfg.Logging.PersistLevel == "" {
		cfg.Logging.PersistLevel = "WARNING"
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.PollInterval == 0 {
		cfg.Metrics.PollInterval = time.Second
	}

	// Daemon defaults
	if cfg.Daemon.HTTPAddress == "" {
		cfg.Daemon.HTTPAddress = "localhost:8088"
	}
	if cfg.Daemon.ReadHeaderTimeout == 0 {
		cfg.Daemon.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.Daemon.SocketPath == "" {
		cfg.Daemon.SocketPath = "/tmp/pharmasim-daemon.sock"
	}
	if cfg.Daemon.PIDFile == "" {
		cfg.Daemon.PIDFile = "/tmp/pharmasim-daemon.pid"
	}
	if cfg.Daemon.ShutdownTimeout == 0 {
		cfg.Daemon.ShutdownTimeout = 10 * time.Second
	}
}
