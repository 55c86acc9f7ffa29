package config

import "time"

// SimulationConfig holds clock, driver and host loop settings
type SimulationConfig struct {
	// Fixed session id; empty generates one
	SessionID string `mapstructure:"session_id"`

	// Scenario file; empty uses the built-in pharmacy
	Scenario string `mapstructure:"scenario"`

	// Resume from the latest stored snapshot on start
	Resume bool `mapstructure:"resume"`

	// Business hours
	OpeningHour int    `mapstructure:"opening_hour" validate:"min=0,max=23"`
	ClosingHour int    `mapstructure:"closing_hour" validate:"min=1,max=23,gtfield=OpeningHour"`
	StartDate   string `mapstructure:"start_date" validate:"omitempty,datetime=2006-01-02"`

	// Fixed-timestep driver
	FixedStep         time.Duration `mapstructure:"fixed_step" validate:"gt=0"`
	GameMinute        time.Duration `mapstructure:"game_minute" validate:"gt=0"`
	MaxUpdatesPerCall int           `mapstructure:"max_updates_per_call" validate:"min=1"`
	Speed             float64       `mapstructure:"speed" validate:"gtefield=MinSpeed,ltefield=MaxSpeed"`
	MinSpeed          float64       `mapstructure:"min_speed" validate:"gt=0"`
	MaxSpeed          float64       `mapstructure:"max_speed" validate:"gtefield=MinSpeed"`

	// Day rollover
	AutoStartNextDay bool          `mapstructure:"auto_start_next_day"`
	NextDayDelay     time.Duration `mapstructure:"next_day_delay" validate:"gte=0"`

	// Host loop
	TickInterval     time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	MaxDelta         time.Duration `mapstructure:"max_delta" validate:"gt=0"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval" validate:"gte=0"`

	// Progress verifier
	Verifier VerifierConfig `mapstructure:"verifier"`
}

// VerifierConfig tunes progress anomaly detection
type VerifierConfig struct {
	Tolerance       float64 `mapstructure:"tolerance" validate:"gt=0"`
	HistoryCapacity int     `mapstructure:"history_capacity" validate:"min=1"`
	ResetThreshold  int     `mapstructure:"reset_threshold" validate:"min=1"`
}

// AssignmentConfig holds the scoring weights of the assignment engine
type AssignmentConfig struct {
	ContinuityBonus     float64       `mapstructure:"continuity_bonus" validate:"gte=0"`
	PrimaryRoleBonus    float64       `mapstructure:"primary_role_bonus" validate:"gte=0"`
	MoraleBonusMax      float64       `mapstructure:"morale_bonus_max" validate:"gte=0"`
	MoraleFactorMin     float64       `mapstructure:"morale_factor_min" validate:"gt=0,ltefield=MoraleFactorMax"`
	MoraleFactorMax     float64       `mapstructure:"morale_factor_max" validate:"gt=0"`
	TaskSkillMultiplier float64       `mapstructure:"task_skill_multiplier" validate:"gt=0"`
	RepassDelay         time.Duration `mapstructure:"repass_delay" validate:"gt=0"`
}

// IntegrityConfig holds integrity sweep thresholds
type IntegrityConfig struct {
	Interval               time.Duration `mapstructure:"interval" validate:"gt=0"`
	StuckThreshold         time.Duration `mapstructure:"stuck_threshold" validate:"gt=0"`
	ForceCompleteThreshold time.Duration `mapstructure:"force_complete_threshold" validate:"gtfield=StuckThreshold"`
	ForceCompleteEnabled   bool          `mapstructure:"force_complete_enabled"`
	CustomerWaitThreshold  time.Duration `mapstructure:"customer_wait_threshold" validate:"gt=0"`
	AnomalyThreshold       int           `mapstructure:"anomaly_threshold" validate:"min=1"`
	MaxCustomerRecoveries  int           `mapstructure:"max_customer_recoveries" validate:"min=1"`
}
