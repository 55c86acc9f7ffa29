package assignment

import "time"

// Scoring defaults. The relative ordering matters more than the exact values.
const (
	DefaultContinuityBonus     = 50.0
	DefaultPrimaryRoleBonus    = 30.0
	DefaultMoraleBonusMax      = 5.0
	DefaultMoraleFactorMin     = 0.5
	DefaultMoraleFactorMax     = 1.0
	DefaultTaskSkillMultiplier = 2.0
	DefaultRepassDelay         = 100 * time.Millisecond
)

// Config tunes the assignment engine
type Config struct {
	ContinuityBonus     float64
	PrimaryRoleBonus    float64
	MoraleBonusMax      float64
	MoraleFactorMin     float64
	MoraleFactorMax     float64
	TaskSkillMultiplier float64
	RepassDelay         time.Duration
}

// DefaultConfig returns the standard weights
func DefaultConfig() Config {
	return Config{
		ContinuityBonus:     DefaultContinuityBonus,
		PrimaryRoleBonus:    DefaultPrimaryRoleBonus,
		MoraleBonusMax:      DefaultMoraleBonusMax,
		MoraleFactorMin:     DefaultMoraleFactorMin,
		MoraleFactorMax:     DefaultMoraleFactorMax,
		TaskSkillMultiplier: DefaultTaskSkillMultiplier,
		RepassDelay:         DefaultRepassDelay,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MoraleFactorMax <= 0 {
		c.MoraleFactorMax = d.MoraleFactorMax
	}
	if c.MoraleFactorMin <= 0 || c.MoraleFactorMin > c.MoraleFactorMax {
		c.MoraleFactorMin = d.MoraleFactorMin
	}
	if c.TaskSkillMultiplier <= 0 {
		c.TaskSkillMultiplier = d.TaskSkillMultiplier
	}
	if c.RepassDelay <= 0 {
		c.RepassDelay = d.RepassDelay
	}
	return c
}
