package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the cross-field rules the
// engine relies on
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the simulation and database rules registered
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterStructValidation(simulationRules, SimulationConfig{})
	v.RegisterStructValidation(databaseRules, DatabaseConfig{})
	return &Validator{validate: v}
}

// Validate validates a struct using validation tags
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return v.formatValidationError(err)
	}
	return nil
}

// simulationRules keeps periodic snapshots no more frequent than the host loop
func simulationRules(sl validator.StructLevel) {
	sim := sl.Current().Interface().(SimulationConfig)
	if sim.SnapshotInterval > 0 && sim.SnapshotInterval < sim.TickInterval {
		sl.ReportError(sim.SnapshotInterval, "SnapshotInterval", "snapshot_interval", "gte_tick_interval", "")
	}
}

// databaseRules requires a way to reach postgres
func databaseRules(sl validator.StructLevel) {
	db := sl.Current().Interface().(DatabaseConfig)
	if db.Type == "postgres" && db.URL == "" && db.Host == "" {
		sl.ReportError(db.Host, "Host", "host", "postgres_target", "")
	}
}

func (v *Validator) formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		messages := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			messages = append(messages, fmt.Sprintf("%s: %s (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%d field(s) rejected:\n  %s", len(messages), strings.Join(messages, "\n  "))
	}
	return err
}

// ValidateConfig validates the entire configuration
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
