package config

// LoggingConfig controls the console logger and the persisted incident log
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
	Output string `mapstructure:"output" validate:"required,oneof=stdout stderr file"`

	// Required when Output is "file"
	FilePath string `mapstructure:"file_path" validate:"required_if=Output file"`

	// Persist entries at PersistLevel and above to simulation_logs for the session
	Persist      bool   `mapstructure:"persist"`
	PersistLevel string `mapstructure:"persist_level" validate:"required,oneof=DEBUG INFO WARNING ERROR"`

	IncludeCaller bool `mapstructure:"include_caller"`
}
