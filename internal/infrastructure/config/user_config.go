package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig represents CLI preferences stored in ~/.pharmasim/config.yaml
type UserConfig struct {
	// Session inspected by `snapshot show` when --session is omitted
	DefaultSession string `yaml:"default_session,omitempty"`

	// Daemon socket used when --socket is omitted
	Socket string `yaml:"socket,omitempty"`
}

// UserConfigHandler manages loading and saving user configuration
type UserConfigHandler struct {
	configPath string
}

// NewUserConfigHandler creates a handler rooted at the user's home directory
func NewUserConfigHandler() (*UserConfigHandler, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewUserConfigHandlerAt(filepath.Join(homeDir, ".pharmasim", "config.yaml")), nil
}

// NewUserConfigHandlerAt creates a handler for an explicit file path
func NewUserConfigHandlerAt(path string) *UserConfigHandler {
	return &UserConfigHandler{configPath: path}
}

// Load reads the user config from disk; a missing file yields an empty config
func (h *UserConfigHandler) Load() (*UserConfig, error) {
	data, err := os.ReadFile(h.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}
	return &cfg, nil
}

// Save writes the user config to disk
func (h *UserConfigHandler) Save(cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(h.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(h.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}
	return nil
}

// SetDefaultSession stores the session used by snapshot commands
func (h *UserConfigHandler) SetDefaultSession(sessionID string) error {
	cfg, err := h.Load()
	if err != nil {
		return err
	}
	cfg.DefaultSession = sessionID
	return h.Save(cfg)
}

// SetSocket stores the daemon socket path
func (h *UserConfigHandler) SetSocket(path string) error {
	cfg, err := h.Load()
	if err != nil {
		return err
	}
	cfg.Socket = path
	return h.Save(cfg)
}

// Clear removes all stored preferences
func (h *UserConfigHandler) Clear() error {
	return h.Save(&UserConfig{})
}

// Path returns the path to the user config file
func (h *UserConfigHandler) Path() string {
	return h.configPath
}
