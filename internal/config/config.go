// Package config handles configuration loading and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultInviteTTLHours = 72
	DefaultPollSeconds    = 30
)

// Config holds the full configuration for yepdone. UserID and Workspace
// are written back by `yepdone login` and `yepdone workspace use`; the
// rest is hand-edited.
type Config struct {
	// Paths
	DBPath string `toml:"db_path"`

	// Session
	UserID    string `toml:"user_id"`
	Workspace string `toml:"workspace"` // current workspace id

	// Invites
	InviteTTLHours int `toml:"invite_ttl_hours"`

	// Board
	PollSeconds int `toml:"poll_seconds"` // membership re-check interval

	// Where the config was loaded from (computed)
	Path string `toml:"-"`
}

// DefaultPath returns the standard config location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".yepdone", "config.toml"), nil
}

// Load reads the config at path, filling in defaults. A missing file is
// not an error: you get the defaults and the first Save creates it.
func Load(path string) (*Config, error) {
	cfg := &Config{
		InviteTTLHours: DefaultInviteTTLHours,
		PollSeconds:    DefaultPollSeconds,
		Path:           path,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.InviteTTLHours <= 0 {
		cfg.InviteTTLHours = DefaultInviteTTLHours
	}
	if cfg.PollSeconds <= 0 {
		cfg.PollSeconds = DefaultPollSeconds
	}
	return cfg, nil
}

// Save writes the config back to the path it was loaded from.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(c.Path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// InviteTTL returns the invite lifetime as a duration.
func (c *Config) InviteTTL() time.Duration {
	return time.Duration(c.InviteTTLHours) * time.Hour
}

// PollInterval returns the membership re-check cadence for the board.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}
