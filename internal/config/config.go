// Package config loads the pinvault configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/forest6511/pinvault/pkg/store"
)

// FileName is the name of the configuration file inside the vault directory
const FileName = "config.yaml"

// DirName is the default vault directory under the user's home
const DirName = ".pinvault"

// Environment overrides
const (
	EnvHome  = "PINVAULT_HOME"
	EnvToken = "PINVAULT_TOKEN"
)

// Limits on configured values
const (
	MaxUnlockDuration = 24 * time.Hour
	maxConfigSize     = 64 * 1024
)

// Errors
var (
	ErrConfigInsecure       = errors.New("config: file has insecure permissions")
	ErrConfigSymlink        = errors.New("config: file is a symlink")
	ErrConfigNotOwnedByUser = errors.New("config: file not owned by current user")
	ErrConfigInvalid        = errors.New("config: invalid configuration")
)

// CooldownConfig toggles the escalating unlock cooldown
type CooldownConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the contents of config.yaml
type Config struct {
	Version        int            `yaml:"version"`
	Backend        string         `yaml:"backend"`
	UnlockDuration time.Duration  `yaml:"unlock_duration"`
	LogLevel       string         `yaml:"log_level"`
	Cooldown       CooldownConfig `yaml:"cooldown"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Version:        1,
		Backend:        store.BackendSQLite,
		UnlockDuration: 15 * time.Minute,
		LogLevel:       zerolog.WarnLevel.String(),
		Cooldown:       CooldownConfig{Enabled: true},
	}
}

// HomeDir returns the vault directory: $PINVAULT_HOME, or ~/.pinvault.
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Load reads config.yaml from dir. A missing file yields Default().
// Keys absent from the file keep their default values.
//
// The file is opened without following symlinks and must be 0600 (or
// stricter) and owned by the current user.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)

	f, err := openConfigFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	defer f.Close()

	// fstat on the opened descriptor, not the path
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("config: failed to stat %s: %w", path, err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return nil, fmt.Errorf("%w: %04o (expected 0600)", ErrConfigInsecure, perm)
	}
	if err := checkFileOwnership(info); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if len(content) > maxConfigSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrConfigInvalid, maxConfigSize)
	}

	cfg := Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to dir/config.yaml with 0600 permissions.
func (c *Config) Save(dir string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, store.DirMode); err != nil {
		return fmt.Errorf("config: failed to create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: failed to marshal: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, store.FileMode); err != nil {
		return fmt.Errorf("config: failed to write: %w", err)
	}
	return nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("%w: unsupported version %d", ErrConfigInvalid, c.Version)
	}
	switch c.Backend {
	case store.BackendSQLite, store.BackendFile:
	default:
		return fmt.Errorf("%w: backend must be '%s' or '%s', got '%s'",
			ErrConfigInvalid, store.BackendSQLite, store.BackendFile, c.Backend)
	}
	if c.UnlockDuration <= 0 || c.UnlockDuration > MaxUnlockDuration {
		return fmt.Errorf("%w: unlock_duration must be between 1ms and %v", ErrConfigInvalid, MaxUnlockDuration)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel
func (c *Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: log_level: %v", ErrConfigInvalid, err)
	}
	return level, nil
}
