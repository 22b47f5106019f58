// Package config reads and writes the per-profile TOML configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Remote configures the sync API endpoint.
type Remote struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// Config represents the global ~/.syncline/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	Remote         Remote `toml:"remote"`

	PageSize          int `toml:"page_size"`
	RefreshIntervalMS int `toml:"refresh_interval_ms"`
	SearchDebounceMS  int `toml:"search_debounce_ms"`
	TypingExpiryMS    int `toml:"typing_expiry_ms"`
}

// Defaults applied where the file leaves values unset.
const (
	DefaultPageSize        = 50
	DefaultRefreshInterval = 60 * time.Second
	DefaultSearchDebounce  = 250 * time.Millisecond
	DefaultTypingExpiry    = 4 * time.Second
)

// Load reads config from the given path. Returns zero config and error if
// file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// PageSizeOrDefault returns the configured page size or the default.
func (c *Config) PageSizeOrDefault() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return DefaultPageSize
}

// RefreshInterval returns the configured interval or the default.
func (c *Config) RefreshInterval() time.Duration {
	if c.RefreshIntervalMS > 0 {
		return time.Duration(c.RefreshIntervalMS) * time.Millisecond
	}
	return DefaultRefreshInterval
}

// SearchDebounce returns the configured debounce or the default.
func (c *Config) SearchDebounce() time.Duration {
	if c.SearchDebounceMS > 0 {
		return time.Duration(c.SearchDebounceMS) * time.Millisecond
	}
	return DefaultSearchDebounce
}

// TypingExpiry returns the configured quiet period or the default.
func (c *Config) TypingExpiry() time.Duration {
	if c.TypingExpiryMS > 0 {
		return time.Duration(c.TypingExpiryMS) * time.Millisecond
	}
	return DefaultTypingExpiry
}
