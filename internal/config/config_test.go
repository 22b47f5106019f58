package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		DefaultProfile: "work",
		Remote:         Remote{BaseURL: "https://sync.example.com", Token: "tok"},
		PageSize:       25,
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Remote.BaseURL != "https://sync.example.com" {
		t.Errorf("Remote.BaseURL = %q", loaded.Remote.BaseURL)
	}
	if loaded.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", loaded.PageSize)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	if got := cfg.PageSizeOrDefault(); got != DefaultPageSize {
		t.Errorf("PageSizeOrDefault() = %d, want %d", got, DefaultPageSize)
	}
	if got := cfg.RefreshInterval(); got != DefaultRefreshInterval {
		t.Errorf("RefreshInterval() = %v, want %v", got, DefaultRefreshInterval)
	}
	if got := cfg.SearchDebounce(); got != DefaultSearchDebounce {
		t.Errorf("SearchDebounce() = %v, want %v", got, DefaultSearchDebounce)
	}

	cfg.TypingExpiryMS = 1500
	if got := cfg.TypingExpiry(); got != 1500*time.Millisecond {
		t.Errorf("TypingExpiry() = %v, want 1.5s", got)
	}
}
