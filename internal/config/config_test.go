package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.RPC.User = "verus"
	cfg.Chat.PollInterval = Duration{30 * time.Second}
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
	if loaded.RPC.User != "verus" {
		t.Errorf("RPC.User = %q, want verus", loaded.RPC.User)
	}
	if loaded.Chat.PollInterval.Duration != 30*time.Second {
		t.Errorf("PollInterval = %s, want 30s", loaded.Chat.PollInterval)
	}
	if !loaded.Chat.FastMinValue.Equal(cfg.Chat.FastMinValue) {
		t.Errorf("FastMinValue = %s, want %s", loaded.Chat.FastMinValue, cfg.Chat.FastMinValue)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
default_profile = "main"

[rpc]
user = "rpcuser"
password = "secret"

[chat]
poll_interval = "5s"
fast_min_value = 0.001
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RPC.URL != "http://localhost:18843" {
		t.Errorf("RPC.URL = %q, want default", cfg.RPC.URL)
	}
	if cfg.RPC.Timeout.Duration != 10*time.Second {
		t.Errorf("RPC.Timeout = %s, want 10s", cfg.RPC.Timeout)
	}
	if cfg.Chat.PollInterval.Duration != 5*time.Second {
		t.Errorf("PollInterval = %s, want 5s", cfg.Chat.PollInterval)
	}
	if cfg.Chat.HeightInterval.Duration != 15*time.Second {
		t.Errorf("HeightInterval = %s, want 15s", cfg.Chat.HeightInterval)
	}
	if cfg.Chat.FailureThreshold != 3 {
		t.Errorf("FailureThreshold = %d, want 3", cfg.Chat.FailureThreshold)
	}
	if !cfg.Chat.FastMinValue.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("FastMinValue = %s, want 0.001", cfg.Chat.FastMinValue)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad duration", "[chat]\npoll_interval = \"soon\"\n"},
		{"zero threshold", "[chat]\nfailure_threshold = 0\n"},
		{"negative timeout", "[rpc]\ntimeout = \"-1s\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Chat.PollInterval.Duration != 10*time.Second {
		t.Errorf("PollInterval = %s, want default 10s", cfg.Chat.PollInterval)
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
