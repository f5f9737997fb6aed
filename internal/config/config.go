package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Config represents the global ~/.vchat/config.toml.
type Config struct {
	DefaultProfile string     `toml:"default_profile"`
	RPC            RPCConfig  `toml:"rpc"`
	Chat           ChatConfig `toml:"chat"`
}

// RPCConfig locates the Verus daemon.
type RPCConfig struct {
	URL      string   `toml:"url"`
	User     string   `toml:"user"`
	Password string   `toml:"password"`
	Timeout  Duration `toml:"timeout"`
}

// ChatConfig tunes the background loops of a logged-in session.
type ChatConfig struct {
	PollInterval     Duration        `toml:"poll_interval"`
	HeightInterval   Duration        `toml:"height_interval"`
	FailureThreshold int             `toml:"failure_threshold"`
	FastMinValue     decimal.Decimal `toml:"fast_min_value"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		RPC: RPCConfig{
			URL:     "http://localhost:18843",
			Timeout: Duration{10 * time.Second},
		},
		Chat: ChatConfig{
			PollInterval:     Duration{10 * time.Second},
			HeightInterval:   Duration{15 * time.Second},
			FailureThreshold: 3,
			FastMinValue:     decimal.RequireFromString("0.0001"),
		},
	}
}

// Load reads config from the given path over the defaults. Returns error if
// the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.RPC.URL == "" {
		return errors.New("rpc.url is required")
	}
	if c.RPC.Timeout.Duration <= 0 {
		return errors.New("rpc.timeout must be positive")
	}
	if c.Chat.PollInterval.Duration <= 0 || c.Chat.HeightInterval.Duration <= 0 {
		return errors.New("chat intervals must be positive")
	}
	if c.Chat.FailureThreshold < 1 {
		return errors.New("chat.failure_threshold must be at least 1")
	}
	if c.Chat.FastMinValue.IsNegative() {
		return errors.New("chat.fast_min_value must not be negative")
	}
	return nil
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
