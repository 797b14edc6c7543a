package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Authority AuthorityConfig `toml:"authority"`
	Database  DatabaseConfig  `toml:"database"`
	Viewer    ViewerConfig    `toml:"viewer"`
	Logging   LoggingConfig   `toml:"logging"`
}

type AuthorityConfig struct {
	BindAddress string `toml:"bind_address"`
	// PresetDir holds operator-defined Lua preset files. Empty disables
	// the loader.
	PresetDir string `toml:"preset_dir"`
	// AccessKeyHash is a bcrypt hash; when set, mutating endpoints require
	// the matching key as a bearer token. Empty leaves writes open.
	AccessKeyHash string `toml:"access_key_hash"`
	// BroadcastQueue is the per-viewer outbound message buffer. Viewers
	// that cannot drain it are dropped rather than allowed to stall the
	// hub.
	BroadcastQueue int           `toml:"broadcast_queue"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
}

type DatabaseConfig struct {
	// DSN empty means run without persistence (in-memory state only).
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type ViewerConfig struct {
	AuthorityURL   string        `toml:"authority_url"`
	AccessKey      string        `toml:"access_key"`
	FrameInterval  time.Duration `toml:"frame_interval"`
	RetryWait      time.Duration `toml:"retry_wait"`
	StarfieldCount int           `toml:"starfield_count"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads a TOML config, layered over compiled-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// validate rejects values the runtime cannot operate with. The frame
// interval in particular feeds time.NewTicker, which panics on
// non-positive durations.
func (c *Config) validate() error {
	if c.Viewer.FrameInterval <= 0 {
		return fmt.Errorf("viewer.frame_interval must be > 0, got %v", c.Viewer.FrameInterval)
	}
	if c.Viewer.RetryWait <= 0 {
		return fmt.Errorf("viewer.retry_wait must be > 0, got %v", c.Viewer.RetryWait)
	}
	if c.Authority.BroadcastQueue <= 0 {
		return fmt.Errorf("authority.broadcast_queue must be > 0, got %v", c.Authority.BroadcastQueue)
	}
	return nil
}

// LoadOrDefaults behaves like Load but falls back to defaults when the
// file does not exist, so both binaries run without any setup.
func LoadOrDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

func Defaults() *Config {
	return &Config{
		Authority: AuthorityConfig{
			BindAddress:    "0.0.0.0:7711",
			BroadcastQueue: 16,
			WriteTimeout:   10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Viewer: ViewerConfig{
			AuthorityURL:   "http://localhost:7711",
			FrameInterval:  16 * time.Millisecond,
			RetryWait:      2 * time.Second,
			StarfieldCount: 1500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
