// Package config loads outliner settings from defaults, an optional TOML
// file, OUTLINER_ environment variables and command-line flags, in that
// order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = "outliner.toml"

// EnvPrefix prefixes environment overrides: OUTLINER_STORE_DSN sets
// store.dsn.
const EnvPrefix = "OUTLINER_"

// Config holds all configuration.
type Config struct {
	Owner     string          `koanf:"owner"`
	Store     StoreConfig     `koanf:"store"`
	Templates TemplatesConfig `koanf:"templates"`
	History   HistoryConfig   `koanf:"history"`
	Persist   PersistConfig   `koanf:"persist"`
	Sync      SyncConfig      `koanf:"sync"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is "sqlite", "postgres" or "memory".
	Driver string `koanf:"driver"`
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string `koanf:"dsn"`
}

type TemplatesConfig struct {
	Dir   string `koanf:"dir"`
	Watch bool   `koanf:"watch"`
}

type HistoryConfig struct {
	Limit int `koanf:"limit"`
}

// PersistConfig tunes the background writer.
type PersistConfig struct {
	Retries int           `koanf:"retries"`
	Backoff time.Duration `koanf:"backoff"`
	// Quiet and MaxWait debounce title and expansion writes.
	Quiet   time.Duration `koanf:"quiet"`
	MaxWait time.Duration `koanf:"maxwait"`
	// ReloadAfter consecutive failures recommend a reload; 0 disables.
	ReloadAfter int `koanf:"reloadafter"`
}

type SyncConfig struct {
	Interval time.Duration `koanf:"interval"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"owner": "local",
		"store": map[string]interface{}{
			"driver": "sqlite",
			"dsn":    "outliner.db",
		},
		"templates": map[string]interface{}{
			"dir":   "",
			"watch": false,
		},
		"history": map[string]interface{}{
			"limit": 100,
		},
		"persist": map[string]interface{}{
			"retries":     2,
			"backoff":     200 * time.Millisecond,
			"quiet":       time.Second,
			"maxwait":     5 * time.Second,
			"reloadafter": 3,
		},
		"sync": map[string]interface{}{
			"interval": 30 * time.Second,
		},
		"server": map[string]interface{}{
			"addr": "127.0.0.1:8080",
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "text",
		},
	}
}

// Load builds the configuration. path names the TOML file; when empty,
// DefaultFile is used if it exists. Flags are mapped to keys by replacing
// dashes with dots (--store-dsn sets store.dsn); only flags the user set
// override lower layers.
func Load(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		provider := posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return strings.ReplaceAll(fl.Name, "-", "."), posflag.FlagVal(f, fl)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values no lower layer can repair.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "sqlite", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q (want sqlite, postgres or memory)", c.Store.Driver))
	}
	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn: required"))
	}
	if c.History.Limit <= 0 {
		errs = append(errs, fmt.Errorf("history.limit: must be positive, got %d", c.History.Limit))
	}
	if c.Persist.Retries < 0 {
		errs = append(errs, fmt.Errorf("persist.retries: must not be negative, got %d", c.Persist.Retries))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q (want text or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// SlogLevel returns the configured level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	l, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
