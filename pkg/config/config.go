// Package config loads the isamctl/isamd application configuration from a
// YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Source  SourceConfig  `yaml:"source"`
	Flatten FlattenConfig `yaml:"flatten"`
	API     APIConfig     `yaml:"api"`
	GRPC    GRPCConfig    `yaml:"grpc"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Buffer int    `yaml:"buffer"` // in-memory event buffer size
	File   string `yaml:"file"`   // optional log file (rotated)

	Syslog      string `yaml:"syslog,omitempty"`       // remote syslog host:port (UDP)
	SyslogLevel string `yaml:"syslog_level,omitempty"` // minimum forwarded level (default warn)
}

// ---- SOURCE ----

// SourceConfig locates captured device output. Each scope is read from
// <dir>/<scope>.txt.
type SourceConfig struct {
	Dir     string        `yaml:"dir"`
	History int           `yaml:"history"`          // flattened snapshots kept per scope
	Reload  time.Duration `yaml:"reload,omitempty"` // rescan interval for changed captures, 0 disables
}

// ---- FLATTEN ----

type FlattenConfig struct {
	Policy string `yaml:"policy"` // reset or persist
}

// ---- API ----

type APIConfig struct {
	Addr      string            `yaml:"addr"` // empty disables the HTTP API
	RateLimit float64           `yaml:"rate_limit"`
	Burst     int               `yaml:"burst"`
	APIKeys   []string          `yaml:"api_keys,omitempty"` // bearer or X-API-Key tokens
	Users     map[string]string `yaml:"users,omitempty"`    // basic auth user -> password
}

// AuthEnabled reports whether any API credential is configured.
func (c APIConfig) AuthEnabled() bool {
	return len(c.APIKeys) > 0 || len(c.Users) > 0
}

// ---- GRPC ----

type GRPCConfig struct {
	Addr string `yaml:"addr"` // empty disables the gRPC API
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Buffer: 1000,
		},
		Source: SourceConfig{
			Dir:     ".",
			History: 10,
		},
		Flatten: FlattenConfig{
			Policy: "reset",
		},
		API: APIConfig{
			Addr:      "127.0.0.1:8080",
			RateLimit: 10,
			Burst:     20,
		},
		GRPC: GRPCConfig{
			Addr: "127.0.0.1:50051",
		},
	}
}

// Load reads and validates the configuration at path. Keys absent from the
// file keep their defaults, and a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
