package config

import (
	"fmt"
	"net"

	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
	"github.com/therealmichaelberna/nokia.isam/pkg/logging"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	// ---- log ----
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want text or json)", cfg.Log.Format)
	}
	if cfg.Log.Buffer < 0 {
		return fmt.Errorf("log.buffer: must not be negative, got %d", cfg.Log.Buffer)
	}
	if err := validateAddr("log.syslog", cfg.Log.Syslog); err != nil {
		return err
	}
	if cfg.Log.SyslogLevel != "" {
		if _, err := logging.ParseLevel(cfg.Log.SyslogLevel); err != nil {
			return fmt.Errorf("log.syslog_level: %w", err)
		}
	}

	// ---- source ----
	if cfg.Source.History < 1 {
		return fmt.Errorf("source.history: must be at least 1, got %d", cfg.Source.History)
	}
	if cfg.Source.Reload < 0 {
		return fmt.Errorf("source.reload: must not be negative, got %s", cfg.Source.Reload)
	}

	// ---- flatten ----
	if _, err := flatten.ParsePolicy(cfg.Flatten.Policy); err != nil {
		return fmt.Errorf("flatten.policy: %w", err)
	}

	// ---- api ----
	if err := validateAddr("api.addr", cfg.API.Addr); err != nil {
		return err
	}
	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit: must not be negative, got %g", cfg.API.RateLimit)
	}
	if cfg.API.RateLimit > 0 && cfg.API.Burst < 1 {
		return fmt.Errorf("api.burst: must be at least 1 when rate_limit is set, got %d", cfg.API.Burst)
	}
	seen := make(map[string]bool)
	for i, k := range cfg.API.APIKeys {
		if k == "" {
			return fmt.Errorf("api.api_keys[%d]: empty key", i)
		}
		if seen[k] {
			return fmt.Errorf("api.api_keys[%d]: duplicate key", i)
		}
		seen[k] = true
	}
	for user, pass := range cfg.API.Users {
		if user == "" || pass == "" {
			return fmt.Errorf("api.users: user and password must not be empty")
		}
	}

	// ---- grpc ----
	if err := validateAddr("grpc.addr", cfg.GRPC.Addr); err != nil {
		return err
	}
	if cfg.API.Addr != "" && cfg.API.Addr == cfg.GRPC.Addr {
		return fmt.Errorf("api.addr and grpc.addr must differ, both are %q", cfg.API.Addr)
	}
	return nil
}

// validateAddr accepts an empty address (listener disabled) or host:port.
func validateAddr(field, addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}
