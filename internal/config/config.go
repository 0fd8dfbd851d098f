// Package config handles loading and validation of octodns-hetzner
// configuration files.
package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Configuration defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config holds the runtime configuration.
type Config struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Lenient downgrades record validation failures to warnings.
	Lenient bool

	Providers []ProviderConfig
	Zones     []ZoneConfig
}

// ProviderConfig describes one provider instance.
type ProviderConfig struct {
	Name string
	Type string

	// Settings are the provider's flat settings (TOKEN, TOKEN_FILE,
	// BACKEND, ENDPOINT), as consumed by its registry factory.
	Settings map[string]string
}

// ZoneConfig describes one zone to sync.
type ZoneConfig struct {
	Name    string   // fully qualified, with trailing dot
	Source  string   // path of the desired-state zone file
	Targets []string // provider names
}

// Provider returns the provider named name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Zone returns the zone named name. A missing trailing dot is tolerated.
func (c *Config) Zone(name string) (ZoneConfig, bool) {
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	for _, z := range c.Zones {
		if z.Name == name {
			return z, true
		}
	}
	return ZoneConfig{}, false
}

// Load reads the configuration file at path, applies per-provider
// environment overrides and validates the result. All problems are
// reported together in a *ValidationError.
func Load(path string) (*Config, error) {
	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("loaded configuration from file", slog.String("path", path))

	cfg := fileCfg.ToConfig()
	applyEnvOverrides(cfg)

	if errs := validateConfig(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// String renders a summary safe for logging; secrets are omitted.
func (c *Config) String() string {
	return fmt.Sprintf("Config{LogLevel: %s, LogFormat: %s, Lenient: %t, Providers: %d, Zones: %d}",
		c.LogLevel, c.LogFormat, c.Lenient, len(c.Providers), len(c.Zones))
}
