package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file structure, in YAML or TOML.
type FileConfig struct {
	Logging   *FileLoggingConfig   `yaml:"logging,omitempty" toml:"logging,omitempty"`
	Lenient   *bool                `yaml:"lenient,omitempty" toml:"lenient,omitempty"`
	Providers []FileProviderConfig `yaml:"providers,omitempty" toml:"providers,omitempty"`
	Zones     []FileZoneConfig     `yaml:"zones,omitempty" toml:"zones,omitempty"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" toml:"format,omitempty"` // json, text
}

// FileProviderConfig holds configuration for a DNS provider instance.
type FileProviderConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Type      string `yaml:"type" toml:"type"`
	Backend   string `yaml:"backend,omitempty" toml:"backend,omitempty"`       // dnsapi, hcloud
	Token     string `yaml:"token,omitempty" toml:"token,omitempty"`           // usually ${ENV}
	TokenFile string `yaml:"token_file,omitempty" toml:"token_file,omitempty"` // wins over token
	Endpoint  string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
}

// FileZoneConfig holds configuration for one synced zone.
type FileZoneConfig struct {
	Name    string   `yaml:"name" toml:"name"`
	Source  string   `yaml:"source" toml:"source"`
	Targets []string `yaml:"targets" toml:"targets"`
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		if len(groups) >= 3 {
			return groups[2]
		}
		return ""
	})
}

func (c *FileConfig) interpolateEnvVars() {
	if c.Logging != nil {
		c.Logging.Level = InterpolateEnvVars(c.Logging.Level)
		c.Logging.Format = InterpolateEnvVars(c.Logging.Format)
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		p.Name = InterpolateEnvVars(p.Name)
		p.Type = InterpolateEnvVars(p.Type)
		p.Backend = InterpolateEnvVars(p.Backend)
		p.Token = InterpolateEnvVars(p.Token)
		p.TokenFile = InterpolateEnvVars(p.TokenFile)
		p.Endpoint = InterpolateEnvVars(p.Endpoint)
	}

	for i := range c.Zones {
		z := &c.Zones[i]
		z.Name = InterpolateEnvVars(z.Name)
		z.Source = InterpolateEnvVars(z.Source)
		for j := range z.Targets {
			z.Targets[j] = InterpolateEnvVars(z.Targets[j])
		}
	}
}

// LoadFile reads and parses a configuration file. Files ending in .toml are
// parsed as TOML, everything else as YAML. Environment variables in ${VAR}
// format are interpolated.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}

// ToConfig converts the file config to runtime types, applying defaults.
func (c *FileConfig) ToConfig() *Config {
	cfg := &Config{
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}

	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(c.Logging.Level)
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(c.Logging.Format)
		}
	}
	if c.Lenient != nil {
		cfg.Lenient = *c.Lenient
	}

	for _, fp := range c.Providers {
		cfg.Providers = append(cfg.Providers, fp.toProviderConfig())
	}

	for _, fz := range c.Zones {
		cfg.Zones = append(cfg.Zones, ZoneConfig{
			Name:    strings.ToLower(strings.TrimSpace(fz.Name)),
			Source:  fz.Source,
			Targets: fz.Targets,
		})
	}

	return cfg
}

func (fp FileProviderConfig) toProviderConfig() ProviderConfig {
	settings := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			settings[key] = value
		}
	}
	set("TOKEN", fp.Token)
	set("TOKEN_FILE", fp.TokenFile)
	set("BACKEND", fp.Backend)
	set("ENDPOINT", fp.Endpoint)

	return ProviderConfig{
		Name:     fp.Name,
		Type:     strings.ToLower(fp.Type),
		Settings: settings,
	}
}
