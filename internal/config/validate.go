package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/octodns/octodns-hetzner/providers/hetzner"
)

// KnownProviderTypes lists the provider types the CLI can construct.
var KnownProviderTypes = []string{hetzner.ProviderType}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// validateConfig performs cross-field validation on the complete configuration.
// Returns a list of validation errors.
func validateConfig(cfg *Config) []string {
	var errs []string

	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level: invalid value %q", cfg.LogLevel))
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("logging.format: invalid value %q", cfg.LogFormat))
	}

	seen := make(map[string]bool)
	for _, p := range cfg.Providers {
		if p.Name == "" {
			errs = append(errs, "provider: name is required")
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("duplicate provider name: %q", p.Name))
		}
		seen[p.Name] = true
		errs = append(errs, validateProvider(p)...)
	}

	zones := make(map[string]bool)
	for _, z := range cfg.Zones {
		errs = append(errs, validateZone(z, seen)...)
		if zones[z.Name] {
			errs = append(errs, fmt.Sprintf("duplicate zone: %q", z.Name))
		}
		zones[z.Name] = true
	}

	return errs
}

func validateProvider(p ProviderConfig) []string {
	if err := validateProviderType(p.Type, KnownProviderTypes); err != nil {
		return []string{fmt.Sprintf("provider %s: %v", p.Name, err)}
	}

	cfg, err := hetzner.LoadConfigFromMap(p.Settings)
	if err != nil {
		return []string{fmt.Sprintf("provider %s: %v", p.Name, err)}
	}
	err = cfg.Validate(true)
	if err == nil {
		return nil
	}

	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{fmt.Sprintf("provider %s: %v", p.Name, err)}
	}
	var errs []string
	for _, e := range joined.Unwrap() {
		errs = append(errs, fmt.Sprintf("provider %s: %v", p.Name, e))
	}
	return errs
}

func validateZone(z ZoneConfig, providers map[string]bool) []string {
	var errs []string

	if z.Name == "" {
		return []string{"zone: name is required"}
	}
	if !strings.HasSuffix(z.Name, ".") {
		errs = append(errs, fmt.Sprintf("zone %s: name must end with a dot", z.Name))
	}
	if z.Source == "" {
		errs = append(errs, fmt.Sprintf("zone %s: source is required", z.Name))
	}
	if len(z.Targets) == 0 {
		errs = append(errs, fmt.Sprintf("zone %s: at least one target is required", z.Name))
	}
	for _, target := range z.Targets {
		if !providers[target] {
			errs = append(errs, fmt.Sprintf("zone %s: unknown target provider %q", z.Name, target))
		}
	}

	return errs
}

// validateProviderType checks that the provider type is known.
func validateProviderType(typeName string, knownTypes []string) error {
	if typeName == "" {
		return errors.New("type is required")
	}
	for _, known := range knownTypes {
		if typeName == known {
			return nil
		}
	}
	return fmt.Errorf("unknown provider type: %q (known types: %s)", typeName, strings.Join(knownTypes, ", "))
}
