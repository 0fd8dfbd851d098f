package config

import (
	"os"
	"strings"
)

// overridableSettings are the provider settings that may be set from the
// environment, e.g. OCTODNS_HETZNER_TOKEN or OCTODNS_HETZNER_TOKEN_FILE.
var overridableSettings = []string{"TOKEN", "TOKEN_FILE", "BACKEND", "ENDPOINT"}

// applyEnvOverrides lets OCTODNS_<PROVIDER>_<SETTING> variables win over
// the file. A _FILE secret still takes precedence over a direct token when
// the provider reads its settings.
func applyEnvOverrides(cfg *Config) {
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Settings == nil {
			p.Settings = make(map[string]string)
		}
		prefix := envPrefix(p.Name)
		for _, key := range overridableSettings {
			if value := os.Getenv(prefix + key); value != "" {
				p.Settings[key] = value
			}
		}
	}
}

// normalizeInstanceName converts an instance name to environment variable format.
// Example: "hetzner-cloud" → "HETZNER_CLOUD"
func normalizeInstanceName(name string) string {
	normalized := strings.ToUpper(name)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}

// envPrefix creates the full environment variable prefix for a provider instance.
// Example: "hetzner-cloud" → "OCTODNS_HETZNER_CLOUD_"
func envPrefix(instanceName string) string {
	return "OCTODNS_" + normalizeInstanceName(instanceName) + "_"
}
