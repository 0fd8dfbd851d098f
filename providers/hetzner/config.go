package hetzner

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/octodns/octodns-hetzner/pkg/provider"
)

// Backend names.
const (
	BackendDNSAPI = "dnsapi"
	BackendHCloud = "hcloud"
)

// Backends lists the valid backend selectors.
var Backends = []string{BackendDNSAPI, BackendHCloud}

// Config holds Hetzner provider configuration.
type Config struct {
	Token    string // API token
	Backend  string // dnsapi (default) or hcloud
	Endpoint string // optional API endpoint override
}

// backendName returns the configured backend, defaulting to dnsapi.
func (c *Config) backendName() string {
	if c.Backend == "" {
		return BackendDNSAPI
	}
	return strings.ToLower(strings.TrimSpace(c.Backend))
}

// Validate checks the backend selector and, when requireToken is set, that
// a token is present. All problems are reported together.
func (c *Config) Validate(requireToken bool) error {
	var errs []error

	switch c.backendName() {
	case BackendDNSAPI, BackendHCloud:
	default:
		errs = append(errs, provider.ErrConfigNotOneOf("BACKEND", c.Backend, Backends))
	}
	if requireToken && c.Token == "" {
		errs = append(errs, provider.ErrConfigMissing("TOKEN"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("hetzner config validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// LoadConfigFromMap builds a Config from flat provider settings:
//   - TOKEN: API token
//   - TOKEN_FILE: file holding the token, takes precedence over TOKEN
//   - BACKEND: dnsapi or hcloud
//   - ENDPOINT: API endpoint override
func LoadConfigFromMap(m map[string]string) (*Config, error) {
	cfg := &Config{
		Token:    m["TOKEN"],
		Backend:  m["BACKEND"],
		Endpoint: m["ENDPOINT"],
	}

	if path := m["TOKEN_FILE"]; path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading TOKEN_FILE: %w", err)
		}
		cfg.Token = strings.TrimSpace(string(content))
	}

	return cfg, nil
}
