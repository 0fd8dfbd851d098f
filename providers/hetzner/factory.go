package hetzner

import (
	"github.com/octodns/octodns-hetzner/pkg/provider"
)

// NewFromMap creates a provider from flat configuration settings.
// This is used by the provider registry Factory pattern.
func NewFromMap(name string, config map[string]string, opts ...ProviderOption) (*Provider, error) {
	cfg, err := LoadConfigFromMap(config)
	if err != nil {
		return nil, err
	}
	return New(name, cfg, opts...)
}

// Factory returns a provider.Factory function for use with the provider registry.
func Factory(opts ...ProviderOption) provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		return NewFromMap(name, config, opts...)
	}
}
