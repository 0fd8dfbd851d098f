// Package provider defines the contract DNS providers expose to the sync engine.
package provider

import (
	"context"

	"github.com/octodns/octodns-hetzner/pkg/zone"
)

// Record is one wire record as stored by a provider: a single value of a
// (name, type) group. Name is relative to the zone apex, "" being the apex.
type Record struct {
	ID     string
	ZoneID string
	Name   string
	Type   zone.RecordType
	Value  string
	TTL    int
}

// Provider defines the interface for DNS providers.
type Provider interface {
	// Name returns the provider instance name (e.g., "hetzner").
	Name() string

	// Type returns the provider type (e.g., "hetzner").
	Type() string

	// ListZones returns the fully qualified names of every zone the
	// credentials can see, sorted.
	ListZones(ctx context.Context) ([]string, error)

	// ZoneRecords returns the wire records of a zone. A missing zone yields
	// no records and no error.
	ZoneRecords(ctx context.Context, z *zone.Zone) ([]Record, error)

	// Populate loads the remote state of z into z and reports whether the
	// zone exists remotely. target is set when z will be planned against.
	Populate(ctx context.Context, z *zone.Zone, target, lenient bool) (bool, error)

	// Apply pushes the plan's changes and returns how many were applied.
	Apply(ctx context.Context, plan *zone.Plan) (int, error)
}

// SupportsType reports whether t is in the provider's supported set.
func SupportsType(supported []zone.RecordType, t zone.RecordType) bool {
	for _, s := range supported {
		if s == t {
			return true
		}
	}
	return false
}
