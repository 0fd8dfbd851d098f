// Package backend defines the client capabilities the Hetzner provider drives.
// Two implementations exist: a record-CRUD client (package dnsapi) and an
// RRSet client (package hcloud).
package backend

import (
	"context"

	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/zone"
)

// ApexName is the provider's marker for the zone apex.
const ApexName = "@"

// Zone is the provider-side identity and default TTL of a zone.
type Zone struct {
	ID   string
	Name string // without trailing dot
	TTL  int    // 0 when the provider reports none
}

// Record is one flat wire record. Name uses "" for the apex.
type Record = provider.Record

// Client is the capability set shared by both backends.
type Client interface {
	// ListZones returns every zone visible to the credentials.
	ListZones(ctx context.Context) ([]Zone, error)

	// GetZone looks a zone up by name (without trailing dot). It returns
	// an error wrapping provider.ErrNotFound when the zone is absent.
	GetZone(ctx context.Context, name string) (Zone, error)

	// CreateZone creates a zone. A ttl of 0 leaves the provider default.
	CreateZone(ctx context.Context, name string, ttl int) (Zone, error)

	// ListRecords returns the flat records of a zone.
	ListRecords(ctx context.Context, zoneID string) ([]Record, error)

	// CreateRecord creates exactly one wire record.
	CreateRecord(ctx context.Context, zoneID, name string, t zone.RecordType, value string, ttl int) error

	// DeleteRecord removes exactly one wire record.
	DeleteRecord(ctx context.Context, zoneID, recordID string) error
}

// RRSetClient is a Client whose native unit is the whole (name, type) set.
type RRSetClient interface {
	Client

	// UpsertRRSet creates the set or replaces its values. ttl 0 means inherit.
	UpsertRRSet(ctx context.Context, zoneID, name string, t zone.RecordType, values []string, ttl int) error

	// DeleteRRSet removes the whole set; a missing set is not an error.
	DeleteRRSet(ctx context.Context, zoneID, name string, t zone.RecordType) error
}

// NormalizeName maps the provider's apex marker to "".
func NormalizeName(name string) string {
	if name == ApexName {
		return ""
	}
	return name
}

// WireName maps "" to the provider's apex marker.
func WireName(name string) string {
	if name == "" {
		return ApexName
	}
	return name
}
