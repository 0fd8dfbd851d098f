package hcloud

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	hc "github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/zone"
	"github.com/octodns/octodns-hetzner/providers/hetzner/backend"
)

// rrset is the adapter's view of one provider RRSet. Name is the provider's
// name, "@" for the apex. TTL is 0 when the set inherits the zone TTL.
type rrset struct {
	ID     string
	Name   string
	Type   zone.RecordType
	TTL    int
	Values []string
}

// zonesAPI is the subset of the Hetzner Cloud zones API the adapter drives.
// Lookups return a nil zone, not an error, when nothing matches.
type zonesAPI interface {
	ListZones(ctx context.Context) ([]backend.Zone, error)
	GetZoneByID(ctx context.Context, id string) (*backend.Zone, error)
	GetZoneByName(ctx context.Context, name string) (*backend.Zone, error)
	CreateZone(ctx context.Context, name string, ttl int) (backend.Zone, error)

	ListRRSets(ctx context.Context, z backend.Zone) ([]rrset, error)
	CreateRRSet(ctx context.Context, z backend.Zone, name string, t zone.RecordType, values []string, ttl int) error
	SetRRSetRecords(ctx context.Context, z backend.Zone, set rrset, values []string) error
	ChangeRRSetTTL(ctx context.Context, z backend.Zone, set rrset, ttl int) error
	DeleteRRSet(ctx context.Context, z backend.Zone, set rrset) error
}

// sdkZones implements zonesAPI with hcloud-go.
type sdkZones struct {
	client *hc.Client
}

var _ zonesAPI = (*sdkZones)(nil)

func (s *sdkZones) ListZones(ctx context.Context) ([]backend.Zone, error) {
	zones, err := s.client.Zone.All(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]backend.Zone, 0, len(zones))
	for _, z := range zones {
		out = append(out, fromSDKZone(z))
	}
	return out, nil
}

func (s *sdkZones) GetZoneByID(ctx context.Context, id string) (*backend.Zone, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		// not an id; the caller falls back to a name lookup
		return nil, nil
	}
	z, _, err := s.client.Zone.GetByID(ctx, n)
	return lookupResult(z, err)
}

func (s *sdkZones) GetZoneByName(ctx context.Context, name string) (*backend.Zone, error) {
	z, _, err := s.client.Zone.GetByName(ctx, name)
	return lookupResult(z, err)
}

func (s *sdkZones) CreateZone(ctx context.Context, name string, ttl int) (backend.Zone, error) {
	res, _, err := s.client.Zone.Create(ctx, hc.ZoneCreateOpts{
		Name: name,
		Mode: hc.ZoneModePrimary,
		TTL:  optionalTTL(ttl),
	})
	if err != nil {
		return backend.Zone{}, mapError(err)
	}
	if err := s.wait(ctx, res.Action); err != nil {
		return backend.Zone{}, err
	}
	if res.Zone == nil {
		return backend.Zone{}, fmt.Errorf("creating zone %s: empty response", name)
	}
	return fromSDKZone(res.Zone), nil
}

func (s *sdkZones) ListRRSets(ctx context.Context, z backend.Zone) ([]rrset, error) {
	hz, err := toSDKZone(z)
	if err != nil {
		return nil, err
	}
	sets, err := s.client.Zone.AllRRSets(ctx, hz)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]rrset, 0, len(sets))
	for _, set := range sets {
		r := rrset{
			ID:   set.ID,
			Name: set.Name,
			Type: zone.RecordType(set.Type),
		}
		if set.TTL != nil {
			r.TTL = *set.TTL
		}
		for _, rec := range set.Records {
			r.Values = append(r.Values, rec.Value)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *sdkZones) CreateRRSet(ctx context.Context, z backend.Zone, name string, t zone.RecordType, values []string, ttl int) error {
	hz, err := toSDKZone(z)
	if err != nil {
		return err
	}
	res, _, err := s.client.Zone.CreateRRSet(ctx, hz, hc.ZoneRRSetCreateOpts{
		Name:    name,
		Type:    hc.ZoneRRSetType(t),
		TTL:     optionalTTL(ttl),
		Records: toSDKRecords(values),
	})
	if err != nil {
		return mapError(err)
	}
	return s.wait(ctx, res.Action)
}

func (s *sdkZones) SetRRSetRecords(ctx context.Context, z backend.Zone, set rrset, values []string) error {
	hs, err := toSDKRRSet(z, set)
	if err != nil {
		return err
	}
	action, _, err := s.client.Zone.SetRRSetRecords(ctx, hs, hc.ZoneRRSetSetRecordsOpts{
		Records: toSDKRecords(values),
	})
	if err != nil {
		return mapError(err)
	}
	return s.wait(ctx, action)
}

func (s *sdkZones) ChangeRRSetTTL(ctx context.Context, z backend.Zone, set rrset, ttl int) error {
	hs, err := toSDKRRSet(z, set)
	if err != nil {
		return err
	}
	action, _, err := s.client.Zone.ChangeRRSetTTL(ctx, hs, hc.ZoneRRSetChangeTTLOpts{
		TTL: optionalTTL(ttl),
	})
	if err != nil {
		return mapError(err)
	}
	return s.wait(ctx, action)
}

func (s *sdkZones) DeleteRRSet(ctx context.Context, z backend.Zone, set rrset) error {
	hs, err := toSDKRRSet(z, set)
	if err != nil {
		return err
	}
	res, _, err := s.client.Zone.DeleteRRSet(ctx, hs)
	if err != nil {
		return mapError(err)
	}
	return s.wait(ctx, res.Action)
}

func (s *sdkZones) wait(ctx context.Context, action *hc.Action) error {
	if action == nil {
		return nil
	}
	return mapError(s.client.Action.WaitFor(ctx, action))
}

func lookupResult(z *hc.Zone, err error) (*backend.Zone, error) {
	if err != nil {
		if hc.IsError(err, hc.ErrorCodeNotFound) {
			return nil, nil
		}
		return nil, mapError(err)
	}
	if z == nil {
		return nil, nil
	}
	out := fromSDKZone(z)
	return &out, nil
}

func fromSDKZone(z *hc.Zone) backend.Zone {
	return backend.Zone{
		ID:   strconv.FormatInt(z.ID, 10),
		Name: z.Name,
		TTL:  z.TTL,
	}
}

func toSDKZone(z backend.Zone) (*hc.Zone, error) {
	id, err := strconv.ParseInt(z.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("zone %s has non-numeric id %q", z.Name, z.ID)
	}
	return &hc.Zone{ID: id, Name: z.Name, TTL: z.TTL}, nil
}

func toSDKRRSet(z backend.Zone, set rrset) (*hc.ZoneRRSet, error) {
	hz, err := toSDKZone(z)
	if err != nil {
		return nil, err
	}
	return &hc.ZoneRRSet{
		Zone: hz,
		ID:   set.ID,
		Name: set.Name,
		Type: hc.ZoneRRSetType(set.Type),
	}, nil
}

func toSDKRecords(values []string) []hc.ZoneRRSetRecord {
	records := make([]hc.ZoneRRSetRecord, 0, len(values))
	for _, v := range values {
		records = append(records, hc.ZoneRRSetRecord{Value: v})
	}
	return records
}

func optionalTTL(ttl int) *int {
	if ttl <= 0 {
		return nil
	}
	return &ttl
}

// Error codes the API answers with when an endpoint is not available.
var unsupportedCodes = []hc.ErrorCode{
	hc.ErrorCode("not_implemented"),
	hc.ErrorCode("method_not_allowed"),
	hc.ErrorCode("unsupported"),
}

// mapError folds hcloud API errors into the provider error taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case hc.IsError(err, hc.ErrorCodeNotFound):
		return fmt.Errorf("%w: %w", provider.ErrNotFound, err)
	case hc.IsError(err, hc.ErrorCodeUnauthorized):
		return fmt.Errorf("%w: %w", provider.ErrUnauthorized, err)
	case errors.Is(err, errors.ErrUnsupported):
		return fmt.Errorf("%w: %w", provider.ErrUnsupported, err)
	}
	for _, code := range unsupportedCodes {
		if hc.IsError(err, code) {
			return fmt.Errorf("%w: %w", provider.ErrUnsupported, err)
		}
	}
	return err
}
