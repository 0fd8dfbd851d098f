package hcloud

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/zone"
	"github.com/octodns/octodns-hetzner/providers/hetzner/backend"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeZones is an in-memory zonesAPI recording every write.
type fakeZones struct {
	zones  []backend.Zone
	rrsets map[string][]rrset // zone id -> sets

	// hidden zone ids are not returned by lookups, as right after creation
	hidden map[string]bool

	setRecordsErr error
	changeTTLErr  error

	calls  []string
	nextID int
}

func newFakeZones(zones ...backend.Zone) *fakeZones {
	return &fakeZones{
		zones:  zones,
		rrsets: make(map[string][]rrset),
		hidden: make(map[string]bool),
		nextID: 100,
	}
}

func (f *fakeZones) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeZones) ListZones(ctx context.Context) ([]backend.Zone, error) {
	return f.zones, nil
}

func (f *fakeZones) GetZoneByID(ctx context.Context, id string) (*backend.Zone, error) {
	for _, z := range f.zones {
		if z.ID == id && !f.hidden[z.ID] {
			z := z
			return &z, nil
		}
	}
	return nil, nil
}

func (f *fakeZones) GetZoneByName(ctx context.Context, name string) (*backend.Zone, error) {
	for _, z := range f.zones {
		if z.Name == name && !f.hidden[z.ID] {
			z := z
			return &z, nil
		}
	}
	return nil, nil
}

func (f *fakeZones) CreateZone(ctx context.Context, name string, ttl int) (backend.Zone, error) {
	f.nextID++
	z := backend.Zone{ID: strconv.Itoa(f.nextID), Name: name, TTL: ttl}
	f.zones = append(f.zones, z)
	f.hidden[z.ID] = true
	f.record("create-zone %s", name)
	return z, nil
}

func (f *fakeZones) ListRRSets(ctx context.Context, z backend.Zone) ([]rrset, error) {
	// hand out copies so the adapter cannot mutate fake state
	sets := make([]rrset, 0, len(f.rrsets[z.ID]))
	for _, s := range f.rrsets[z.ID] {
		s.Values = append([]string(nil), s.Values...)
		sets = append(sets, s)
	}
	return sets, nil
}

func (f *fakeZones) CreateRRSet(ctx context.Context, z backend.Zone, name string, t zone.RecordType, values []string, ttl int) error {
	f.record("create %s/%s %v ttl=%d", name, t, values, ttl)
	f.rrsets[z.ID] = append(f.rrsets[z.ID], rrset{
		ID:     name + "/" + string(t),
		Name:   name,
		Type:   t,
		TTL:    ttl,
		Values: append([]string(nil), values...),
	})
	return nil
}

func (f *fakeZones) SetRRSetRecords(ctx context.Context, z backend.Zone, set rrset, values []string) error {
	if f.setRecordsErr != nil {
		return f.setRecordsErr
	}
	f.record("set %s %v", set.ID, values)
	for i := range f.rrsets[z.ID] {
		if f.rrsets[z.ID][i].ID == set.ID {
			f.rrsets[z.ID][i].Values = append([]string(nil), values...)
			return nil
		}
	}
	return fmt.Errorf("rrset %s: %w", set.ID, provider.ErrNotFound)
}

func (f *fakeZones) ChangeRRSetTTL(ctx context.Context, z backend.Zone, set rrset, ttl int) error {
	if f.changeTTLErr != nil {
		return f.changeTTLErr
	}
	f.record("ttl %s %d", set.ID, ttl)
	for i := range f.rrsets[z.ID] {
		if f.rrsets[z.ID][i].ID == set.ID {
			f.rrsets[z.ID][i].TTL = ttl
		}
	}
	return nil
}

func (f *fakeZones) DeleteRRSet(ctx context.Context, z backend.Zone, set rrset) error {
	f.record("delete %s", set.ID)
	sets := f.rrsets[z.ID]
	for i := range sets {
		if sets[i].ID == set.ID {
			f.rrsets[z.ID] = append(sets[:i], sets[i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestClient(api *fakeZones) *Client {
	return New("token", withAPI(api), WithLogger(testLogger()))
}
