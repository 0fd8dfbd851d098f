package hetzner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/zone"
	"github.com/octodns/octodns-hetzner/providers/hetzner/backend"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient is an in-memory record-CRUD backend recording every call.
type fakeClient struct {
	zones   []backend.Zone
	records map[string][]backend.Record // zone id -> records

	listRecordsCalls int
	calls            []string
	nextID           int
}

func newFakeClient(zones ...backend.Zone) *fakeClient {
	return &fakeClient{
		zones:   zones,
		records: make(map[string][]backend.Record),
		nextID:  1000,
	}
}

func (f *fakeClient) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeClient) ListZones(ctx context.Context) ([]backend.Zone, error) {
	return f.zones, nil
}

func (f *fakeClient) GetZone(ctx context.Context, name string) (backend.Zone, error) {
	for _, z := range f.zones {
		if z.Name == name {
			return z, nil
		}
	}
	return backend.Zone{}, fmt.Errorf("zone %s: %w", name, provider.ErrNotFound)
}

func (f *fakeClient) CreateZone(ctx context.Context, name string, ttl int) (backend.Zone, error) {
	f.nextID++
	z := backend.Zone{ID: "z" + strconv.Itoa(f.nextID), Name: name, TTL: ttl}
	f.zones = append(f.zones, z)
	f.record("create-zone %s", name)
	return z, nil
}

func (f *fakeClient) ListRecords(ctx context.Context, zoneID string) ([]backend.Record, error) {
	f.listRecordsCalls++
	return f.records[zoneID], nil
}

func (f *fakeClient) CreateRecord(ctx context.Context, zoneID, name string, t zone.RecordType, value string, ttl int) error {
	f.nextID++
	f.records[zoneID] = append(f.records[zoneID], backend.Record{
		ID: strconv.Itoa(f.nextID), ZoneID: zoneID, Name: name, Type: t, Value: value, TTL: ttl,
	})
	f.record("create %s/%s %s ttl=%d", name, t, value, ttl)
	return nil
}

func (f *fakeClient) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	records := f.records[zoneID]
	for i, r := range records {
		if r.ID == recordID {
			f.records[zoneID] = append(records[:i:i], records[i+1:]...)
			break
		}
	}
	f.record("delete %s", recordID)
	return nil
}

// fakeRRSetClient adds whole-set operations to fakeClient.
type fakeRRSetClient struct {
	*fakeClient

	upserts [][]string
}

func newFakeRRSetClient(zones ...backend.Zone) *fakeRRSetClient {
	return &fakeRRSetClient{fakeClient: newFakeClient(zones...)}
}

func (f *fakeRRSetClient) UpsertRRSet(ctx context.Context, zoneID, name string, t zone.RecordType, values []string, ttl int) error {
	f.upserts = append(f.upserts, values)
	f.record("upsert %s/%s %q ttl=%d", name, t, values, ttl)
	return nil
}

func (f *fakeRRSetClient) DeleteRRSet(ctx context.Context, zoneID, name string, t zone.RecordType) error {
	f.record("delete-rrset %s/%s", name, t)
	return nil
}

func newTestProvider(t *testing.T, backendName string, client backend.Client) *Provider {
	t.Helper()
	p, err := New("hetzner", &Config{Backend: backendName}, WithClient(client), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func mustZone(t *testing.T, name string) *zone.Zone {
	t.Helper()
	z, err := zone.New(name)
	if err != nil {
		t.Fatal(err)
	}
	return z
}

func mustAdd(t *testing.T, z *zone.Zone, name string, rt zone.RecordType, ttl int, values ...zone.Value) *zone.Record {
	t.Helper()
	r, _, err := zone.NewRecord(z, name, rt, ttl, values, false)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if err := z.Add(r, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return r
}
