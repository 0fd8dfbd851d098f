package reconciler

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/octodns/octodns-hetzner/internal/config"
	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/zone"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordSpec describes a record the mock provider reports on populate.
type recordSpec struct {
	name   string
	typ    zone.RecordType
	ttl    int
	values []zone.Value
}

// testMockProvider implements provider.Provider for testing.
// It tracks every applied plan for verification.
type testMockProvider struct {
	name string

	existing    []recordSpec
	exists      bool
	populateErr error

	// applyLimit > 0 applies that many changes, then fails with applyErr.
	applyLimit int
	applyErr   error

	populated int
	applied   []*zone.Plan
}

func newTestMockProvider(name string, existing ...recordSpec) *testMockProvider {
	return &testMockProvider{name: name, existing: existing, exists: true}
}

func (m *testMockProvider) Name() string { return m.name }
func (m *testMockProvider) Type() string { return "mock" }

func (m *testMockProvider) ListZones(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (m *testMockProvider) ZoneRecords(ctx context.Context, z *zone.Zone) ([]provider.Record, error) {
	return nil, nil
}

func (m *testMockProvider) Populate(ctx context.Context, z *zone.Zone, target, lenient bool) (bool, error) {
	m.populated++
	if m.populateErr != nil {
		return false, m.populateErr
	}
	for _, spec := range m.existing {
		r, _, err := zone.NewRecord(z, spec.name, spec.typ, spec.ttl, spec.values, lenient)
		if err != nil {
			return false, err
		}
		if err := z.Add(r, lenient); err != nil {
			return false, err
		}
	}
	return m.exists, nil
}

func (m *testMockProvider) Apply(ctx context.Context, plan *zone.Plan) (int, error) {
	m.applied = append(m.applied, plan)
	if m.applyErr != nil {
		return m.applyLimit, m.applyErr
	}
	return len(plan.Changes), nil
}

var errMock = errors.New("mock failure")

// newRegistry registers the given mocks under their names.
func newRegistry(mocks ...*testMockProvider) *provider.Registry {
	registry := provider.NewRegistry()
	byName := make(map[string]*testMockProvider)
	for _, m := range mocks {
		byName[m.name] = m
	}
	registry.RegisterFactory("mock", func(name string, _ map[string]string) (provider.Provider, error) {
		return byName[name], nil
	})
	for _, m := range mocks {
		if err := registry.CreateInstance(m.name, "mock", nil); err != nil {
			panic(err)
		}
	}
	return registry
}

// staticSource serves desired zones from memory.
func staticSource(zones map[string]*zone.Zone) SourceFunc {
	return func(cfg config.ZoneConfig, _ bool) (*zone.Zone, error) {
		z, ok := zones[cfg.Name]
		if !ok {
			return nil, errors.New("no such zone file")
		}
		return z, nil
	}
}
