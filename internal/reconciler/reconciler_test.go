package reconciler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/octodns/octodns-hetzner/internal/config"
	"github.com/octodns/octodns-hetzner/pkg/zone"
)

func desiredZone(t *testing.T) *zone.Zone {
	t.Helper()
	z, err := zone.New("unit.tests.")
	if err != nil {
		t.Fatal(err)
	}
	add := func(name string, rt zone.RecordType, values ...zone.Value) {
		r, _, err := zone.NewRecord(z, name, rt, 300, values, false)
		if err != nil {
			t.Fatal(err)
		}
		if err := z.Add(r, false); err != nil {
			t.Fatal(err)
		}
	}
	add("", zone.RecordTypeA, zone.Text("1.2.3.4"))
	add("www", zone.RecordTypeA, zone.Text("2.2.2.2"))
	return z
}

var unitTestsZone = config.ZoneConfig{Name: "unit.tests.", Source: "unused", Targets: []string{"hetzner"}}

// staleTarget reports an apex A with an old value and a record to delete.
func staleTarget() *testMockProvider {
	return newTestMockProvider("hetzner",
		recordSpec{name: "", typ: zone.RecordTypeA, ttl: 300, values: []zone.Value{zone.Text("9.9.9.9")}},
		recordSpec{name: "old", typ: zone.RecordTypeTXT, ttl: 300, values: []zone.Value{zone.Text("bye")}},
	)
}

func newTestReconciler(t *testing.T, target *testMockProvider, dryRun bool) *Reconciler {
	t.Helper()
	return New(newRegistry(target),
		WithLogger(testLogger()),
		WithConfig(Config{DryRun: dryRun}),
		WithSource(staticSource(map[string]*zone.Zone{"unit.tests.": desiredZone(t)})),
	)
}

func TestReconcile_DryRun(t *testing.T) {
	target := staleTarget()
	r := newTestReconciler(t, target, true)

	result, err := r.Reconcile(context.Background(), []config.ZoneConfig{unitTestsZone})
	if err != nil {
		t.Fatal(err)
	}
	if len(target.applied) != 0 {
		t.Errorf("dry-run must not apply, got %d applies", len(target.applied))
	}
	if result.PlannedCount() != 3 {
		t.Fatalf("expected 3 planned changes, got %d: %v", result.PlannedCount(), result.Actions)
	}
	for _, a := range result.Actions {
		if a.Status != StatusSkipped {
			t.Errorf("expected skipped action, got %s", a)
		}
	}
	wantTypes := []ActionType{ActionDelete, ActionCreate, ActionUpdate}
	for i, want := range wantTypes {
		if result.Actions[i].Type != want {
			t.Errorf("action %d type = %s, want %s", i, result.Actions[i].Type, want)
		}
	}
	if result.ZonesSynced != 1 || result.HasErrors() {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestReconcile_Apply(t *testing.T) {
	target := staleTarget()
	r := newTestReconciler(t, target, false)

	result, err := r.Reconcile(context.Background(), []config.ZoneConfig{unitTestsZone})
	if err != nil {
		t.Fatal(err)
	}
	if len(target.applied) != 1 {
		t.Fatalf("expected one apply, got %d", len(target.applied))
	}
	if !target.applied[0].Exists {
		t.Error("plan should carry the populated exists flag")
	}
	if result.CreatedCount() != 1 || result.UpdatedCount() != 1 || result.DeletedCount() != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1",
			result.CreatedCount(), result.UpdatedCount(), result.DeletedCount())
	}
	if result.HasErrors() {
		t.Errorf("unexpected errors:\n%s", result.Summary())
	}
}

func TestReconcile_PartialApply(t *testing.T) {
	target := staleTarget()
	target.applyLimit = 1
	target.applyErr = errMock
	r := newTestReconciler(t, target, false)

	result, err := r.Reconcile(context.Background(), []config.ZoneConfig{unitTestsZone})
	if err != nil {
		t.Fatal(err)
	}
	if result.DeletedCount() != 1 {
		t.Errorf("expected the first change to succeed, got %d deletes", result.DeletedCount())
	}
	failed := result.Failed()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed actions, got %d", len(failed))
	}
	if failed[0].Error != errMock.Error() {
		t.Errorf("failed action error = %q", failed[0].Error)
	}
	if len(result.Failures) != 1 || !errors.Is(result.Failures[0].Err, errMock) {
		t.Errorf("expected apply failure, got %v", result.Failures)
	}
	if result.ZonesSynced != 0 {
		t.Errorf("failed target must not count as synced")
	}
}

func TestReconcile_NoChanges(t *testing.T) {
	target := newTestMockProvider("hetzner",
		recordSpec{name: "", typ: zone.RecordTypeA, ttl: 300, values: []zone.Value{zone.Text("1.2.3.4")}},
		recordSpec{name: "www", typ: zone.RecordTypeA, ttl: 300, values: []zone.Value{zone.Text("2.2.2.2")}},
	)
	r := newTestReconciler(t, target, false)

	result, err := r.Reconcile(context.Background(), []config.ZoneConfig{unitTestsZone})
	if err != nil {
		t.Fatal(err)
	}
	if len(target.applied) != 0 {
		t.Error("empty plan must not be applied")
	}
	if result.PlannedCount() != 0 || result.ZonesSynced != 1 {
		t.Errorf("unexpected result:\n%s", result.Summary())
	}
}

func TestReconcile_Failures(t *testing.T) {
	populateFails := newTestMockProvider("broken")
	populateFails.populateErr = errMock
	healthy := newTestMockProvider("hetzner")

	r := New(newRegistry(populateFails, healthy),
		WithLogger(testLogger()),
		WithConfig(Config{DryRun: false}),
		WithSource(staticSource(map[string]*zone.Zone{"unit.tests.": desiredZone(t)})),
	)

	zones := []config.ZoneConfig{
		{Name: "unit.tests.", Targets: []string{"broken", "missing", "hetzner"}},
		{Name: "nofile.tests.", Targets: []string{"hetzner"}},
	}
	result, err := r.Reconcile(context.Background(), zones)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Failures) != 3 {
		t.Fatalf("expected 3 failures, got %v", result.Failures)
	}
	wantSubstrings := []string{
		"unit.tests. -> broken: populating target: mock failure",
		`unit.tests. -> missing: unknown provider "missing"`,
		"nofile.tests.: loading source: no such zone file",
	}
	for i, want := range wantSubstrings {
		if got := result.Failures[i].String(); got != want {
			t.Errorf("failure %d = %q, want %q", i, got, want)
		}
	}
	if len(healthy.applied) != 1 || result.ZonesSynced != 1 {
		t.Errorf("healthy target should still sync, applied=%d synced=%d", len(healthy.applied), result.ZonesSynced)
	}
	if !strings.Contains(result.Summary(), "Failed: 3") {
		t.Errorf("summary missing failures:\n%s", result.Summary())
	}
}

func TestReconcile_ContextCancelled(t *testing.T) {
	target := staleTarget()
	r := newTestReconciler(t, target, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Reconcile(ctx, []config.ZoneConfig{unitTestsZone})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if target.populated != 0 {
		t.Error("no target should be populated after cancellation")
	}
}

func TestReconcile_ZoneFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit.tests.yaml")
	content := "'':\n  type: A\n  ttl: 300\n  value: 1.2.3.4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	target := newTestMockProvider("hetzner")
	target.exists = false
	r := New(newRegistry(target), WithLogger(testLogger()), WithConfig(Config{}))

	result, err := r.Reconcile(context.Background(), []config.ZoneConfig{
		{Name: "unit.tests.", Source: path, Targets: []string{"hetzner"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(target.applied) != 1 {
		t.Fatalf("expected one apply, got %d:\n%s", len(target.applied), result.Summary())
	}
	plan := target.applied[0]
	if plan.Exists {
		t.Error("plan should report the zone as missing")
	}
	if len(plan.Changes) != 1 || !strings.HasPrefix(plan.Changes[0].String(), "Create unit.tests. 300 A 1.2.3.4") {
		t.Errorf("unexpected plan %v", plan.Lines())
	}
}

func TestDefaultConfig(t *testing.T) {
	if !DefaultConfig().DryRun {
		t.Error("default config should not apply changes")
	}
}
