package hcloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/zone"
	"github.com/octodns/octodns-hetzner/providers/hetzner/backend"
)

type apiFailure struct {
	status int
	code   string
}

type apiRequest struct {
	method string
	path   string
	body   map[string]any
}

// cloudAPI serves zone 42 "unit.tests" the way the Hetzner Cloud API does
// and records every write. Actions complete immediately.
type cloudAPI struct {
	t *testing.T

	mu       sync.Mutex
	rrsets   []map[string]any
	failures map[string]apiFailure // "METHOD path" -> error response
	writes   []apiRequest
}

func newCloudAPI(t *testing.T, rrsets ...map[string]any) (*cloudAPI, *Client) {
	t.Helper()
	api := &cloudAPI{t: t, rrsets: rrsets, failures: make(map[string]apiFailure)}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return api, New("test-token", WithEndpoint(server.URL), WithLogger(testLogger()))
}

func cloudRRSet(name, typ string, ttl any, values ...string) map[string]any {
	records := make([]map[string]any, 0, len(values))
	for _, v := range values {
		records = append(records, map[string]any{"value": v, "comment": ""})
	}
	return map[string]any{
		"id":         name + "/" + typ,
		"name":       name,
		"type":       typ,
		"ttl":        ttl,
		"labels":     map[string]string{},
		"protection": map[string]bool{"change": false},
		"records":    records,
		"zone":       42,
	}
}

func cloudZone(id int, name string) map[string]any {
	return map[string]any{
		"id":         id,
		"name":       name,
		"ttl":        3600,
		"mode":       "primary",
		"status":     "ok",
		"created":    "2025-01-01T00:00:00Z",
		"labels":     map[string]string{},
		"protection": map[string]bool{"delete": false},
	}
}

func cloudAction(id int) map[string]any {
	return map[string]any{
		"id":        id,
		"command":   "test",
		"status":    "success",
		"progress":  100,
		"started":   "2025-01-01T00:00:00Z",
		"finished":  "2025-01-01T00:00:01Z",
		"resources": []any{},
		"error":     nil,
	}
}

func cloudMeta(total int) map[string]any {
	return map[string]any{"pagination": map[string]any{
		"page": 1, "per_page": 50, "previous_page": nil, "next_page": nil,
		"last_page": 1, "total_entries": total,
	}}
}

func (a *cloudAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		a.fail(w, apiFailure{status: http.StatusUnauthorized, code: "unauthorized"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if r.Method != http.MethodGet {
		req := apiRequest{method: r.Method, path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&req.body)
		a.writes = append(a.writes, req)
	}
	if f, ok := a.failures[key]; ok {
		a.fail(w, f)
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/zones":
		zones := []any{}
		if name := r.URL.Query().Get("name"); name == "" || name == "unit.tests" {
			zones = append(zones, cloudZone(42, "unit.tests"))
		}
		a.write(w, map[string]any{"zones": zones, "meta": cloudMeta(len(zones))})
	case r.Method == http.MethodGet && (path == "/zones/42" || path == "/zones/unit.tests"):
		a.write(w, map[string]any{"zone": cloudZone(42, "unit.tests")})
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/rrsets"):
		rrsets := []map[string]any{}
		if path == "/zones/42/rrsets" {
			rrsets = append(rrsets, a.rrsets...)
		}
		a.write(w, map[string]any{"rrsets": rrsets, "meta": cloudMeta(len(rrsets))})
	case r.Method == http.MethodGet && path == "/actions":
		a.write(w, map[string]any{"actions": []any{cloudAction(1)}, "meta": cloudMeta(1)})
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/zones/"):
		a.fail(w, apiFailure{status: http.StatusNotFound, code: "not_found"})
	case r.Method == http.MethodPost && path == "/zones":
		a.write(w, map[string]any{"zone": cloudZone(43, "new.tests"), "action": cloudAction(1)})
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/rrsets"):
		a.write(w, map[string]any{"rrset": cloudRRSet("new", "A", nil), "action": cloudAction(2)})
	case r.Method == http.MethodPost && strings.Contains(path, "/actions/"):
		a.write(w, map[string]any{"action": cloudAction(3)})
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/zones/42/rrsets/"):
		a.write(w, map[string]any{"action": cloudAction(4)})
	default:
		a.fail(w, apiFailure{status: http.StatusNotFound, code: "not_found"})
	}
}

func (a *cloudAPI) write(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.t.Errorf("encoding response: %v", err)
	}
}

func (a *cloudAPI) fail(w http.ResponseWriter, f apiFailure) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": f.code, "message": f.code, "details": nil},
	})
}

func (a *cloudAPI) requests() []apiRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]apiRequest(nil), a.writes...)
}

func requestLines(reqs []apiRequest) []string {
	lines := make([]string, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, r.method+" "+r.path)
	}
	return lines
}

func recordValues(t *testing.T, body map[string]any) []string {
	t.Helper()
	records, ok := body["records"].([]any)
	if !ok {
		t.Fatalf("request body has no records: %v", body)
	}
	var values []string
	for _, r := range records {
		values = append(values, r.(map[string]any)["value"].(string))
	}
	return values
}

func TestSDK_ListRecords(t *testing.T) {
	_, client := newCloudAPI(t,
		cloudRRSet("@", "TXT", nil, `"hello"`, `"ab" "cd"`),
		cloudRRSet("www", "A", 300, "1.2.3.4"),
	)

	records, err := client.ListRecords(context.Background(), "42")
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	want := []backend.Record{
		{ID: `@/TXT:"hello"`, ZoneID: "42", Name: "", Type: zone.RecordTypeTXT, Value: "hello", TTL: 3600},
		{ID: `@/TXT:"ab" "cd"`, ZoneID: "42", Name: "", Type: zone.RecordTypeTXT, Value: "abcd", TTL: 3600},
		{ID: "www/A:1.2.3.4", ZoneID: "42", Name: "www", Type: zone.RecordTypeA, Value: "1.2.3.4", TTL: 300},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestSDK_ErrorMapping(t *testing.T) {
	t.Run("missing zone", func(t *testing.T) {
		_, client := newCloudAPI(t)
		_, err := client.GetZone(context.Background(), "missing.tests.")
		if !provider.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("not found on rrsets", func(t *testing.T) {
		api, client := newCloudAPI(t)
		api.failures["GET /zones/42/rrsets"] = apiFailure{status: http.StatusNotFound, code: "not_found"}
		_, err := client.ListRecords(context.Background(), "42")
		if !provider.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		server := httptest.NewServer(&cloudAPI{t: t})
		defer server.Close()
		client := New("wrong-token", WithEndpoint(server.URL), WithLogger(testLogger()))

		_, err := client.ListZones(context.Background())
		if !provider.IsUnauthorized(err) {
			t.Errorf("expected unauthorized, got %v", err)
		}
	})

	t.Run("unsupported code", func(t *testing.T) {
		api, client := newCloudAPI(t, cloudRRSet("www", "A", 300, "9.9.9.9"))
		api.failures["POST /zones/42/rrsets/www/A/actions/change_ttl"] = apiFailure{status: http.StatusNotImplemented, code: "not_implemented"}
		api.failures["DELETE /zones/42/rrsets/www/A"] = apiFailure{status: http.StatusForbidden, code: "forbidden"}

		// the ttl change is skipped with a warning, the delete is a hard error
		if err := client.UpsertRRSet(context.Background(), "42", "www", zone.RecordTypeA, []string{"1.1.1.1"}, 60); err != nil {
			t.Errorf("UpsertRRSet: %v", err)
		}
		err := client.DeleteRRSet(context.Background(), "42", "www", zone.RecordTypeA)
		if err == nil || provider.IsUnsupported(err) || provider.IsNotFound(err) {
			t.Errorf("expected a plain error, got %v", err)
		}
	})
}

func TestSDK_UpsertAndDeleteRequests(t *testing.T) {
	api, client := newCloudAPI(t, cloudRRSet("@", "TXT", 300, `"old"`))
	ctx := context.Background()

	if err := client.UpsertRRSet(ctx, "42", "", zone.RecordTypeTXT, []string{"hello"}, 600); err != nil {
		t.Fatalf("UpsertRRSet existing: %v", err)
	}
	if err := client.UpsertRRSet(ctx, "42", "www", zone.RecordTypeA, []string{"1.2.3.4", "5.6.7.8"}, 0); err != nil {
		t.Fatalf("UpsertRRSet new: %v", err)
	}
	if err := client.DeleteRRSet(ctx, "42", "", zone.RecordTypeTXT); err != nil {
		t.Fatalf("DeleteRRSet: %v", err)
	}

	reqs := api.requests()
	want := []string{
		"POST /zones/42/rrsets/@/TXT/actions/set_records",
		"POST /zones/42/rrsets/@/TXT/actions/change_ttl",
		"POST /zones/42/rrsets",
		"DELETE /zones/42/rrsets/@/TXT",
	}
	if diff := cmp.Diff(want, requestLines(reqs)); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{`"hello"`}, recordValues(t, reqs[0].body)); diff != "" {
		t.Errorf("set_records values mismatch (-want +got):\n%s", diff)
	}
	if ttl := reqs[1].body["ttl"]; ttl != float64(600) {
		t.Errorf("change_ttl ttl = %v, want 600", ttl)
	}
	if reqs[2].body["name"] != "www" || reqs[2].body["type"] != "A" {
		t.Errorf("unexpected create body %v", reqs[2].body)
	}
	if diff := cmp.Diff([]string{"1.2.3.4", "5.6.7.8"}, recordValues(t, reqs[2].body)); diff != "" {
		t.Errorf("create values mismatch (-want +got):\n%s", diff)
	}
	if ttl, ok := reqs[2].body["ttl"]; ok && ttl != nil {
		t.Errorf("create without ttl sent ttl %v", ttl)
	}
}

func TestSDK_SetRecordsNotImplementedRecreates(t *testing.T) {
	api, client := newCloudAPI(t, cloudRRSet("@", "TXT", 300, `"old"`))
	api.failures["POST /zones/42/rrsets/@/TXT/actions/set_records"] = apiFailure{status: http.StatusNotImplemented, code: "not_implemented"}

	if err := client.UpsertRRSet(context.Background(), "42", "", zone.RecordTypeTXT, []string{"new"}, 900); err != nil {
		t.Fatalf("UpsertRRSet: %v", err)
	}

	reqs := api.requests()
	want := []string{
		"POST /zones/42/rrsets/@/TXT/actions/set_records",
		"DELETE /zones/42/rrsets/@/TXT",
		"POST /zones/42/rrsets",
	}
	if diff := cmp.Diff(want, requestLines(reqs)); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	create := reqs[2].body
	if create["name"] != "@" || create["type"] != "TXT" || create["ttl"] != float64(900) {
		t.Errorf("unexpected recreate body %v", create)
	}
	if diff := cmp.Diff([]string{`"new"`}, recordValues(t, create)); diff != "" {
		t.Errorf("recreate values mismatch (-want +got):\n%s", diff)
	}
}

func TestSDK_CreateZone(t *testing.T) {
	api, client := newCloudAPI(t)

	z, err := client.CreateZone(context.Background(), "new.tests", 0)
	if err != nil {
		t.Fatalf("CreateZone: %v", err)
	}
	if z.ID != "43" || z.Name != "new.tests" || z.TTL != 3600 {
		t.Errorf("CreateZone() = %+v", z)
	}

	reqs := api.requests()
	if diff := cmp.Diff([]string{"POST /zones"}, requestLines(reqs)); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	if reqs[0].body["name"] != "new.tests" || reqs[0].body["mode"] != "primary" {
		t.Errorf("unexpected create body %v", reqs[0].body)
	}

	// zone 43 is only known from the create response
	if _, err := client.ListRecords(context.Background(), "43"); err != nil {
		t.Errorf("ListRecords on created zone: %v", err)
	}
}

func TestToSDKZone_NonNumericID(t *testing.T) {
	if _, err := toSDKZone(backend.Zone{ID: "abc", Name: "unit.tests"}); err == nil {
		t.Error("expected error for non-numeric zone id")
	}
	set, err := toSDKRRSet(backend.Zone{ID: "42", Name: "unit.tests"}, rrset{ID: "@/A", Name: "@", Type: zone.RecordTypeA})
	if err != nil {
		t.Fatal(err)
	}
	if set.Zone.ID != 42 || set.Name != "@" || string(set.Type) != "A" {
		t.Errorf("toSDKRRSet() = %+v", set)
	}
}
