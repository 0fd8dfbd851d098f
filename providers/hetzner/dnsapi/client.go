// Package dnsapi implements the record-CRUD backend over the Hetzner DNS API.
package dnsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/octodns/octodns-hetzner/pkg/httputil"
	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/zone"
	"github.com/octodns/octodns-hetzner/providers/hetzner/backend"
)

const (
	// DefaultAPIEndpoint is the base URL of the Hetzner DNS API.
	DefaultAPIEndpoint = "https://dns.hetzner.com/api/v1"

	// TokenHeader carries the API token.
	TokenHeader = "Auth-API-Token"
)

// apiZone represents a zone from the Hetzner DNS API.
type apiZone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	TTL  int    `json:"ttl"`
}

// apiRecord represents a record from the Hetzner DNS API.
type apiRecord struct {
	ID     string `json:"id"`
	ZoneID string `json:"zone_id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	TTL    int    `json:"ttl"`
}

type pagination struct {
	Page     int  `json:"page"`
	NextPage *int `json:"next_page"`
}

type zonesResponse struct {
	Zones []apiZone `json:"zones"`
	Meta  struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

type zoneResponse struct {
	Zone apiZone `json:"zone"`
}

type recordsResponse struct {
	Records []apiRecord `json:"records"`
}

type createZoneRequest struct {
	Name string `json:"name"`
	TTL  *int   `json:"ttl"`
}

type createRecordRequest struct {
	Name   string `json:"name"`
	TTL    *int   `json:"ttl"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	ZoneID string `json:"zone_id"`
}

// Client is a Hetzner DNS API client.
type Client struct {
	apiEndpoint string
	userAgent   string
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ backend.Client = (*Client)(nil)

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. The client is expected to add
// the token header itself.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAPIEndpoint sets a custom API endpoint (useful for testing).
func WithAPIEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.apiEndpoint = endpoint
		}
	}
}

// WithUserAgent sets the User-Agent sent with every request. It has no
// effect together with WithHTTPClient.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a new Hetzner DNS API client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		apiEndpoint: DefaultAPIEndpoint,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = httputil.NewClient(&httputil.ClientConfig{
			UserAgent: c.userAgent,
			Headers:   map[string]string{TokenHeader: token},
			Logger:    c.logger,
		})
	}

	return c
}

// doRequest performs an HTTP request and decodes a JSON response into out
// when out is non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.apiEndpoint + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, provider.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, provider.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: unexpected status code %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}

// ListZones returns every zone, following pagination until the API stops
// reporting a later page.
func (c *Client) ListZones(ctx context.Context) ([]backend.Zone, error) {
	var zones []backend.Zone

	page := 1
	for {
		var resp zonesResponse
		query := url.Values{"page": {fmt.Sprint(page)}}
		if err := c.doRequest(ctx, http.MethodGet, "/zones", query, nil, &resp); err != nil {
			return nil, fmt.Errorf("listing zones: %w", err)
		}
		for _, z := range resp.Zones {
			zones = append(zones, toZone(z))
		}

		next := resp.Meta.Pagination.NextPage
		// 0, null and non-increasing values all mean there is no next page
		if next == nil || *next <= page {
			break
		}
		page = *next
	}

	c.logger.Debug("listed zones", slog.Int("count", len(zones)))
	return zones, nil
}

// GetZone looks a zone up by name.
func (c *Client) GetZone(ctx context.Context, name string) (backend.Zone, error) {
	var resp zonesResponse
	query := url.Values{"name": {name}}
	if err := c.doRequest(ctx, http.MethodGet, "/zones", query, nil, &resp); err != nil {
		return backend.Zone{}, fmt.Errorf("getting zone %s: %w", name, err)
	}
	if len(resp.Zones) == 0 {
		return backend.Zone{}, fmt.Errorf("getting zone %s: %w", name, provider.ErrNotFound)
	}
	return toZone(resp.Zones[0]), nil
}

// CreateZone creates a zone.
func (c *Client) CreateZone(ctx context.Context, name string, ttl int) (backend.Zone, error) {
	var resp zoneResponse
	req := createZoneRequest{Name: name, TTL: optionalTTL(ttl)}
	if err := c.doRequest(ctx, http.MethodPost, "/zones", nil, req, &resp); err != nil {
		return backend.Zone{}, fmt.Errorf("creating zone %s: %w", name, err)
	}

	c.logger.Info("created zone",
		slog.String("zone", name),
		slog.String("zone_id", resp.Zone.ID),
	)
	return toZone(resp.Zone), nil
}

// ListRecords returns the records of a zone with apex names normalized to "".
func (c *Client) ListRecords(ctx context.Context, zoneID string) ([]backend.Record, error) {
	var resp recordsResponse
	query := url.Values{"zone_id": {zoneID}}
	if err := c.doRequest(ctx, http.MethodGet, "/records", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	records := make([]backend.Record, 0, len(resp.Records))
	for _, r := range resp.Records {
		zoneRef := r.ZoneID
		if zoneRef == "" {
			zoneRef = zoneID
		}
		records = append(records, backend.Record{
			ID:     r.ID,
			ZoneID: zoneRef,
			Name:   backend.NormalizeName(r.Name),
			Type:   zone.RecordType(r.Type),
			Value:  r.Value,
			TTL:    r.TTL,
		})
	}

	c.logger.Debug("listed records",
		slog.String("zone_id", zoneID),
		slog.Int("count", len(records)),
	)
	return records, nil
}

// CreateRecord creates one record.
func (c *Client) CreateRecord(ctx context.Context, zoneID, name string, t zone.RecordType, value string, ttl int) error {
	req := createRecordRequest{
		Name:   backend.WireName(name),
		TTL:    optionalTTL(ttl),
		Type:   string(t),
		Value:  value,
		ZoneID: zoneID,
	}
	if err := c.doRequest(ctx, http.MethodPost, "/records", nil, req, nil); err != nil {
		return fmt.Errorf("creating %s record %q: %w", t, name, err)
	}

	c.logger.Debug("created record",
		slog.String("zone_id", zoneID),
		slog.String("name", name),
		slog.String("type", string(t)),
	)
	return nil
}

// DeleteRecord deletes one record by id.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/records/"+url.PathEscape(recordID), nil, nil, nil); err != nil {
		return fmt.Errorf("deleting record %s: %w", recordID, err)
	}

	c.logger.Debug("deleted record",
		slog.String("zone_id", zoneID),
		slog.String("record_id", recordID),
	)
	return nil
}

func toZone(z apiZone) backend.Zone {
	return backend.Zone{ID: z.ID, Name: z.Name, TTL: z.TTL}
}

func optionalTTL(ttl int) *int {
	if ttl <= 0 {
		return nil
	}
	return &ttl
}
