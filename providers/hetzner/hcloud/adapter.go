// Package hcloud adapts the RRSet-oriented Hetzner Cloud zones API to the
// flat record view the Hetzner provider works with.
//
// An RRSet holds every value of one (name, type) pair and is only writable
// as a whole. The adapter lists each value as its own record, minting a
// record id of the form "<rrset id>:<value>" so that a single value can be
// deleted again. These ids only mean something to the adapter that minted
// them and must not be persisted.
package hcloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	hc "github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/octodns/octodns-hetzner/pkg/httputil"
	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/rdata"
	"github.com/octodns/octodns-hetzner/pkg/zone"
	"github.com/octodns/octodns-hetzner/providers/hetzner/backend"
)

// DefaultTTL is used when neither an RRSet nor its zone carries a TTL.
const DefaultTTL = 3600

// Client implements backend.RRSetClient on top of the Hetzner Cloud API.
//
// Zones created through a Client are remembered for its lifetime because the
// API may not list them right away. That memory is never invalidated: a zone
// deleted and recreated elsewhere under a new id stays shadowed by the
// remembered one. A Client is not safe for concurrent use.
type Client struct {
	api    zonesAPI
	logger *slog.Logger

	created map[string]backend.Zone // zone id -> zone
}

var _ backend.RRSetClient = (*Client)(nil)

// Option is a functional option for configuring the Client.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	endpoint    string
	httpClient  *http.Client
	application string
	version     string
	api         zonesAPI
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client handed to hcloud-go.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// WithApplication sets the application name and version reported in the
// user agent.
func WithApplication(name, version string) Option {
	return func(o *options) {
		o.application = name
		o.version = version
	}
}

// withAPI replaces the SDK seam; used by tests.
func withAPI(api zonesAPI) Option {
	return func(o *options) {
		o.api = api
	}
}

// New creates a Client authenticating with token.
func New(token string, opts ...Option) *Client {
	o := options{
		logger:      slog.Default(),
		application: "octodns-hetzner",
	}
	for _, opt := range opts {
		opt(&o)
	}

	api := o.api
	if api == nil {
		httpClient := o.httpClient
		if httpClient == nil {
			httpClient = httputil.NewClient(&httputil.ClientConfig{Logger: o.logger})
		}
		sdkOpts := []hc.ClientOption{
			hc.WithToken(token),
			hc.WithApplication(o.application, o.version),
			hc.WithHTTPClient(httpClient),
		}
		if o.endpoint != "" {
			sdkOpts = append(sdkOpts, hc.WithEndpoint(o.endpoint))
		}
		api = &sdkZones{client: hc.NewClient(sdkOpts...)}
	}

	return &Client{
		api:     api,
		logger:  o.logger,
		created: make(map[string]backend.Zone),
	}
}

// ListZones returns every zone visible to the token.
func (c *Client) ListZones(ctx context.Context) ([]backend.Zone, error) {
	zones, err := c.api.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}
	return zones, nil
}

// GetZone looks a zone up by name. A zone without TTL reports DefaultTTL.
func (c *Client) GetZone(ctx context.Context, name string) (backend.Zone, error) {
	z, err := c.resolveZone(ctx, name)
	if err != nil {
		return backend.Zone{}, err
	}
	if z.TTL == 0 {
		z.TTL = DefaultTTL
	}
	return z, nil
}

// CreateZone creates a primary zone and remembers it for later lookups.
func (c *Client) CreateZone(ctx context.Context, name string, ttl int) (backend.Zone, error) {
	z, err := c.api.CreateZone(ctx, name, ttl)
	if err != nil {
		return backend.Zone{}, fmt.Errorf("creating zone %s: %w", name, err)
	}
	if z.Name == "" {
		z.Name = name
	}
	if z.TTL == 0 {
		z.TTL = ttl
	}
	if z.TTL == 0 {
		z.TTL = DefaultTTL
	}
	c.created[z.ID] = z

	c.logger.Info("created zone",
		slog.String("zone", z.Name),
		slog.String("zone_id", z.ID),
	)
	return z, nil
}

// ListRecords flattens every RRSet of a zone into one record per value.
// TXT values are unquoted and their chunks joined.
func (c *Client) ListRecords(ctx context.Context, zoneID string) ([]backend.Record, error) {
	z, sets, err := c.zoneRRSets(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	var records []backend.Record
	for _, set := range sets {
		ttl := set.TTL
		if ttl == 0 {
			ttl = z.TTL
		}
		if ttl == 0 {
			ttl = DefaultTTL
		}
		name := backend.NormalizeName(set.Name)
		for _, raw := range set.Values {
			value := raw
			if set.Type == zone.RecordTypeTXT {
				value = rdata.UnquoteTXT(raw)
			}
			records = append(records, backend.Record{
				ID:     recordID(set.ID, raw),
				ZoneID: zoneID,
				Name:   name,
				Type:   set.Type,
				Value:  value,
				TTL:    ttl,
			})
		}
	}
	return records, nil
}

// CreateRecord upserts a single-value RRSet.
func (c *Client) CreateRecord(ctx context.Context, zoneID, name string, t zone.RecordType, value string, ttl int) error {
	return c.UpsertRRSet(ctx, zoneID, name, t, []string{value}, ttl)
}

// DeleteRecord removes one value, addressed by a record id minted by
// ListRecords, from its RRSet. The RRSet is deleted when no value remains.
// Unknown RRSets are ignored.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	setID, value, ok := strings.Cut(recordID, ":")
	if !ok {
		return fmt.Errorf("deleting record: malformed record id %q", recordID)
	}

	z, sets, err := c.zoneRRSets(ctx, zoneID)
	if err != nil {
		return err
	}

	var target *rrset
	for i := range sets {
		if sets[i].ID == setID {
			target = &sets[i]
			break
		}
	}
	if target == nil {
		c.logger.Debug("rrset already gone",
			slog.String("zone_id", zoneID),
			slog.String("rrset_id", setID),
		)
		return nil
	}

	remaining := make([]string, 0, len(target.Values))
	for _, v := range target.Values {
		if v != value {
			remaining = append(remaining, v)
		}
	}

	if len(remaining) == 0 {
		if err := c.api.DeleteRRSet(ctx, z, *target); err != nil {
			return fmt.Errorf("deleting rrset %s: %w", target.ID, err)
		}
		return nil
	}
	_, err = c.replaceValues(ctx, z, *target, remaining, 0)
	return err
}

// UpsertRRSet creates the (name, type) RRSet or replaces its values. TXT
// values are quoted unless they already are. A non-zero ttl differing from
// the existing set's TTL is applied separately.
func (c *Client) UpsertRRSet(ctx context.Context, zoneID, name string, t zone.RecordType, values []string, ttl int) error {
	z, sets, err := c.zoneRRSets(ctx, zoneID)
	if err != nil {
		return err
	}

	wire := values
	if t == zone.RecordTypeTXT {
		wire = make([]string, 0, len(values))
		for _, v := range values {
			wire = append(wire, rdata.QuoteTXT(v))
		}
	}

	existing := findRRSet(sets, name, t)
	if existing == nil {
		if err := c.api.CreateRRSet(ctx, z, backend.WireName(name), t, wire, ttl); err != nil {
			return fmt.Errorf("creating rrset %s/%s: %w", backend.WireName(name), t, err)
		}
		c.logger.Debug("created rrset",
			slog.String("zone", z.Name),
			slog.String("name", name),
			slog.String("type", string(t)),
			slog.Int("values", len(wire)),
		)
		return nil
	}

	recreated, err := c.replaceValues(ctx, z, *existing, wire, ttl)
	if err != nil {
		return err
	}

	if !recreated && ttl > 0 && ttl != existing.TTL {
		if err := c.api.ChangeRRSetTTL(ctx, z, *existing, ttl); err != nil {
			if !errors.Is(err, provider.ErrUnsupported) {
				return fmt.Errorf("changing ttl of rrset %s: %w", existing.ID, err)
			}
			c.logger.Warn("rrset ttl change unsupported, keeping existing ttl",
				slog.String("rrset_id", existing.ID),
				slog.Int("ttl", existing.TTL),
			)
		}
	}
	return nil
}

// DeleteRRSet removes the whole (name, type) RRSet. A missing set is a no-op.
func (c *Client) DeleteRRSet(ctx context.Context, zoneID, name string, t zone.RecordType) error {
	z, sets, err := c.zoneRRSets(ctx, zoneID)
	if err != nil {
		return err
	}

	existing := findRRSet(sets, name, t)
	if existing == nil {
		return nil
	}
	if err := c.api.DeleteRRSet(ctx, z, *existing); err != nil {
		return fmt.Errorf("deleting rrset %s: %w", existing.ID, err)
	}
	return nil
}

// replaceValues rewrites an RRSet's values in place, falling back to delete
// and recreate when the API has no in-place call. A recreated set gets ttl,
// or its old TTL when ttl is 0; recreated reports that path was taken.
func (c *Client) replaceValues(ctx context.Context, z backend.Zone, set rrset, values []string, ttl int) (recreated bool, err error) {
	err = c.api.SetRRSetRecords(ctx, z, set, values)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, provider.ErrUnsupported) {
		return false, fmt.Errorf("setting records of rrset %s: %w", set.ID, err)
	}

	if ttl <= 0 {
		ttl = set.TTL
	}
	c.logger.Debug("in-place rrset update unsupported, recreating",
		slog.String("rrset_id", set.ID),
	)
	if err := c.api.DeleteRRSet(ctx, z, set); err != nil {
		return false, fmt.Errorf("recreating rrset %s: %w", set.ID, err)
	}
	if err := c.api.CreateRRSet(ctx, z, set.Name, set.Type, values, ttl); err != nil {
		return false, fmt.Errorf("recreating rrset %s: %w", set.ID, err)
	}
	return true, nil
}

func (c *Client) zoneRRSets(ctx context.Context, zoneID string) (backend.Zone, []rrset, error) {
	z, err := c.resolveZone(ctx, zoneID)
	if err != nil {
		return backend.Zone{}, nil, err
	}
	sets, err := c.api.ListRRSets(ctx, z)
	if err != nil {
		return backend.Zone{}, nil, fmt.Errorf("listing rrsets of zone %s: %w", z.Name, err)
	}
	return z, sets, nil
}

// resolveZone finds a zone by id or name: remembered zones first, then the
// API by id, then the API by name.
func (c *Client) resolveZone(ctx context.Context, idOrName string) (backend.Zone, error) {
	if z, ok := c.created[idOrName]; ok {
		return z, nil
	}
	name := strings.TrimSuffix(idOrName, ".")
	for _, z := range c.created {
		if z.Name == name {
			return z, nil
		}
	}

	z, err := c.api.GetZoneByID(ctx, idOrName)
	if err != nil {
		return backend.Zone{}, fmt.Errorf("getting zone %s: %w", idOrName, err)
	}
	if z != nil {
		return *z, nil
	}

	z, err = c.api.GetZoneByName(ctx, name)
	if err != nil {
		return backend.Zone{}, fmt.Errorf("getting zone %s: %w", idOrName, err)
	}
	if z != nil {
		return *z, nil
	}

	return backend.Zone{}, fmt.Errorf("zone %s: %w", idOrName, provider.ErrNotFound)
}

// findRRSet matches on type and on name with "@" and "" treated as equal.
func findRRSet(sets []rrset, name string, t zone.RecordType) *rrset {
	want := backend.NormalizeName(name)
	for i := range sets {
		if sets[i].Type == t && backend.NormalizeName(sets[i].Name) == want {
			return &sets[i]
		}
	}
	return nil
}

func recordID(setID, value string) string {
	return setID + ":" + value
}
