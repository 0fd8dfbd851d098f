// Package hetzner implements the provider contract for Hetzner DNS, on
// either the record-based DNS API or the RRSet-based Cloud API.
package hetzner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/octodns/octodns-hetzner/internal/metrics"
	"github.com/octodns/octodns-hetzner/pkg/httputil"
	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/rdata"
	"github.com/octodns/octodns-hetzner/pkg/zone"
	"github.com/octodns/octodns-hetzner/providers/hetzner/backend"
	"github.com/octodns/octodns-hetzner/providers/hetzner/dnsapi"
	"github.com/octodns/octodns-hetzner/providers/hetzner/hcloud"
)

// ProviderType is the registry type name.
const ProviderType = "hetzner"

// DefaultTTL is used for records when neither they nor their zone carry a TTL.
const DefaultTTL = 3600

// SupportedTypes lists the record types the provider manages.
var SupportedTypes = []zone.RecordType{
	zone.RecordTypeA,
	zone.RecordTypeAAAA,
	zone.RecordTypeCAA,
	zone.RecordTypeCNAME,
	zone.RecordTypeDS,
	zone.RecordTypeMX,
	zone.RecordTypeNS,
	zone.RecordTypePTR,
	zone.RecordTypeSRV,
	zone.RecordTypeTLSA,
	zone.RecordTypeTXT,
}

// Provider implements provider.Provider for Hetzner. The backend client and
// its apply strategy are fixed at construction. A Provider is not safe for
// concurrent use.
type Provider struct {
	name     string
	backend  string
	client   backend.Client
	strategy applyStrategy
	codec    *rdata.Codec
	cache    *zoneCache
	logger   *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	logger     *slog.Logger
	client     backend.Client
	httpClient *http.Client
	version    string
}

// WithLogger sets a custom logger for the provider and its clients.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(o *providerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClient injects the backend client instead of building one from the
// token. An hcloud backend requires a backend.RRSetClient.
func WithClient(client backend.Client) ProviderOption {
	return func(o *providerOptions) {
		o.client = client
	}
}

// WithHTTPClient sets the HTTP client the backend client is built with.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(o *providerOptions) {
		o.httpClient = httpClient
	}
}

// WithVersion sets the version reported to the API.
func WithVersion(version string) ProviderOption {
	return func(o *providerOptions) {
		o.version = version
	}
}

// New creates a Hetzner provider. An unknown backend fails here, naming the
// value and the allowed set.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	o := providerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := config.Validate(o.client == nil); err != nil {
		return nil, err
	}

	logger := o.logger.With(slog.String("provider", name))
	p := &Provider{
		name:    name,
		backend: config.backendName(),
		codec:   rdata.New(rdata.WithLogger(logger)),
		cache:   newZoneCache(),
		logger:  logger,
	}

	p.client = o.client
	if p.client == nil {
		p.client = newClient(p.backend, config, o, logger)
	}

	switch p.backend {
	case BackendHCloud:
		rrsets, ok := p.client.(backend.RRSetClient)
		if !ok {
			return nil, fmt.Errorf("backend %s requires an RRSet client, got %T", p.backend, p.client)
		}
		p.strategy = &rrsetStrategy{client: rrsets, codec: p.codec}
	default:
		p.strategy = &recordStrategy{client: p.client, codec: p.codec, logger: logger}
	}

	logger.Debug("provider created", slog.String("backend", p.backend))
	return p, nil
}

func newClient(backendName string, config *Config, o providerOptions, logger *slog.Logger) backend.Client {
	if backendName == BackendHCloud {
		return hcloud.New(config.Token,
			hcloud.WithLogger(logger),
			hcloud.WithEndpoint(config.Endpoint),
			hcloud.WithHTTPClient(o.httpClient),
			hcloud.WithApplication("octodns-hetzner", o.version),
		)
	}
	return dnsapi.NewClient(config.Token,
		dnsapi.WithLogger(logger),
		dnsapi.WithUserAgent(userAgent(o.version)),
		dnsapi.WithAPIEndpoint(config.Endpoint),
		dnsapi.WithHTTPClient(o.httpClient),
	)
}

func userAgent(version string) string {
	if version == "" {
		return httputil.DefaultUserAgent
	}
	return "octodns-hetzner/" + version
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "hetzner".
func (p *Provider) Type() string {
	return ProviderType
}

// Backend returns the selected backend name.
func (p *Provider) Backend() string {
	return p.backend
}

// ListZones returns the sorted FQDNs of every named zone.
func (p *Provider) ListZones(ctx context.Context) ([]string, error) {
	zones, err := p.client.ListZones(ctx)
	if err != nil {
		p.countError("list_zones")
		return nil, provider.WrapError(p.name, "list zones", err)
	}

	names := make([]string, 0, len(zones))
	for _, z := range zones {
		if z.Name == "" {
			continue
		}
		names = append(names, z.Name+".")
	}
	sort.Strings(names)
	return names, nil
}

// zoneMetadata resolves a zone by FQDN, cache first.
func (p *Provider) zoneMetadata(ctx context.Context, fqdn string) (backend.Zone, error) {
	if z, ok := p.cache.zone(fqdn); ok {
		return z, nil
	}
	z, err := p.client.GetZone(ctx, strings.TrimSuffix(fqdn, "."))
	if err != nil {
		return backend.Zone{}, err
	}
	p.cache.storeZone(fqdn, z)
	return z, nil
}

// ZoneRecords returns the zone's wire records, cache first. A zone missing
// remotely has no records.
func (p *Provider) ZoneRecords(ctx context.Context, z *zone.Zone) ([]provider.Record, error) {
	records, _, err := p.zoneRecords(ctx, z.Name)
	if err != nil {
		p.countError("zone_records")
		return nil, provider.WrapError(p.name, "zone records", err)
	}
	return records, nil
}

func (p *Provider) zoneRecords(ctx context.Context, fqdn string) ([]backend.Record, bool, error) {
	if records, ok := p.cache.zoneRecords(fqdn); ok {
		return records, true, nil
	}

	meta, err := p.zoneMetadata(ctx, fqdn)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	records, err := p.client.ListRecords(ctx, meta.ID)
	if err != nil {
		return nil, false, err
	}
	p.cache.storeRecords(fqdn, records)
	return records, true, nil
}

type groupKey struct {
	name string
	typ  zone.RecordType
}

// Populate decodes the remote records of z into z and reports whether the
// zone exists remotely.
func (p *Provider) Populate(ctx context.Context, z *zone.Zone, target, lenient bool) (bool, error) {
	p.logger.Debug("populate",
		slog.String("zone", z.Name),
		slog.Bool("target", target),
		slog.Bool("lenient", lenient),
	)

	records, exists, err := p.zoneRecords(ctx, z.Name)
	if err != nil {
		p.countError("populate")
		return false, provider.WrapError(p.name, "populate", err)
	}

	defaultTTL := DefaultTTL
	if meta, ok := p.cache.zone(z.Name); ok && meta.TTL > 0 {
		defaultTTL = meta.TTL
	}

	groups := make(map[groupKey][]backend.Record)
	var order []groupKey
	for _, r := range records {
		if !provider.SupportsType(SupportedTypes, r.Type) {
			p.logger.Warn("skipping unsupported record",
				slog.String("zone", z.Name),
				slog.String("name", r.Name),
				slog.String("type", string(r.Type)),
			)
			metrics.RecordsSkippedTotal.WithLabelValues(p.name, "unsupported_type").Inc()
			continue
		}
		key := groupKey{name: r.Name, typ: r.Type}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	before := z.Len()
	for _, key := range order {
		group := groups[key]
		rows := make([]string, 0, len(group))
		for _, r := range group {
			rows = append(rows, r.Value)
		}

		values, err := p.codec.Decode(key.typ, rows)
		if err != nil {
			p.countError("populate")
			return false, provider.WrapError(p.name, "populate", err)
		}

		ttl := group[0].TTL
		if ttl == 0 {
			ttl = defaultTTL
		}

		rec, warnings, err := zone.NewRecord(z, key.name, key.typ, ttl, values, lenient)
		if err != nil {
			return false, provider.WrapError(p.name, "populate", err)
		}
		for _, w := range warnings {
			p.logger.Warn("invalid record",
				slog.String("record", rec.FQDN()),
				slog.String("type", string(rec.Type)),
				slog.String("problem", w),
			)
		}
		if err := z.Add(rec, lenient); err != nil {
			return false, provider.WrapError(p.name, "populate", err)
		}
	}

	found := z.Len() - before
	metrics.ZoneRecords.WithLabelValues(p.name, z.Name).Set(float64(found))
	p.logger.Info("populated zone",
		slog.String("zone", z.Name),
		slog.Int("records", found),
		slog.Bool("exists", exists),
	)
	return exists, nil
}

// Apply pushes the plan's changes in plan order, creating the zone first
// when it does not exist. The zone's cached records are dropped afterwards.
func (p *Provider) Apply(ctx context.Context, plan *zone.Plan) (int, error) {
	if plan == nil || plan.Empty() {
		return 0, nil
	}
	desired := plan.Desired

	start := time.Now()
	defer func() {
		metrics.ApplyDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	}()

	p.logger.Debug("apply",
		slog.String("zone", desired.Name),
		slog.Int("changes", len(plan.Changes)),
	)

	zoneID, err := p.ensureZone(ctx, desired)
	if err != nil {
		p.countError("apply")
		return 0, provider.WrapError(p.name, "apply", err)
	}

	applied := 0
	for _, change := range plan.Changes {
		if err := p.applyChange(ctx, zoneID, desired.Name, change); err != nil {
			p.countError("apply")
			return applied, provider.WrapError(p.name, "apply", fmt.Errorf("%s: %w", change, err))
		}
		applied++
		metrics.ChangesAppliedTotal.WithLabelValues(p.name, changeKind(change)).Inc()
		p.logger.Info("applied change", slog.String("change", change.String()))
	}

	p.cache.evictRecords(desired.Name)
	return applied, nil
}

func (p *Provider) ensureZone(ctx context.Context, desired *zone.Zone) (string, error) {
	meta, err := p.zoneMetadata(ctx, desired.Name)
	if err == nil {
		return meta.ID, nil
	}
	if !provider.IsNotFound(err) {
		return "", err
	}

	p.logger.Info("zone does not exist, creating", slog.String("zone", desired.Name))
	meta, err = p.client.CreateZone(ctx, desired.Unqualified(), 0)
	if err != nil {
		return "", err
	}
	p.cache.storeZone(desired.Name, meta)
	return meta.ID, nil
}

func (p *Provider) applyChange(ctx context.Context, zoneID, fqdn string, change zone.Change) error {
	switch c := change.(type) {
	case zone.Create:
		return p.strategy.Create(ctx, zoneID, c.New)
	case zone.Update:
		current, _, err := p.zoneRecords(ctx, fqdn)
		if err != nil {
			return err
		}
		return p.strategy.Update(ctx, zoneID, c.Existing, c.New, current)
	case zone.Delete:
		current, _, err := p.zoneRecords(ctx, fqdn)
		if err != nil {
			return err
		}
		return p.strategy.Delete(ctx, zoneID, c.Existing, current)
	default:
		return errors.New("unknown change kind")
	}
}

func (p *Provider) countError(operation string) {
	metrics.ProviderErrorsTotal.WithLabelValues(p.name, operation).Inc()
}

func changeKind(change zone.Change) string {
	switch change.(type) {
	case zone.Create:
		return "create"
	case zone.Update:
		return "update"
	case zone.Delete:
		return "delete"
	}
	return "unknown"
}
