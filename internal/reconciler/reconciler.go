package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/octodns/octodns-hetzner/internal/config"
	"github.com/octodns/octodns-hetzner/internal/metrics"
	"github.com/octodns/octodns-hetzner/internal/zonefile"
	"github.com/octodns/octodns-hetzner/pkg/provider"
	"github.com/octodns/octodns-hetzner/pkg/zone"
)

// Config holds reconciler configuration options.
type Config struct {
	// DryRun if true, plans changes without applying them.
	DryRun bool

	// Lenient downgrades record validation failures to warnings, both in
	// zone files and in populated target state.
	Lenient bool
}

// DefaultConfig returns a Config that plans without applying.
func DefaultConfig() Config {
	return Config{DryRun: true}
}

// SourceFunc loads the desired state of a zone.
type SourceFunc func(cfg config.ZoneConfig, lenient bool) (*zone.Zone, error)

// Reconciler syncs configured zones to their target providers.
type Reconciler struct {
	providers *provider.Registry
	source    SourceFunc
	config    Config
	logger    *slog.Logger
}

// Option is a functional option for configuring the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger for the reconciler.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithConfig sets the reconciler configuration.
func WithConfig(cfg Config) Option {
	return func(r *Reconciler) {
		r.config = cfg
	}
}

// WithSource replaces the zone file loader.
func WithSource(source SourceFunc) Option {
	return func(r *Reconciler) {
		r.source = source
	}
}

// New creates a new Reconciler over the given provider instances.
func New(providers *provider.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		providers: providers,
		config:    DefaultConfig(),
		logger:    slog.Default(),
	}
	r.source = r.loadZoneFile

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Reconciler) loadZoneFile(cfg config.ZoneConfig, lenient bool) (*zone.Zone, error) {
	z, warnings, err := zonefile.Load(cfg.Source, cfg.Name, lenient)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		r.logger.Warn("invalid record in zone file",
			slog.String("zone", cfg.Name),
			slog.String("record", w.Record),
			slog.String("problem", w.Problem),
		)
	}
	return z, nil
}

// Reconcile syncs every zone to each of its targets. Failures of one
// zone/target pair are recorded in the result and do not stop the others.
// The returned error is only set when the context is cancelled.
func (r *Reconciler) Reconcile(ctx context.Context, zones []config.ZoneConfig) (*Result, error) {
	r.logger.Info("starting sync",
		slog.Bool("dry_run", r.config.DryRun),
		slog.Int("zones", len(zones)),
	)

	result := NewResult(r.config.DryRun)

	for _, zc := range zones {
		if err := ctx.Err(); err != nil {
			result.Complete()
			return result, err
		}

		desired, err := r.source(zc, r.config.Lenient)
		if err != nil {
			r.logger.Error("loading zone source failed",
				slog.String("zone", zc.Name),
				slog.String("error", err.Error()),
			)
			result.AddFailure(zc.Name, "", fmt.Errorf("loading source: %w", err))
			metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
			continue
		}

		for _, target := range zc.Targets {
			r.syncTarget(ctx, result, desired, target)
		}
	}

	result.Complete()

	r.logger.Info("sync complete",
		slog.Duration("duration", result.Duration()),
		slog.Int("zones_synced", result.ZonesSynced),
		slog.Int("changes", result.PlannedCount()),
		slog.Int("failed", len(result.Failed())+len(result.Failures)),
	)

	return result, nil
}

func (r *Reconciler) syncTarget(ctx context.Context, result *Result, desired *zone.Zone, target string) {
	start := time.Now()
	defer func() {
		metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
	}()

	logger := r.logger.With(slog.String("zone", desired.Name), slog.String("target", target))

	p, ok := r.providers.Get(target)
	if !ok {
		result.AddFailure(desired.Name, target, fmt.Errorf("unknown provider %q", target))
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return
	}

	plan, err := r.Plan(ctx, p, desired)
	if err != nil {
		logger.Error("planning failed", slog.String("error", err.Error()))
		result.AddFailure(desired.Name, target, err)
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return
	}

	result.AddPlan(target, plan)
	creates, updates, deletes := plan.Counts()
	metrics.ChangesPlannedTotal.WithLabelValues(target, "create").Add(float64(creates))
	metrics.ChangesPlannedTotal.WithLabelValues(target, "update").Add(float64(updates))
	metrics.ChangesPlannedTotal.WithLabelValues(target, "delete").Add(float64(deletes))

	if plan.Empty() {
		logger.Info("no changes")
		result.ZonesSynced++
		metrics.ReconciliationsTotal.WithLabelValues("noop").Inc()
		return
	}

	logger.Info("planned changes",
		slog.Int("create", creates),
		slog.Int("update", updates),
		slog.Int("delete", deletes),
	)

	if r.config.DryRun {
		result.ZonesSynced++
		metrics.ReconciliationsTotal.WithLabelValues("success").Inc()
		return
	}

	applied, err := p.Apply(ctx, plan)
	result.resolve(desired.Name, target, applied, err)
	if err != nil {
		logger.Error("apply failed",
			slog.Int("applied", applied),
			slog.String("error", err.Error()),
		)
		result.AddFailure(desired.Name, target, err)
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return
	}

	logger.Info("applied changes", slog.Int("applied", applied))
	result.ZonesSynced++
	metrics.ReconciliationsTotal.WithLabelValues("success").Inc()
}

// Plan populates the target's current state of desired's zone and returns
// the changes needed to reach desired.
func (r *Reconciler) Plan(ctx context.Context, p provider.Provider, desired *zone.Zone) (*zone.Plan, error) {
	existing, err := zone.New(desired.Name)
	if err != nil {
		return nil, err
	}
	exists, err := p.Populate(ctx, existing, true, r.config.Lenient)
	if err != nil {
		return nil, fmt.Errorf("populating target: %w", err)
	}
	return zone.NewPlan(existing, desired, exists), nil
}
