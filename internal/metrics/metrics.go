// Package metrics provides Prometheus metrics for octodns-hetzner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names use the octodns_hetzner_ prefix.
const (
	Namespace = "octodns_hetzner"
)

// Registry holds every metric of this package. It is separate from the
// default registry so textfile exports only carry these series.
var Registry = prometheus.NewRegistry()

var (
	// BuildInfo is always 1, labelled with version information.
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "build_info",
			Help:      "Build information.",
		},
		[]string{"version", "go_version"},
	)

	// ReconciliationsTotal counts zone syncs by outcome (success, error, noop).
	ReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconciliations_total",
			Help:      "Zone/target syncs by status.",
		},
		[]string{"status"},
	)

	// ReconciliationDuration observes the wall time of one zone sync.
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Duration of a zone/target sync.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ChangesAppliedTotal counts applied changes by kind (create, update, delete).
	ChangesAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "changes_applied_total",
			Help:      "Changes applied to a provider.",
		},
		[]string{"provider", "kind"},
	)

	// ChangesPlannedTotal counts planned changes by kind, applied or not.
	ChangesPlannedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "changes_planned_total",
			Help:      "Changes computed by planning.",
		},
		[]string{"provider", "kind"},
	)

	// ProviderErrorsTotal counts failed provider operations.
	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_errors_total",
			Help:      "Failed provider operations.",
		},
		[]string{"provider", "operation"},
	)

	// ZoneRecords is the number of records found by the last populate.
	ZoneRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "zone_records",
			Help:      "Records found in a zone by the last populate.",
		},
		[]string{"provider", "zone"},
	)

	// RecordsSkippedTotal counts wire records ignored during populate.
	RecordsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_skipped_total",
			Help:      "Wire records skipped during populate.",
		},
		[]string{"provider", "reason"},
	)

	// ApplyDuration observes the wall time of one provider apply.
	ApplyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "apply_duration_seconds",
			Help:      "Duration of a provider apply.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

func init() {
	Registry.MustRegister(
		BuildInfo,
		ReconciliationsTotal,
		ReconciliationDuration,
		ChangesAppliedTotal,
		ChangesPlannedTotal,
		ProviderErrorsTotal,
		ZoneRecords,
		RecordsSkippedTotal,
		ApplyDuration,
	)
}

// SetBuildInfo records the running version.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// WriteTextfile writes every metric in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
