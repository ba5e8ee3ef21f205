package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counters for the data-integrity gaps the dashboard tolerates silently:
// they never fail a request, but they should be visible on /metrics so a
// drifting upstream data source shows up in monitoring instead of being
// swallowed.
var (
	ReconcileSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acadboard_reconcile_logs_skipped_total",
		Help: "Malformed or unmatchable log entries skipped during daily reconciliation.",
	})

	SaveSubjectsUnmapped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acadboard_save_subjects_unmapped_total",
		Help: "Subjects skipped at save time because no backend subject id was resolvable.",
	})

	SaveRollsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acadboard_save_rolls_dropped_total",
		Help: "Log entries dropped at save time because the roll number was not in the roster.",
	})

	NotMarkedClamped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acadboard_stats_not_marked_clamped_total",
		Help: "Times the not-marked count was clamped to zero because logs outnumbered the roster.",
	})

	UpstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acadboard_upstream_errors_total",
		Help: "Failed upstream API calls by endpoint.",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(
		ReconcileSkipped,
		SaveSubjectsUnmapped,
		SaveRollsDropped,
		NotMarkedClamped,
		UpstreamErrors,
	)
}
