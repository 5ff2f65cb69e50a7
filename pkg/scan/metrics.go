package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCreated           = "created"
	OutcomeCacheHit          = "cache_hit"
	OutcomeConflictRecovered = "conflict_recovered"
	OutcomeInvalid           = "invalid"
	OutcomeArchiveFailed     = "archive_failed"
	OutcomeAssessUnavailable = "assess_unavailable"
	OutcomeAssessBadData     = "assess_bad_data"
	OutcomePersistFailed     = "persist_failed"
)

type Metrics struct {
	Scans             *prometheus.CounterVec
	CacheLookupErrors prometheus.Counter
	StageDuration     *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Scans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "label_scanner",
			Name:      "scans_total",
			Help:      "Label scan requests by outcome.",
		}, []string{"outcome"}),
		CacheLookupErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "label_scanner",
			Name:      "cache_lookup_errors_total",
			Help:      "Scan cache pre-check lookups that failed and were treated as misses.",
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "label_scanner",
			Name:      "stage_duration_seconds",
			Help:      "Duration of external pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}
