// Package metrics exposes Prometheus instrumentation for the hunter
// pipeline: feed ingestion, searches, and fill submissions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sighunter",
		Subsystem: "orderbook",
		Name:      "events_ingested_total",
		Help:      "Count of feed events applied or deduplicated.",
	}, []string{"status"})

	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sighunter",
		Subsystem: "search",
		Name:      "searches_total",
		Help:      "Count of completed searches by outcome.",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sighunter",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of searches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"outcome"})

	searchAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sighunter",
		Subsystem: "search",
		Name:      "attempts_total",
		Help:      "Total candidate signatures hashed.",
	})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sighunter",
		Subsystem: "ledger",
		Name:      "submissions_total",
		Help:      "Count of fill submissions by status.",
	}, []string{"status"})
)

// Hunter records pipeline metrics.
type Hunter struct{}

// NewHunter constructs a Hunter recorder.
func NewHunter() *Hunter {
	return &Hunter{}
}

// ObserveIngest records one feed event application.
func (Hunter) ObserveIngest(applied bool, err error) {
	status := "applied"
	switch {
	case err != nil:
		status = "rejected"
	case !applied:
		status = "duplicate"
	}
	eventsIngestedTotal.WithLabelValues(status).Inc()
}

// ObserveSearch records a finished search together with the candidates it
// burned.
func (Hunter) ObserveSearch(outcome string, attempts uint64, started time.Time) {
	searchesTotal.WithLabelValues(outcome).Inc()
	searchDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	searchAttemptsTotal.Add(float64(attempts))
}

// ObserveSubmission records one fill submission outcome.
func (Hunter) ObserveSubmission(err error, lost bool) {
	status := "success"
	switch {
	case lost:
		status = "lost"
	case err != nil:
		status = "error"
	}
	submissionsTotal.WithLabelValues(status).Inc()
}
