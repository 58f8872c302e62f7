// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one registry. Construct with New so tests
// can use a private registry.
type Metrics struct {
	PostingsCollected *prometheus.CounterVec
	PostingsScored    *prometheus.CounterVec
	PostingsSaved     prometheus.Counter
	Duplicates        prometheus.Counter
	Notifications     prometheus.Counter
	EmailsClassified  *prometheus.CounterVec
	SourceErrors      *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	RunsActive        *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PostingsCollected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpilot_postings_collected_total",
				Help: "Postings returned by collectors",
			},
			[]string{"source"},
		),
		PostingsScored: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpilot_postings_scored_total",
				Help: "Postings scored, by band",
			},
			[]string{"band"},
		),
		PostingsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "jobpilot_postings_saved_total",
			Help: "Postings persisted after dedup",
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "jobpilot_postings_duplicate_total",
			Help: "Postings dropped as duplicates",
		}),
		Notifications: f.NewCounter(prometheus.CounterOpts{
			Name: "jobpilot_notifications_total",
			Help: "Postings that passed the notification gate",
		}),
		EmailsClassified: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpilot_emails_classified_total",
				Help: "Emails classified, by category",
			},
			[]string{"category"},
		),
		SourceErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpilot_source_errors_total",
				Help: "Collector failures",
			},
			[]string{"source"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "jobpilot_run_duration_seconds",
				Help: "Duration of pipeline runs in seconds",
			},
			[]string{"pipeline"},
		),
		RunsActive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jobpilot_runs_active",
				Help: "Pipeline runs in progress",
			},
			[]string{"pipeline"},
		),
	}
}

// Track marks a run of pipeline as active and returns the func that ends it.
// Safe on a nil *Metrics.
func (m *Metrics) Track(pipeline string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.RunsActive.WithLabelValues(pipeline).Inc()
	return func() {
		m.RunsActive.WithLabelValues(pipeline).Dec()
		m.RunDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
	}
}
