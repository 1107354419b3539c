// Package metrics exposes Prometheus counters for the notification job.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
	RunBusy      = "busy"
	RunDisabled  = "disabled"
)

// NotificationMetrics is safe to use through a nil pointer, which is how
// tests and one-off CLI runs disable it.
type NotificationMetrics struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	attempts    *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	warnings    prometheus.Counter
}

// New registers the notification metrics on a fresh registry together
// with the Go and process collectors.
func New() *NotificationMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

func NewWithRegistry(reg *prometheus.Registry) *NotificationMetrics {
	m := &NotificationMetrics{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licensepro",
			Name:      "notification_runs_total",
			Help:      "Notification runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "licensepro",
			Name:      "notification_run_duration_seconds",
			Help:      "Wall time of a notification run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"trigger"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licensepro",
			Name:      "notification_attempts_total",
			Help:      "Send attempts by channel, notification type and status.",
		}, []string{"channel", "notification_type", "status"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licensepro",
			Name:      "notification_skipped_total",
			Help:      "Licenses skipped during a run, by reason.",
		}, []string{"reason"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "licensepro",
			Name:      "notification_warnings_total",
			Help:      "Non fatal problems reported by notification runs.",
		}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.attempts, m.skipped, m.warnings)
	return m
}

func (m *NotificationMetrics) ObserveRun(trigger, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(trigger, outcome).Inc()
	m.runDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (m *NotificationMetrics) Attempt(channel, notificationType, status string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(channel, notificationType, status).Inc()
}

func (m *NotificationMetrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *NotificationMetrics) Warning() {
	if m == nil {
		return
	}
	m.warnings.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *NotificationMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
