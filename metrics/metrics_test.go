package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNotificationMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveRun("http", RunCompleted, time.Second)
	m.Attempt("email", "7_days", "sent")
	m.Attempt("email", "7_days", "sent")
	m.Attempt("email", "7_days", "failed")
	m.Skipped("already_notified")
	m.Warning()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("http", RunCompleted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("email", "7_days", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("email", "7_days", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("already_notified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.warnings))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *NotificationMetrics
	assert.NotPanics(t, func() {
		m.ObserveRun("cli", RunFailed, time.Second)
		m.Attempt("sms", "1_day", "sent")
		m.Skipped("no_recipients")
		m.Warning()
	})
}

func TestHandler(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.Warning()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "licensepro_notification_warnings_total 1")
}
