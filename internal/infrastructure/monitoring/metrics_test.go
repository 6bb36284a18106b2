package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordDecision("no_upgrade")
		m.RecordInstall(nil, time.Second)
		m.RecordLaunch(errors.New("x"))
		m.RecordSessionClosed()
		m.RecordSignal("killed")
		m.RecordNavigationAttempt("retried")
		m.RecordNavigation(time.Second)
		m.RecordFetch("page", 200)
		m.RecordHTTPRequest("GET", "/healthz", "200", time.Millisecond)
	})
}

func TestRecording(t *testing.T) {
	m := NewMetrics()

	m.RecordDecision("upgrade_to")
	m.RecordDecision("upgrade_to")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VersionDecisions.WithLabelValues("upgrade_to")))

	m.RecordLaunch(nil)
	m.RecordLaunch(errors.New("no port"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Launches.WithLabelValues("error")))

	m.RecordSessionClosed()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsActive))

	m.RecordFetch("client", 404)
	m.RecordFetch("page", 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("client", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("page", "error")))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RecordSignal("terminated")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Signals.WithLabelValues("terminated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Signals.WithLabelValues("terminated")))
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordNavigationAttempt("succeeded")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `admitted_navigation_attempts_total{outcome="succeeded"} 1`)
}
