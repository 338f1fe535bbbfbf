package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.FlowSave("replace", ResultOK)
	m.FlowSave("replace", ResultOK)
	m.FlowSave("replace", ResultConflict)
	m.Retry("update flow")
	m.CacheLookup(true)
	m.CacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.flowSaves.WithLabelValues("replace", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flowSaves.WithLabelValues("replace", ResultConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues("update flow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FlowSave("create", ResultOK)
		m.Retry("x")
		m.CacheLookup(true)
		m.HTTPRequest("GET", "/x", "200", 0.1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.HTTPRequest("GET", "/api/ivr/flows/:id", "200", 0.01)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `nexora_http_requests_total{method="GET",route="/api/ivr/flows/:id",status="200"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
