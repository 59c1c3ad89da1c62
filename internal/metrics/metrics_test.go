package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreIsolatedPerInstance(t *testing.T) {
	a, b := New(), New()
	a.ImportedRecords.WithLabelValues("contacts").Add(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(a.ImportedRecords.WithLabelValues("contacts")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ImportedRecords.WithLabelValues("contacts")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.FlowPolls.WithLabelValues("completed").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `contact_sync_flow_polls_total{outcome="completed"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("boom")))
}
