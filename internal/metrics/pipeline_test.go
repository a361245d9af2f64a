package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintake/internal/domain"
	"docintake/internal/metrics"
	"docintake/internal/port"
)

var (
	_ port.PipelineObserver = (*metrics.PipelineMetrics)(nil)
	_ port.PipelineObserver = metrics.Noop{}
)

func TestPipelineMetrics_RunLifecycle(t *testing.T) {
	m := metrics.NewPipelineMetrics()

	m.RunStarted()
	m.RunStarted()
	m.RunFinished(domain.StatusProcessed, 2*time.Second)
	m.ExtractionFallback()
	m.ExtractorCall("claude", "success")
	m.ExceptionCreated(domain.CategoryLowConfidence)

	count, err := testutil.GatherAndCount(m.Registry(), "docintake_pipeline_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	lint, err := testutil.GatherAndLint(m.Registry())
	require.NoError(t, err)
	assert.Empty(t, lint)
}

func TestPipelineMetrics_Handler(t *testing.T) {
	m := metrics.NewPipelineMetrics()
	m.RunStarted()
	m.ObserveRequest(http.MethodGet, "/api/v1/documents/:id", http.StatusNotFound, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "docintake_pipeline_runs_in_flight 1")
	assert.Contains(t, body, `docintake_http_requests_total{method="GET",path="/api/v1/documents/:id",status="4xx"} 1`)
}
