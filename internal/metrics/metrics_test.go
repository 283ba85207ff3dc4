package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordResolution("success", 2*time.Millisecond)
	m.RecordResolution("success", time.Millisecond)
	m.RecordResolution("error", time.Millisecond)
	m.RecordBatchJob("done")
	m.AddBatchLines(42)
	m.AddBatchLines(-1)
	m.RecordCacheLookup("hit")
	m.RecordCacheLookup("miss")
	m.SetCatalogUnits(map[string]int{"province": 63, "ward": 10000})
	m.RecordHTTPRequest("POST", "/v1/addresses/parse", "200", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchJobsTotal.WithLabelValues("done")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.BatchLinesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, 63.0, testutil.ToFloat64(m.CatalogUnits.WithLabelValues("province")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/v1/addresses/parse", "200")))

	m.SetCatalogUnits(map[string]int{"province": 34})
	assert.Equal(t, 34.0, testutil.ToFloat64(m.CatalogUnits.WithLabelValues("province")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CatalogUnits))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordResolution("success", time.Millisecond)
		m.RecordBatchJob("done")
		m.AddBatchLines(1)
		m.RecordCacheLookup("hit")
		m.SetCatalogUnits(map[string]int{"ward": 1})
		m.RecordHTTPRequest("GET", "/health", "200", time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordBatchJob("cancelled")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `address_batch_jobs_total{outcome="cancelled"} 1`)
}
