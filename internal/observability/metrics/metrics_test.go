package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() Config {
	return Config{
		ServiceName: "fintel-test",
		Environment: "test",
		Registry:    prometheus.NewRegistry(),
	}
}

func TestPipelineMetricsCounters(t *testing.T) {
	cfg := newTestConfig()
	m := NewPipelineMetrics(cfg)

	m.InvoiceProcessed("success")
	m.InvoiceProcessed("success")
	m.InvoiceProcessed("extraction_failed")
	m.AnomalyDetected("DUPLICATE_INVOICE", "HIGH")
	m.OracleRequest("gst", "skipped")
	m.ComplianceScore(83.3)
	m.ProcessingDuration(120 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invoicesProcessed.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invoicesProcessed.WithLabelValues("extraction_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.anomaliesDetected.WithLabelValues("DUPLICATE_INVOICE", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleRequests.WithLabelValues("gst", "skipped")))

	families, err := cfg.Registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["fintel_compliance_score"])
	assert.True(t, names["fintel_invoice_processing_seconds"])
}

func TestHTTPMetricsGinMiddleware(t *testing.T) {
	cfg := newTestConfig()
	m := NewHTTPMetrics(cfg)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(m.GinMiddleware())
	engine.GET("/api/vendors", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vendors", nil))
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/vendors", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
