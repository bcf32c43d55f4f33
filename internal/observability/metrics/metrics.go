// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels stamped on every series.
type Config struct {
	ServiceName string
	Environment string
	Registry    *prometheus.Registry
}

func (c Config) constLabels() prometheus.Labels {
	service := c.ServiceName
	if service == "" {
		service = "fintel"
	}
	return prometheus.Labels{
		"service": service,
		"env":     c.Environment,
	}
}

func (c Config) registerer() prometheus.Registerer {
	if c.Registry != nil {
		return c.Registry
	}
	return prometheus.DefaultRegisterer
}

// PipelineMetrics tracks invoice processing outcomes.
type PipelineMetrics struct {
	invoicesProcessed *prometheus.CounterVec
	anomaliesDetected *prometheus.CounterVec
	oracleRequests    *prometheus.CounterVec
	complianceScore   prometheus.Histogram
	processingSeconds prometheus.Histogram
}

// NewPipelineMetrics registers and returns the pipeline metric set.
func NewPipelineMetrics(cfg Config) *PipelineMetrics {
	labels := cfg.constLabels()
	m := &PipelineMetrics{
		invoicesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fintel_invoices_processed_total",
			Help:        "Invoices accepted for processing, by terminal status.",
			ConstLabels: labels,
		}, []string{"status"}),
		anomaliesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fintel_anomalies_detected_total",
			Help:        "Anomalies recorded by the detector, by type and severity.",
			ConstLabels: labels,
		}, []string{"type", "severity"}),
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fintel_oracle_requests_total",
			Help:        "Outbound verification requests, by oracle and outcome.",
			ConstLabels: labels,
		}, []string{"oracle", "outcome"}),
		complianceScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "fintel_compliance_score",
			Help:        "Compliance score distribution for processed invoices.",
			ConstLabels: labels,
			Buckets:     []float64{0, 25, 50, 60, 75, 90, 100},
		}),
		processingSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "fintel_invoice_processing_seconds",
			Help:        "End-to-end invoice processing latency.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}

	reg := cfg.registerer()
	reg.MustRegister(
		m.invoicesProcessed,
		m.anomaliesDetected,
		m.oracleRequests,
		m.complianceScore,
		m.processingSeconds,
	)
	return m
}

// InvoiceProcessed records a terminal pipeline outcome.
func (m *PipelineMetrics) InvoiceProcessed(status string) {
	m.invoicesProcessed.WithLabelValues(status).Inc()
}

// AnomalyDetected records one detected anomaly.
func (m *PipelineMetrics) AnomalyDetected(anomalyType, severity string) {
	m.anomaliesDetected.WithLabelValues(anomalyType, severity).Inc()
}

// OracleRequest records an outbound verification attempt.
func (m *PipelineMetrics) OracleRequest(oracle, outcome string) {
	m.oracleRequests.WithLabelValues(oracle, outcome).Inc()
}

// ComplianceScore observes a computed compliance score.
func (m *PipelineMetrics) ComplianceScore(score float64) {
	m.complianceScore.Observe(score)
}

// ProcessingDuration observes end-to-end pipeline latency.
func (m *PipelineMetrics) ProcessingDuration(d time.Duration) {
	m.processingSeconds.Observe(d.Seconds())
}

// HTTPMetrics tracks the HTTP request surface.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics registers and returns the HTTP metric set.
func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	labels := cfg.constLabels()
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fintel_http_requests_total",
			Help:        "HTTP requests, by method, route and status.",
			ConstLabels: labels,
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "fintel_http_request_duration_seconds",
			Help:        "HTTP request latency, by method and route.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg := cfg.registerer()
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// GinMiddleware instruments every request routed through the engine.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.requestsTotal.WithLabelValues(method, route, status).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
