package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	starRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starledger_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	starRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starledger_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	starSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starledger_submissions_total",
		Help: "Total star submissions by outcome (committed, expired, bad_signature, malformed, error).",
	}, []string{"outcome"})

	starChainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "starledger_chain_height",
		Help: "Current height of the chain tip.",
	})

	starValidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starledger_validations_total",
		Help: "Total full-chain validation passes run.",
	})

	starValidationFindings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "starledger_validation_findings",
		Help: "Findings reported by the most recent full-chain validation.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		starRequestsTotal.WithLabelValues(method, path, status).Inc()
		starRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordSubmission records the outcome of a star submission attempt.
func RecordSubmission(outcome string) {
	starSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordValidation records a full-chain validation pass and its findings.
func RecordValidation(findings int) {
	starValidationsTotal.Inc()
	starValidationFindings.Set(float64(findings))
}

// SetChainHeight sets the chain height gauge.
func SetChainHeight(height int) {
	starChainHeight.Set(float64(height))
}
