// Package api exposes the district resolution pipeline over HTTP (§6): a
// chi router wrapping internal/resolve.Pipeline, the address-validation and
// city/zip lookups, and batch job status, instrumented with Prometheus
// metrics in the pattern the example pack's osmmcp server uses.
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const serviceName = "geodistrict"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: serviceName + "_http_requests_total",
			Help: "Total number of HTTP requests processed, by route and status.",
		},
		[]string{"route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    serviceName + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"route"},
	)

	districtsAssigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: serviceName + "_districts_assigned_total",
			Help: "Total number of district resolutions, by match level and status code.",
		},
		[]string{"match_level", "status"},
	)

	batchJobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: serviceName + "_batch_jobs_submitted_total",
			Help: "Total number of batch jobs submitted for execution.",
		},
		[]string{"status"},
	)
)

// RecordBatchJobSubmitted increments the batch jobs counter for a finished
// job's terminal status. Called from cmd batch, which runs jobs out-of-band
// from the HTTP server but shares this package's metric registry.
func RecordBatchJobSubmitted(status string) {
	batchJobsSubmitted.WithLabelValues(status).Inc()
}
