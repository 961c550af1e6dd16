// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by method, route pattern and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesearch_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filesearch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	// RemoteCallsTotal counts calls to the remote knowledge-base service.
	// Outcome is "ok" or "error".
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesearch_remote_calls_total",
			Help: "Total number of remote knowledge-base calls",
		},
		[]string{"op", "outcome"},
	)

	// UploadPollDuration measures how long uploads wait for remote processing.
	UploadPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filesearch_upload_poll_duration_seconds",
			Help:    "Time spent waiting for uploaded documents to finish processing",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// OrphanedRemoteResources counts remote stores and documents that were
	// created but never recorded locally.
	OrphanedRemoteResources = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesearch_orphaned_remote_resources_total",
			Help: "Remote resources left without a local record after a failed local write",
		},
		[]string{"kind"},
	)
)

// ObserveRemote records the outcome of one remote call.
func ObserveRemote(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RemoteCallsTotal.WithLabelValues(op, outcome).Inc()
}
