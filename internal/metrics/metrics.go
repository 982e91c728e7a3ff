// Package metrics exposes Prometheus instrumentation for the proxy.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolproxy_requests_total",
		Help: "API requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolproxy_sessions_created_total",
		Help: "Discovery sessions minted.",
	})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolproxy_workflow_steps_total",
		Help: "Workflow steps by final status.",
	}, []string{"status"})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toolproxy_step_duration_seconds",
		Help:    "Wall time of upstream tool invocations by toolkit.",
		Buckets: prometheus.DefBuckets,
	}, []string{"toolkit"})
)

// ObserveRequest records one API request outcome.
func ObserveRequest(operation, outcome string) {
	requestsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveSessionCreated records a newly minted session.
func ObserveSessionCreated() {
	sessionsCreated.Inc()
}

// ObserveStep records the final status of one workflow step.
func ObserveStep(status string) {
	stepsTotal.WithLabelValues(status).Inc()
}

// ObserveStepDuration records how long one upstream invocation took.
func ObserveStepDuration(toolkit string, d time.Duration) {
	stepDuration.WithLabelValues(toolkit).Observe(d.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
