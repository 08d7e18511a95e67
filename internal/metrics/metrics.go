// Package metrics exposes the counters the relationship core reports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons reported with SkippedReference.
const (
	ReasonMemberNotFound       = "member_not_found"
	ReasonOrganizationNotFound = "organization_not_found"
	ReasonUndecodable          = "undecodable_document"
)

// Metrics holds the counters shared by every component.
type Metrics struct {
	registry          *prometheus.Registry
	skippedReferences *prometheus.CounterVec
	optimisticRetries *prometheus.CounterVec
	batchCommits      *prometheus.CounterVec
}

// New creates the counters on a fresh registry, together with the Go runtime
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		skippedReferences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_skipped_references_total",
			Help: "Dangling references skipped while synchronizing relationships.",
		}, []string{"operation", "reason"}),
		optimisticRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_optimistic_retries_total",
			Help: "Read-modify-write attempts retried after a version mismatch.",
		}, []string{"operation"}),
		batchCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_batch_commits_total",
			Help: "Batch commits by outcome.",
		}, []string{"operation", "result"}),
	}
	registry.MustRegister(m.skippedReferences, m.optimisticRetries, m.batchCommits)
	return m
}

// SkippedReference counts a reference the operation could not resolve.
func (m *Metrics) SkippedReference(operation, reason string) {
	m.skippedReferences.WithLabelValues(operation, reason).Inc()
}

// OptimisticRetry counts one retry of operation.
func (m *Metrics) OptimisticRetry(operation string) {
	m.optimisticRetries.WithLabelValues(operation).Inc()
}

// BatchCommit records the outcome of a batch commit.
func (m *Metrics) BatchCommit(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.batchCommits.WithLabelValues(operation, result).Inc()
}

// Registry returns the registry the counters live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
