// Package metrics exports session activity as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/vaultsess/pkg/session"
)

const (
	outcomeSuccess     = "success"
	outcomeAuthFailure = "auth_failure"
	outcomeError       = "error"
)

// Recorder implements session.Recorder on its own registry so a CLI run can
// write exactly its own counters to a textfile.
type Recorder struct {
	registry *prometheus.Registry

	authTotal      *prometheus.CounterVec
	operationTotal *prometheus.CounterVec
	retryTotal     *prometheus.CounterVec
}

var _ session.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		authTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultsess_auth_attempts_total",
				Help: "Total number of credential exchanges by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		operationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultsess_operations_total",
				Help: "Total number of secret operation attempts by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		retryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultsess_retries_total",
				Help: "Total number of operations retried after re-authentication",
			},
			[]string{"operation"},
		),
	}
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordAuth counts a credential exchange.
func (r *Recorder) RecordAuth(backend session.Backend, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	r.authTotal.WithLabelValues(string(backend), outcome).Inc()
}

// RecordOperation counts one read or write attempt.
func (r *Recorder) RecordOperation(op string, err error) {
	outcome := outcomeSuccess
	switch {
	case session.IsAuthFailure(err):
		outcome = outcomeAuthFailure
	case err != nil:
		outcome = outcomeError
	}
	r.operationTotal.WithLabelValues(op, outcome).Inc()
}

// RecordRetry counts a retry after re-authentication.
func (r *Recorder) RecordRetry(op string) {
	r.retryTotal.WithLabelValues(op).Inc()
}

// WriteTextfile writes the current values in the node_exporter textfile
// format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
