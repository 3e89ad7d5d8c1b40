package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the resolver's prometheus collectors. All series carry a
// board label so several containers can share one registry.
type Metrics struct {
	Passes     *prometheus.CounterVec
	WorkerRuns *prometheus.CounterVec
	Iterations *prometheus.HistogramVec
	Failures   *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twinrx",
			Subsystem: "resolver",
			Name:      "passes_total",
			Help:      "Resolution passes that ran at least one worker.",
		}, []string{"board", "kind"}),
		WorkerRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twinrx",
			Subsystem: "resolver",
			Name:      "worker_runs_total",
			Help:      "Worker executions by worker name.",
		}, []string{"board", "worker"}),
		Iterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "twinrx",
			Subsystem: "resolver",
			Name:      "pass_iterations",
			Help:      "Iterations needed to reach a fixed point.",
			Buckets:   []float64{1, 2, 3, 4, 8, 16, 32},
		}, []string{"board"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twinrx",
			Subsystem: "resolver",
			Name:      "failures_total",
			Help:      "Failed passes by error code.",
		}, []string{"board", "code"}),
	}
}

func (m *Metrics) observePass(board string, p *Pass) {
	if m == nil {
		return
	}
	kind := "incremental"
	if p.Forced {
		kind = "forced"
	}
	m.Passes.WithLabelValues(board, kind).Inc()
	m.Iterations.WithLabelValues(board).Observe(float64(p.Iterations))
}

func (m *Metrics) observeWorker(board, worker string) {
	if m == nil {
		return
	}
	m.WorkerRuns.WithLabelValues(board, worker).Inc()
}

func (m *Metrics) observeFailure(board string, code ResolveErrorCode) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(board, string(code)).Inc()
}
