// Package metrics exposes Prometheus instrumentation for the engine and
// the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the engine's metric collectors combined into one
// registerable set.
type Recorder struct {
	TurnsTotal         *prometheus.CounterVec
	TurnDuration       *prometheus.HistogramVec
	ValidationFailures *prometheus.CounterVec
	ActionFailures     *prometheus.CounterVec
	SessionsStarted    *prometheus.CounterVec
	SessionsCompleted  *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
}

// NewRecorder builds the collectors under the "parley" namespace.
func NewRecorder() *Recorder {
	return &Recorder{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "turns_total",
			Help:      "Turns processed, by flow and node type.",
		}, []string{"flow", "node_type"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "turn_duration_seconds",
			Help:      "Wall time spent processing a turn.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "validation_failures_total",
			Help:      "Inputs rejected by node validation rules.",
		}, []string{"flow", "node"}),
		ActionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "action_failures_total",
			Help:      "Node actions that failed, by error kind.",
		}, []string{"flow", "kind"}),
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "sessions_started_total",
			Help:      "Sessions created.",
		}, []string{"flow"}),
		SessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "sessions_completed_total",
			Help:      "Sessions that reached a terminal node.",
		}, []string{"flow"}),
		CompletionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "completion_duration_seconds",
			Help:      "Latency of model completions for ai_chat turns.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"flow", "provider"}),
	}
}

// Register adds all collectors to the given registerer.
func (r *Recorder) Register(reg prometheus.Registerer) error {
	for _, c := range r.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister adds all collectors, panicking on conflict.
func (r *Recorder) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(r.collectors()...)
}

func (r *Recorder) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.TurnsTotal,
		r.TurnDuration,
		r.ValidationFailures,
		r.ActionFailures,
		r.SessionsStarted,
		r.SessionsCompleted,
		r.CompletionDuration,
	}
}
