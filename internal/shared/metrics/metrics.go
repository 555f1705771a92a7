package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Leave groups the collectors of the leave workflow. A nil *Leave is valid
// and records nothing, so components can run without metrics in tests.
type Leave struct {
	transitions *prometheus.CounterVec
	submissions *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	apiCalls    *prometheus.HistogramVec
}

func NewLeave(reg prometheus.Registerer) *Leave {
	f := promauto.With(reg)
	return &Leave{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elms",
			Subsystem: "leave",
			Name:      "transitions_total",
			Help:      "Leave request status transitions by target status and outcome.",
		}, []string{"status", "outcome"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elms",
			Subsystem: "leave",
			Name:      "submissions_total",
			Help:      "Leave submissions by outcome code.",
		}, []string{"outcome"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elms",
			Subsystem: "leave",
			Name:      "refreshes_total",
			Help:      "Store refreshes by result (applied, stale, cancelled, failed).",
		}, []string{"result"}),
		apiCalls: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "elms",
			Subsystem: "api",
			Name:      "call_duration_seconds",
			Help:      "Latency of calls to the external leave API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
}

func (m *Leave) Transition(status, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status, outcome).Inc()
}

func (m *Leave) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Leave) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Leave) APICall(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(operation, outcome).Observe(seconds)
}
