package gatekeeper

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Authorization outcomes, used as the "outcome" label.
const (
	OutcomeAccepted = "accepted"
	OutcomeStale    = "stale_root"
	OutcomeInvalid  = "invalid_proof"
	OutcomeReplayed = "nullifier_used"
	OutcomeUnknown  = "unknown_board"
	OutcomeError    = "error"
)

type Metrics struct {
	authorizations *prometheus.CounterVec
	verifySeconds  prometheus.Histogram
	rootUpdates    prometheus.Counter
}

// NewMetrics registers the gatekeeper collectors with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gatekeeper",
			Name:      "authorizations_total",
			Help:      "Proof-gated actions by outcome.",
		}, []string{"outcome"}),
		verifySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gatekeeper",
			Name:      "proof_verify_seconds",
			Help:      "Time spent verifying membership proofs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		rootUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gatekeeper",
			Name:      "root_updates_total",
			Help:      "Accepted membership root updates.",
		}),
	}
	reg.MustRegister(m.authorizations, m.verifySeconds, m.rootUpdates)
	return m
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.authorizations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeVerify(seconds float64) {
	if m == nil {
		return
	}
	m.verifySeconds.Observe(seconds)
}

func (m *Metrics) observeRootUpdate() {
	if m == nil {
		return
	}
	m.rootUpdates.Inc()
}
