package rpc

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeResolved     = "resolved"
	outcomeTimeout      = "timeout"
	outcomePublishError = "publish_error"
	outcomeCancelled    = "cancelled"
)

// Metrics tracks request/reply outcomes. A nil *Metrics records nothing.
type Metrics struct {
	pending     prometheus.Gauge
	requests    *prometheus.CounterVec
	lateReplies prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "techstore",
			Subsystem: "rpc",
			Name:      "pending_requests",
			Help:      "Requests waiting for a reply.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "techstore",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Finished requests by outcome.",
		}, []string{"outcome"}),
		lateReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "techstore",
			Subsystem: "rpc",
			Name:      "late_replies_total",
			Help:      "Replies that arrived with no pending request.",
		}),
	}
}

// Register adds the collectors to reg. Registering twice is not an error.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.pending, m.requests, m.lateReplies} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *Metrics) created() {
	if m == nil {
		return
	}
	m.pending.Inc()
}

func (m *Metrics) finished(outcome string) {
	if m == nil {
		return
	}
	m.pending.Dec()
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) lateReply() {
	if m == nil {
		return
	}
	m.lateReplies.Inc()
}
