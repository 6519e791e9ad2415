package broker

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeAcked           = "acked"
	outcomeRejectedDecode  = "rejected_decode"
	outcomeRejectedHandler = "rejected_handler"
	outcomePublished       = "published"
	outcomePublishFailed   = "failed"
)

// Metrics counts consumer and publisher outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	deliveries    *prometheus.CounterVec
	handleSeconds *prometheus.HistogramVec
	published     *prometheus.CounterVec
}

func newBrokerCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "techstore",
			Subsystem: "broker",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func NewMetrics() *Metrics {
	return &Metrics{
		deliveries: newBrokerCounterVec("deliveries_total",
			"Deliveries consumed, by queue and outcome.", []string{"queue", "outcome"}),
		handleSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "techstore",
			Subsystem: "broker",
			Name:      "handle_duration_seconds",
			Help:      "Time spent in message handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
		published: newBrokerCounterVec("published_total",
			"Messages published, by routing key and outcome.", []string{"routing_key", "outcome"}),
	}
}

// Register adds the collectors to reg. Registering twice is not an error.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.deliveries, m.handleSeconds, m.published} {
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

func (m *Metrics) delivery(queue, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(queue, outcome).Inc()
}

func (m *Metrics) observeHandle(queue string, seconds float64) {
	if m == nil {
		return
	}
	m.handleSeconds.WithLabelValues(queue).Observe(seconds)
}

func (m *Metrics) publish(routingKey, outcome string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(routingKey, outcome).Inc()
}
