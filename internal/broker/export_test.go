package broker

import "github.com/prometheus/client_golang/prometheus/testutil"

func (m *Metrics) DeliveryCount(queue, outcome string) float64 {
	return testutil.ToFloat64(m.deliveries.WithLabelValues(queue, outcome))
}

func (m *Metrics) PublishCount(routingKey, outcome string) float64 {
	return testutil.ToFloat64(m.published.WithLabelValues(routingKey, outcome))
}
