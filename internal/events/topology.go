package events

import "github.com/bedive-215/tech-store-sub001/internal/broker"

// DefaultTopology builds the reference topology on the given exchange.
func DefaultTopology(exchange, kind string) broker.Topology {
	bindings := QueueBindings()
	t := broker.Topology{Exchange: exchange, Kind: kind}
	for _, q := range QueueOrder() {
		t.Bindings = append(t.Bindings, broker.Binding{Queue: q, RoutingKeys: bindings[q]})
	}
	return t
}
