package broker

import (
	"context"
	"fmt"
	"log/slog"
)

// Binding binds one durable queue to the exchange under every listed key.
type Binding struct {
	Queue       string
	RoutingKeys []string
}

// Topology is the exchange plus the queues and bindings services rely on.
type Topology struct {
	Exchange string
	Kind     string
	Bindings []Binding
}

// Setup declares the topology on a fresh channel. It is safe to run on every
// service start: re-declaring with identical parameters is a no-op.
func (t Topology) Setup(ctx context.Context, conn *Connection, logger *slog.Logger) error {
	ch, err := conn.Channel(ctx)
	if err != nil {
		return fmt.Errorf("topology: %w", err)
	}
	defer ch.Close()

	if err := t.Declare(ch); err != nil {
		return err
	}

	logger.Info("broker topology ready",
		slog.String("exchange", t.Exchange),
		slog.Int("queues", len(t.Bindings)),
	)
	return nil
}

// Declare runs the declarations in order and stops at the first failure.
func (t Topology) Declare(ch Channel) error {
	kind := t.Kind
	if kind == "" {
		kind = "direct"
	}

	if err := ch.ExchangeDeclare(
		t.Exchange,
		kind,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}

	for _, b := range t.Bindings {
		if _, err := ch.QueueDeclare(
			b.Queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.Queue, err)
		}

		for _, key := range b.RoutingKeys {
			if err := ch.QueueBind(b.Queue, key, t.Exchange, false, nil); err != nil {
				return fmt.Errorf("bind %s to %s with %q: %w", b.Queue, t.Exchange, key, err)
			}
		}
	}
	return nil
}
