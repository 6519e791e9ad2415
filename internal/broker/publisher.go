package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bedive-215/tech-store-sub001/internal/ids"
	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
)

const (
	defaultPublishTimeout = 3 * time.Second

	// CorrelationIDHeader carries the request/reply correlation id next to the
	// AMQP CorrelationId property.
	CorrelationIDHeader = "correlation_id"
)

type publishOptions struct {
	correlationID string
}

// PublishOption adjusts a single publish.
type PublishOption func(*publishOptions)

// WithCorrelationID tags the message with a request/reply correlation id.
func WithCorrelationID(id string) PublishOption {
	return func(o *publishOptions) {
		o.correlationID = id
	}
}

// Publisher sends JSON messages to a single exchange. It keeps one channel and
// reopens it after a failed publish.
type Publisher struct {
	conn     *Connection
	exchange string
	logger   *slog.Logger
	metrics  *Metrics
	timeout  time.Duration

	mu sync.Mutex
	ch Channel
}

// NewPublisher returns a Publisher for exchange. The channel is opened on first publish.
func NewPublisher(conn *Connection, exchange string, logger *slog.Logger, metrics *Metrics) *Publisher {
	return &Publisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger.With(slog.String("component", "broker.publisher")),
		metrics:  metrics,
		timeout:  defaultPublishTimeout,
	}
}

// Publish serializes payload and delivers it to the exchange under routingKey.
// A nil error means the broker accepted the message, not that anyone consumed it.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any, opts ...PublishOption) error {
	var o publishOptions
	for _, opt := range opts {
		opt(&o)
	}

	body, err := encode(payload)
	if err != nil {
		p.metrics.publish(routingKey, outcomePublishFailed)
		return err
	}

	headers := amqp.Table{}
	injectTraceContext(ctx, headers)
	if o.correlationID != "" {
		headers[CorrelationIDHeader] = o.correlationID
	}

	msg := amqp.Publishing{
		Headers:       headers,
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: o.correlationID,
		MessageId:     ids.NewMessageID(),
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}

	if err := p.publish(ctx, routingKey, msg); err != nil {
		p.metrics.publish(routingKey, outcomePublishFailed)
		return err
	}
	p.metrics.publish(routingKey, outcomePublished)
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

func (p *Publisher) publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel(ctx)
		if err != nil {
			return fmt.Errorf("publish %s: %w", routingKey, err)
		}
		p.ch = ch
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.ch.PublishWithContext(
		pubCtx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err == nil {
		return nil
	}

	_ = p.ch.Close()
	p.ch = nil

	p.logger.Warn("publish failed",
		slog.String("routing_key", routingKey),
		slog.Any("error", err),
	)
	if errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("publish %s: %w: %w", routingKey, ErrNotConnected, err)
	}
	return fmt.Errorf("publish %s: %w", routingKey, err)
}

func encode(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	body, err := jsoncodec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return body, nil
}
