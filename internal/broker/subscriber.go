package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
)

// HandlerFunc processes one delivery. Returning an error (or panicking) drops
// the message without requeue.
type HandlerFunc func(ctx context.Context, routingKey string, body []byte) error

type SubscriberConfig struct {
	ConsumerTag   string
	PrefetchCount int
	// RetryDelay is the wait before re-subscribing after the delivery channel closes.
	RetryDelay time.Duration
}

// Subscriber runs manual-ack consumer loops, one channel per queue.
type Subscriber struct {
	conn    *Connection
	cfg     SubscriberConfig
	logger  *slog.Logger
	metrics *Metrics
}

// NewSubscriber fills in a prefetch of 1 and the connection retry delay when unset.
func NewSubscriber(conn *Connection, cfg SubscriberConfig, logger *slog.Logger, metrics *Metrics) *Subscriber {
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = conn.RetryDelay()
	}
	return &Subscriber{
		conn:    conn,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "broker.subscriber")),
		metrics: metrics,
	}
}

// Subscribe starts consuming queue. The first consume attempt is synchronous
// and its error is returned; afterwards the loop re-subscribes on its own
// until ctx is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context, queue string, handler HandlerFunc) error {
	ch, msgs, err := s.consume(ctx, queue)
	if err != nil {
		return err
	}

	s.logger.Info("consumer started", slog.String("queue", queue))
	go s.run(ctx, queue, handler, ch, msgs)
	return nil
}

func (s *Subscriber) consume(ctx context.Context, queue string) (Channel, <-chan amqp.Delivery, error) {
	ch, err := s.conn.Channel(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w", queue, err)
	}

	if err := ch.Qos(s.cfg.PrefetchCount, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("subscribe %s: qos: %w", queue, err)
	}

	msgs, err := ch.Consume(
		queue,
		s.cfg.ConsumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("subscribe %s: consume: %w", queue, err)
	}
	return ch, msgs, nil
}

func (s *Subscriber) run(ctx context.Context, queue string, handler HandlerFunc, ch Channel, msgs <-chan amqp.Delivery) {
	for {
		s.drain(ctx, queue, handler, msgs)
		_ = ch.Close()

		if ctx.Err() != nil {
			s.logger.Info("consumer stopped", slog.String("queue", queue))
			return
		}

		var ok bool
		ch, msgs, ok = s.resubscribe(ctx, queue)
		if !ok {
			s.logger.Info("consumer stopped", slog.String("queue", queue))
			return
		}
	}
}

func (s *Subscriber) resubscribe(ctx context.Context, queue string) (Channel, <-chan amqp.Delivery, bool) {
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, nil, false
		case <-time.After(s.cfg.RetryDelay):
		}

		ch, msgs, err := s.consume(ctx, queue)
		if err == nil {
			s.logger.Info("consumer resubscribed",
				slog.String("queue", queue),
				slog.Int("attempt", attempt),
			)
			return ch, msgs, true
		}
		s.logger.Warn("resubscribe failed",
			slog.String("queue", queue),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}
}

// drain handles deliveries one at a time until msgs closes or ctx ends.
func (s *Subscriber) drain(ctx context.Context, queue string, handler HandlerFunc, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				s.logger.Warn("delivery channel closed", slog.String("queue", queue))
				return
			}
			s.process(ctx, queue, handler, d)
		}
	}
}

func (s *Subscriber) process(ctx context.Context, queue string, handler HandlerFunc, d amqp.Delivery) {
	ctx = extractTraceContext(ctx, d.Headers)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "consume "+queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", queue),
			attribute.String("messaging.rabbitmq.destination.routing_key", d.RoutingKey),
			attribute.String("messaging.message.id", d.MessageId),
		),
	)
	defer span.End()

	log := s.logger.With(
		slog.String("queue", queue),
		slog.String("routing_key", d.RoutingKey),
		slog.String("message_id", d.MessageId),
	)

	if !jsoncodec.IsObject(d.Body) {
		log.Warn("dropping malformed message", slog.Any("error", ErrDecode))
		span.SetStatus(codes.Error, ErrDecode.Error())
		s.reject(log, d)
		s.metrics.delivery(queue, outcomeRejectedDecode)
		return
	}

	start := time.Now()
	err := invoke(ctx, handler, d)
	s.metrics.observeHandle(queue, time.Since(start).Seconds())

	if err != nil {
		log.Error("handler failed, dropping message", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.reject(log, d)
		s.metrics.delivery(queue, outcomeRejectedHandler)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Warn("ack failed", slog.Any("error", err))
	}
	s.metrics.delivery(queue, outcomeAcked)
}

// reject drops the delivery without requeue; poison messages must not loop.
func (s *Subscriber) reject(log *slog.Logger, d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		log.Warn("nack failed", slog.Any("error", err))
	}
}

func invoke(ctx context.Context, handler HandlerFunc, d amqp.Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return handler(ctx, d.RoutingKey, d.Body)
}
