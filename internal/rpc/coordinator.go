// Package rpc implements request/reply over the event exchange. A request
// carries a fresh correlation id; the reply echoes it and resolves the
// matching pending entry, unless the entry has already timed out.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
)

// DefaultTimeout applies when no WithTimeout option is given.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when no correlated reply arrived before the deadline.
var ErrTimeout = errors.New("rpc: request timed out")

// Publisher sends the request message; *broker.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any, opts ...broker.PublishOption) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the reply deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics records request outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// Coordinator tracks in-flight requests by correlation id.
type Coordinator struct {
	pending *table
	pub     Publisher
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

// NewCoordinator returns a Coordinator publishing requests through pub.
func NewCoordinator(pub Publisher, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		pending: newTable(),
		pub:     pub,
		timeout: DefaultTimeout,
		logger:  logger.With(slog.String("component", "rpc.coordinator")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PendingRequest is the caller's handle on one in-flight request.
type PendingRequest struct {
	CorrelationID string
	CreatedAt     time.Time
	Deadline      time.Time

	c    *Coordinator
	done <-chan result
}

// CreatePendingRequest registers a new entry that resolves on reply or after
// timeout, whichever comes first. A non-positive timeout uses the default.
func (c *Coordinator) CreatePendingRequest(timeout time.Duration) *PendingRequest {
	if timeout <= 0 {
		timeout = c.timeout
	}

	now := time.Now()
	e := &entry{
		createdAt: now,
		deadline:  now.Add(timeout),
		done:      make(chan result, 1),
	}

	id := uuid.NewString()
	for !c.pending.insert(id, e) {
		id = uuid.NewString()
	}
	e.setTimer(time.AfterFunc(timeout, func() { c.expire(id) }))
	c.metrics.created()

	return &PendingRequest{
		CorrelationID: id,
		CreatedAt:     e.createdAt,
		Deadline:      e.deadline,
		c:             c,
		done:          e.done,
	}
}

// ResolvePending hands value to the waiter of correlationID. It reports
// whether an entry was found; a missing entry means it was already resolved
// or expired, and the value is dropped.
func (c *Coordinator) ResolvePending(correlationID string, value json.RawMessage) bool {
	e, ok := c.pending.take(correlationID)
	if !ok {
		c.metrics.lateReply()
		return false
	}
	e.stopTimer()
	e.done <- result{value: value}
	c.metrics.finished(outcomeResolved)
	return true
}

// Pending is the number of unresolved requests.
func (c *Coordinator) Pending() int {
	return c.pending.len()
}

// Request publishes the payload built for a fresh correlation id and waits for
// the reply. A failed publish fails the request at once.
func (c *Coordinator) Request(ctx context.Context, routingKey string, build func(correlationID string) any) (json.RawMessage, error) {
	p := c.CreatePendingRequest(c.timeout)

	err := c.pub.Publish(ctx, routingKey, build(p.CorrelationID), broker.WithCorrelationID(p.CorrelationID))
	if err != nil {
		c.fail(p.CorrelationID, err)
		return nil, fmt.Errorf("rpc %s: %w", routingKey, err)
	}

	value, err := p.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", routingKey, err)
	}
	return value, nil
}

// HandleReply is the consumer handler for a reply queue.
func (c *Coordinator) HandleReply(_ context.Context, routingKey string, body []byte) error {
	var reply struct {
		CorrelationID *string `json:"correlationId"`
	}
	if err := jsoncodec.Unmarshal(body, &reply); err != nil || reply.CorrelationID == nil || *reply.CorrelationID == "" {
		c.logger.Warn("ignoring reply without correlation id", slog.String("routing_key", routingKey))
		return nil
	}

	id := *reply.CorrelationID
	if !c.ResolvePending(id, append(json.RawMessage(nil), body...)) {
		c.logger.Debug("discarding reply with no pending request",
			slog.String("routing_key", routingKey),
			slog.String("correlation_id", id),
		)
	}
	return nil
}

// Wait blocks until the request resolves or ctx ends. On ctx end the entry is
// withdrawn, unless a result won the race, in which case that result is returned.
func (p *PendingRequest) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case r := <-p.done:
		return r.value, r.err
	case <-ctx.Done():
		if e, ok := p.c.pending.take(p.CorrelationID); ok {
			e.stopTimer()
			p.c.metrics.finished(outcomeCancelled)
			return nil, ctx.Err()
		}
		r := <-p.done
		return r.value, r.err
	}
}

func (c *Coordinator) expire(id string) {
	e, ok := c.pending.take(id)
	if !ok {
		return
	}
	e.done <- result{err: fmt.Errorf("%w after %s", ErrTimeout, e.deadline.Sub(e.createdAt))}
	c.metrics.finished(outcomeTimeout)

	c.logger.Warn("request timed out", slog.String("correlation_id", id))
}

func (c *Coordinator) fail(id string, err error) {
	e, ok := c.pending.take(id)
	if !ok {
		return
	}
	e.stopTimer()
	e.done <- result{err: err}
	c.metrics.finished(outcomePublishError)
}
