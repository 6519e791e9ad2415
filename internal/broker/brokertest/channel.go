package brokertest

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
)

var (
	_ broker.Conn       = (*Conn)(nil)
	_ broker.Channel    = (*Channel)(nil)
	_ amqp.Acknowledger = (*Channel)(nil)
)

// Conn is an in-memory connection.
type Conn struct {
	b        *Broker
	closed   bool
	channels []*Channel
	notify   []chan *amqp.Error
}

func (c *Conn) Channel() (broker.Channel, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	if c.closed {
		return nil, amqp.ErrClosed
	}
	ch := &Channel{b: c.b, conn: c}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *Conn) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	if c.closed {
		close(receiver)
		return receiver
	}
	c.notify = append(c.notify, receiver)
	return receiver
}

func (c *Conn) IsClosed() bool {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	return c.closed
}

func (c *Conn) Close() error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	if c.closed {
		return amqp.ErrClosed
	}
	c.closeLocked(nil)
	return nil
}

func (c *Conn) closeLocked(reason *amqp.Error) {
	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.channels {
		ch.closeLocked(reason)
	}
	for _, n := range c.notify {
		if reason != nil {
			select {
			case n <- reason:
			default:
			}
		}
		close(n)
	}
	c.notify = nil
}

type consumer struct {
	tag  string
	out  chan amqp.Delivery
	stop chan struct{}
}

// Channel is an in-memory channel. It is also the Acknowledger of the
// deliveries it hands out.
type Channel struct {
	b         *Broker
	conn      *Conn
	closed    bool
	prefetch  int
	consumers []*consumer
	notify    []chan *amqp.Error
}

func (ch *Channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	switch kind {
	case "direct", "topic", "fanout":
	default:
		return &amqp.Error{Code: amqp.CommandInvalid, Reason: fmt.Sprintf("COMMAND_INVALID - unknown exchange type '%s'", kind)}
	}
	if existing, ok := ch.b.exchanges[name]; ok && existing != kind {
		return &amqp.Error{
			Code:   amqp.PreconditionFailed,
			Reason: fmt.Sprintf("PRECONDITION_FAILED - inequivalent arg 'type' for exchange '%s'", name),
		}
	}
	ch.b.exchanges[name] = kind
	return nil
}

func (ch *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()

	if ch.closed {
		return amqp.Queue{}, amqp.ErrClosed
	}
	q, ok := ch.b.queues[name]
	if ok && q.durable != durable {
		return amqp.Queue{}, &amqp.Error{
			Code:   amqp.PreconditionFailed,
			Reason: fmt.Sprintf("PRECONDITION_FAILED - inequivalent arg 'durable' for queue '%s'", name),
		}
	}
	if !ok {
		q = &queue{
			name:     name,
			durable:  durable,
			bindings: make(map[string]map[string]struct{}),
			unacked:  make(map[uint64]*Channel),
			inflight: make(map[uint64]amqp.Delivery),
		}
		ch.b.queues[name] = q
	}
	return amqp.Queue{Name: name, Messages: len(q.ready)}, nil
}

func (ch *Channel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	q, ok := ch.b.queues[name]
	if !ok {
		return notFound("queue", name)
	}
	if _, ok := ch.b.exchanges[exchange]; !ok {
		return notFound("exchange", exchange)
	}
	if q.bindings[exchange] == nil {
		q.bindings[exchange] = make(map[string]struct{})
	}
	q.bindings[exchange][key] = struct{}{}
	return nil
}

func (ch *Channel) Qos(prefetchCount, prefetchSize int, global bool) error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	ch.prefetch = prefetchCount
	return nil
}

func (ch *Channel) Consume(queueName, tag string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()

	if ch.closed {
		return nil, amqp.ErrClosed
	}
	if autoAck {
		return nil, &amqp.Error{Code: amqp.NotImplemented, Reason: "brokertest supports manual ack only"}
	}
	q, ok := ch.b.queues[queueName]
	if !ok {
		return nil, notFound("queue", queueName)
	}

	c := &consumer{
		tag:  tag,
		out:  make(chan amqp.Delivery),
		stop: make(chan struct{}),
	}
	ch.consumers = append(ch.consumers, c)
	go ch.pump(q, c)
	return c.out, nil
}

// pump hands ready messages to one consumer, honouring the channel prefetch.
func (ch *Channel) pump(q *queue, c *consumer) {
	defer close(c.out)

	for {
		ch.b.mu.Lock()
		for !ch.stoppedLocked(c) && (len(q.ready) == 0 || ch.atPrefetchLocked(q)) {
			ch.b.cond.Wait()
		}
		if ch.stoppedLocked(c) {
			ch.b.mu.Unlock()
			return
		}
		d := q.ready[0]
		q.ready = q.ready[1:]
		d.Acknowledger = ch
		d.ConsumerTag = c.tag
		q.unacked[d.DeliveryTag] = ch
		q.inflight[d.DeliveryTag] = d
		ch.b.mu.Unlock()

		select {
		case c.out <- d:
		case <-c.stop:
			ch.b.mu.Lock()
			if _, still := q.unacked[d.DeliveryTag]; still {
				delete(q.unacked, d.DeliveryTag)
				delete(q.inflight, d.DeliveryTag)
				q.ready = append([]amqp.Delivery{d}, q.ready...)
				ch.b.cond.Broadcast()
			}
			ch.b.mu.Unlock()
			return
		}
	}
}

func (ch *Channel) stoppedLocked(c *consumer) bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

func (ch *Channel) atPrefetchLocked(q *queue) bool {
	if ch.prefetch <= 0 {
		return false
	}
	n := 0
	for _, owner := range q.unacked {
		if owner == ch {
			n++
		}
	}
	return n >= ch.prefetch
}

func (ch *Channel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ch.IsClosed() {
		return amqp.ErrClosed
	}
	return ch.b.route(exchange, key, msg)
}

func (ch *Channel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()

	if ch.closed {
		close(receiver)
		return receiver
	}
	ch.notify = append(ch.notify, receiver)
	return receiver
}

func (ch *Channel) IsClosed() bool {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()
	return ch.closed
}

func (ch *Channel) Close() error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	ch.closeLocked(nil)
	return nil
}

func (ch *Channel) closeLocked(reason *amqp.Error) {
	if ch.closed {
		return
	}
	ch.closed = true
	for _, c := range ch.consumers {
		close(c.stop)
	}
	ch.consumers = nil
	ch.b.requeueLocked(ch)
	for _, n := range ch.notify {
		if reason != nil {
			select {
			case n <- reason:
			default:
			}
		}
		close(n)
	}
	ch.notify = nil
}

func (ch *Channel) Ack(tag uint64, multiple bool) error {
	return ch.b.settle(ch, tag, false)
}

func (ch *Channel) Nack(tag uint64, multiple, requeue bool) error {
	return ch.b.settle(ch, tag, requeue)
}

func (ch *Channel) Reject(tag uint64, requeue bool) error {
	return ch.b.settle(ch, tag, requeue)
}
