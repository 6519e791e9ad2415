// Package brokertest is an in-memory stand-in for RabbitMQ. It implements
// broker.Conn and broker.Channel with direct, topic and fanout exchanges,
// durable queues and manual acknowledgement.
package brokertest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
)

var errRefused = errors.New("brokertest: connection refused")

type queue struct {
	name     string
	durable  bool
	bindings map[string]map[string]struct{} // exchange -> keys
	ready    []amqp.Delivery
	unacked  map[uint64]*Channel
	inflight map[uint64]amqp.Delivery
}

// Broker holds every exchange, queue and live connection. All state is
// guarded by one mutex.
type Broker struct {
	mu   sync.Mutex
	cond *sync.Cond

	exchanges map[string]string
	queues    map[string]*queue
	conns     []*Conn
	nextTag   uint64

	dials     int
	failDials int
	published []amqp.Publishing
}

func New() *Broker {
	b := &Broker{
		exchanges: make(map[string]string),
		queues:    make(map[string]*queue),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Dial matches broker.DialFunc.
func (b *Broker) Dial(string) (broker.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dials++
	if b.failDials > 0 {
		b.failDials--
		return nil, errRefused
	}
	c := &Conn{b: b}
	b.conns = append(b.conns, c)
	return c, nil
}

// FailNextDials makes the next n dials fail.
func (b *Broker) FailNextDials(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failDials = n
}

func (b *Broker) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Drop force-closes every open connection as a broker restart would,
// notifying close listeners with a server error.
func (b *Broker) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.conns {
		c.closeLocked(&amqp.Error{
			Code:   amqp.ConnectionForced,
			Reason: "CONNECTION_FORCED - broker shutdown",
			Server: true,
		})
	}
	b.conns = nil
}

// Depth is the number of ready plus unacknowledged messages in a queue.
func (b *Broker) Depth(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[name]
	if !ok {
		return 0
	}
	return len(q.ready) + len(q.inflight)
}

// Bindings returns the sorted keys binding a queue to an exchange.
func (b *Broker) Bindings(queueName, exchange string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[queueName]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(q.bindings[exchange]))
	for k := range q.bindings[exchange] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Broker) ExchangeKind(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kind, ok := b.exchanges[name]
	return kind, ok
}

func (b *Broker) Queues() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.queues))
	for n := range b.queues {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Published returns every message accepted by an exchange, in order.
func (b *Broker) Published() []amqp.Publishing {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]amqp.Publishing(nil), b.published...)
}

// Enqueue puts a raw body straight onto a queue, bypassing exchanges.
func (b *Broker) Enqueue(queueName, routingKey string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[queueName]
	if !ok {
		return notFound("queue", queueName)
	}
	b.enqueueLocked(q, "", routingKey, amqp.Publishing{Body: body})
	return nil
}

func (b *Broker) route(exchange, key string, msg amqp.Publishing) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if exchange == "" {
		if q, ok := b.queues[key]; ok {
			b.enqueueLocked(q, exchange, key, msg)
		}
		b.published = append(b.published, msg)
		return nil
	}

	kind, ok := b.exchanges[exchange]
	if !ok {
		return notFound("exchange", exchange)
	}
	b.published = append(b.published, msg)

	for _, q := range b.queues {
		for pattern := range q.bindings[exchange] {
			if matches(kind, pattern, key) {
				b.enqueueLocked(q, exchange, key, msg)
				break
			}
		}
	}
	return nil
}

func (b *Broker) enqueueLocked(q *queue, exchange, key string, msg amqp.Publishing) {
	b.nextTag++
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	q.ready = append(q.ready, amqp.Delivery{
		Headers:       copyTable(msg.Headers),
		ContentType:   msg.ContentType,
		DeliveryMode:  msg.DeliveryMode,
		CorrelationId: msg.CorrelationId,
		ReplyTo:       msg.ReplyTo,
		MessageId:     msg.MessageId,
		Timestamp:     ts,
		DeliveryTag:   b.nextTag,
		Exchange:      exchange,
		RoutingKey:    key,
		Body:          append([]byte(nil), msg.Body...),
	})
	b.cond.Broadcast()
}

// settle acks or nacks a delivery previously handed to ch.
func (b *Broker) settle(ch *Channel, tag uint64, requeue bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, q := range b.queues {
		owner, ok := q.unacked[tag]
		if !ok || owner != ch {
			continue
		}
		d := q.inflight[tag]
		delete(q.unacked, tag)
		delete(q.inflight, tag)
		if requeue {
			d.Redelivered = true
			q.ready = append([]amqp.Delivery{d}, q.ready...)
		}
		b.cond.Broadcast()
		return nil
	}
	return &amqp.Error{Code: amqp.PreconditionFailed, Reason: fmt.Sprintf("PRECONDITION_FAILED - unknown delivery tag %d", tag)}
}

// requeueLocked returns everything ch had not settled to the head of its queues.
func (b *Broker) requeueLocked(ch *Channel) {
	for _, q := range b.queues {
		var back []amqp.Delivery
		for tag, owner := range q.unacked {
			if owner != ch {
				continue
			}
			d := q.inflight[tag]
			d.Redelivered = true
			back = append(back, d)
			delete(q.unacked, tag)
			delete(q.inflight, tag)
		}
		if len(back) == 0 {
			continue
		}
		sort.Slice(back, func(i, j int) bool { return back[i].DeliveryTag < back[j].DeliveryTag })
		q.ready = append(back, q.ready...)
	}
	b.cond.Broadcast()
}

// matches applies exchange routing rules. Topic patterns use "*" for exactly
// one word and "#" for zero or more words.
func matches(kind, pattern, key string) bool {
	switch kind {
	case "fanout":
		return true
	case "topic":
		return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
	default:
		return pattern == key
	}
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchWords(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchWords(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchWords(pattern[1:], key[1:])
	}
}

func notFound(kind, name string) *amqp.Error {
	return &amqp.Error{
		Code:   amqp.NotFound,
		Reason: fmt.Sprintf("NOT_FOUND - no %s '%s'", kind, name),
		Server: true,
	}
}

func copyTable(t amqp.Table) amqp.Table {
	if t == nil {
		return nil
	}
	out := make(amqp.Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
