package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
	"github.com/bedive-215/tech-store-sub001/internal/broker/brokertest"
	"github.com/bedive-215/tech-store-sub001/internal/events"
	"github.com/bedive-215/tech-store-sub001/internal/logger"
	"github.com/bedive-215/tech-store-sub001/internal/order"
	"github.com/bedive-215/tech-store-sub001/internal/payment"
	"github.com/bedive-215/tech-store-sub001/internal/rpc"
)

type orderAmounts map[string]float64

func (o orderAmounts) Amount(_ context.Context, id string) (float64, error) {
	a, ok := o[id]
	if !ok {
		return 0, order.ErrNotFound
	}
	return a, nil
}

func (o orderAmounts) MarkPaid(context.Context, string) (bool, error) { return true, nil }

func (o orderAmounts) Get(context.Context, string) (*order.Order, error) { return nil, order.ErrNotFound }

// startFlow wires the payment requester and, if responder is set, the order
// service's amount responder onto one in-memory broker.
func startFlow(t *testing.T, amounts orderAmounts, responder bool, timeout time.Duration) (*payment.Service, *rpc.Coordinator) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mem := brokertest.New()
	log := logger.Discard()
	conn := broker.NewConnection(broker.ConnectionConfig{ReconnectDelay: 20 * time.Millisecond}, log,
		broker.WithDialer(mem.Dial))
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, events.DefaultTopology("tech-store.events", "direct").Setup(ctx, conn, log))

	pub := broker.NewPublisher(conn, "tech-store.events", log, nil)
	sub := broker.NewSubscriber(conn, broker.SubscriberConfig{PrefetchCount: 1}, log, nil)

	if responder {
		require.NoError(t, sub.Subscribe(ctx, events.OrderAmountRequestQueue,
			order.AmountRequestHandler(amounts, pub, log)))
	}

	coord := rpc.NewCoordinator(pub, log, rpc.WithTimeout(timeout))
	require.NoError(t, sub.Subscribe(ctx, events.OrderAmountReplyQueue, coord.HandleReply))

	return payment.NewService(coord, pub, nil, log), coord
}

func TestAmountFlow_ResolvesThroughBroker(t *testing.T) {
	svc, coord := startFlow(t, orderAmounts{"o1": 150000}, true, 2*time.Second)

	amount, err := svc.GetOrderAmount(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, 150000.0, amount)
	assert.Zero(t, coord.Pending())
}

func TestAmountFlow_UnknownOrderIsBusinessError(t *testing.T) {
	svc, coord := startFlow(t, orderAmounts{}, true, 2*time.Second)

	start := time.Now()
	_, err := svc.GetOrderAmount(context.Background(), "ghost")
	require.ErrorIs(t, err, payment.ErrAmountUnavailable)
	assert.NotErrorIs(t, err, rpc.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, coord.Pending())
}

func TestAmountFlow_NoResponderTimesOut(t *testing.T) {
	svc, coord := startFlow(t, orderAmounts{"o1": 10}, false, 100*time.Millisecond)

	_, err := svc.GetOrderAmount(context.Background(), "o1")
	require.ErrorIs(t, err, rpc.ErrTimeout)
	assert.NotErrorIs(t, err, payment.ErrAmountUnavailable)
	assert.Zero(t, coord.Pending())
}
