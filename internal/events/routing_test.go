package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueBindings_ReferenceTopology(t *testing.T) {
	b := QueueBindings()

	require.Len(t, b, 4)
	assert.ElementsMatch(t,
		[]string{"change_stock", "change_price", "change_name", "delete_product"},
		b["cart-service.product-change"])
	assert.Equal(t, []string{"payment_success"}, b["order-service.order-status"])
	assert.Equal(t, []string{"order_amount_get"}, b["order-service.order-amount-request"])
	assert.Equal(t, []string{"order_amount_result"}, b["payment-service.order-amount-reply"])
}

func TestQueueOrder_CoversEveryBinding(t *testing.T) {
	b := QueueBindings()
	order := QueueOrder()

	require.Len(t, order, len(b))
	for _, q := range order {
		assert.Contains(t, b, q)
	}
}

func TestDefaultTopology(t *testing.T) {
	top := DefaultTopology("tech-store.events", "direct")

	assert.Equal(t, "tech-store.events", top.Exchange)
	assert.Equal(t, "direct", top.Kind)
	require.Len(t, top.Bindings, 4)
	assert.Equal(t, ProductChangeQueue, top.Bindings[0].Queue)
	assert.Len(t, top.Bindings[0].RoutingKeys, 4)
	assert.Equal(t, OrderAmountReplyQueue, top.Bindings[3].Queue)
}
