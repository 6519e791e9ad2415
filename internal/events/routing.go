// Package events defines the routing keys, queues and message bodies that
// tech-store services exchange over the broker.
package events

const (
	ChangeStockRoutingKey       = "change_stock"
	ChangePriceRoutingKey       = "change_price"
	ChangeNameRoutingKey        = "change_name"
	DeleteProductRoutingKey     = "delete_product"
	PaymentSuccessRoutingKey    = "payment_success"
	OrderAmountGetRoutingKey    = "order_amount_get"
	OrderAmountResultRoutingKey = "order_amount_result"
)

const (
	cartServiceName    = "cart-service"
	orderServiceName   = "order-service"
	paymentServiceName = "payment-service"
)

func serviceQueue(serviceName, topic string) string {
	return serviceName + "." + topic
}

var (
	ProductChangeQueue      = serviceQueue(cartServiceName, "product-change")
	OrderStatusQueue        = serviceQueue(orderServiceName, "order-status")
	OrderAmountRequestQueue = serviceQueue(orderServiceName, "order-amount-request")
	OrderAmountReplyQueue   = serviceQueue(paymentServiceName, "order-amount-reply")
)

// QueueBindings is the routing key registry: every queue and the keys bound to it.
func QueueBindings() map[string][]string {
	return map[string][]string{
		ProductChangeQueue: {
			ChangeStockRoutingKey,
			ChangePriceRoutingKey,
			ChangeNameRoutingKey,
			DeleteProductRoutingKey,
		},
		OrderStatusQueue:        {PaymentSuccessRoutingKey},
		OrderAmountRequestQueue: {OrderAmountGetRoutingKey},
		OrderAmountReplyQueue:   {OrderAmountResultRoutingKey},
	}
}

// QueueOrder lists the queues in declaration order.
func QueueOrder() []string {
	return []string{
		ProductChangeQueue,
		OrderStatusQueue,
		OrderAmountRequestQueue,
		OrderAmountReplyQueue,
	}
}
