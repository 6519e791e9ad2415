package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
	"github.com/bedive-215/tech-store-sub001/internal/events"
	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
	logging "github.com/bedive-215/tech-store-sub001/internal/logger"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any, opts ...broker.PublishOption) error
}

// StatusHandler consumes the order-status queue.
func StatusHandler(store Store, logger *slog.Logger) broker.HandlerFunc {
	logger = logger.With(slog.String("component", "order.status"))

	return func(ctx context.Context, routingKey string, body []byte) error {
		log := logger.With(slog.String("routing_key", routingKey))

		switch routingKey {
		case events.PaymentSuccessRoutingKey:
			var ev events.PaymentSuccess
			if err := jsoncodec.Unmarshal(body, &ev); err != nil || ev.OrderID == nil || *ev.OrderID == "" {
				log.Warn("invalid payment_success payload", logging.Body(body))
				return nil
			}

			changed, err := store.MarkPaid(ctx, *ev.OrderID)
			switch {
			case errors.Is(err, ErrNotFound):
				log.Warn("payment for unknown order", slog.String("order_id", *ev.OrderID))
				return nil
			case err != nil:
				return fmt.Errorf("mark order %s paid: %w", *ev.OrderID, err)
			case !changed:
				log.Info("order already paid", slog.String("order_id", *ev.OrderID))
			default:
				log.Info("order paid", slog.String("order_id", *ev.OrderID))
			}
			return nil
		default:
			log.Warn("ignoring unknown routing key")
			return nil
		}
	}
}

// AmountRequestHandler answers order_amount_get requests on the reply key,
// echoing the correlation id. Unknown orders are answered with amount 0 so
// the requester fails fast instead of waiting for its timeout.
func AmountRequestHandler(store Store, pub Publisher, logger *slog.Logger) broker.HandlerFunc {
	logger = logger.With(slog.String("component", "order.amount"))

	return func(ctx context.Context, routingKey string, body []byte) error {
		log := logger.With(slog.String("routing_key", routingKey))

		switch routingKey {
		case events.OrderAmountGetRoutingKey:
			var req events.OrderAmountGet
			if err := jsoncodec.Unmarshal(body, &req); err != nil ||
				req.OrderID == nil || *req.OrderID == "" ||
				req.CorrelationID == nil || *req.CorrelationID == "" {
				log.Warn("invalid order_amount_get payload", logging.Body(body))
				return nil
			}
			log = log.With(
				slog.String("order_id", *req.OrderID),
				slog.String("correlation_id", *req.CorrelationID),
			)

			amount, err := store.Amount(ctx, *req.OrderID)
			switch {
			case errors.Is(err, ErrNotFound):
				log.Warn("amount requested for unknown order")
				amount = 0
			case err != nil:
				return fmt.Errorf("look up amount for %s: %w", *req.OrderID, err)
			}

			reply := events.OrderAmountResult{
				CorrelationID: *req.CorrelationID,
				OrderID:       *req.OrderID,
				Amount:        amount,
			}
			if err := pub.Publish(ctx, events.OrderAmountResultRoutingKey, reply,
				broker.WithCorrelationID(*req.CorrelationID)); err != nil {
				return fmt.Errorf("publish amount reply: %w", err)
			}
			log.Info("amount reply sent", slog.Float64("amount", amount))
			return nil
		default:
			log.Warn("ignoring unknown routing key")
			return nil
		}
	}
}
