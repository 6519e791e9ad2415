package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
	"github.com/bedive-215/tech-store-sub001/internal/events"
	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
)

type AmountRequester interface {
	Request(ctx context.Context, routingKey string, build func(correlationID string) any) (json.RawMessage, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any, opts ...broker.PublishOption) error
}

type Service struct {
	requester AmountRequester
	pub       Publisher
	store     Store
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(requester AmountRequester, pub Publisher, store Store, logger *slog.Logger) *Service {
	return &Service{
		requester: requester,
		pub:       pub,
		store:     store,
		logger:    logger.With(slog.String("component", "payment.service")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetOrderAmount asks the order service for the order total. Timeouts come
// back as rpc.ErrTimeout; a reply without a positive amount is
// ErrAmountUnavailable.
func (s *Service) GetOrderAmount(ctx context.Context, orderID string) (float64, error) {
	if orderID == "" {
		return 0, ErrInvalidOrderID
	}

	raw, err := s.requester.Request(ctx, events.OrderAmountGetRoutingKey, func(correlationID string) any {
		return events.AmountRequest{OrderID: orderID, CorrelationID: correlationID}
	})
	if err != nil {
		return 0, fmt.Errorf("get amount for order %s: %w", orderID, err)
	}

	var reply struct {
		Amount *float64 `json:"amount"`
	}
	if err := jsoncodec.Unmarshal(raw, &reply); err != nil || reply.Amount == nil || *reply.Amount <= 0 {
		return 0, fmt.Errorf("%w: order %s", ErrAmountUnavailable, orderID)
	}
	return *reply.Amount, nil
}

// CreatePayment records a pending payment for the current order amount.
func (s *Service) CreatePayment(ctx context.Context, orderID string) (Payment, error) {
	amount, err := s.GetOrderAmount(ctx, orderID)
	if err != nil {
		return Payment{}, err
	}

	p := Payment{
		OrderID:   orderID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.store.Save(ctx, p); err != nil {
		return Payment{}, err
	}

	s.logger.Info("payment created",
		slog.String("order_id", orderID),
		slog.Float64("amount", amount),
	)
	return p, nil
}

// ConfirmPayment marks the payment succeeded and publishes payment_success.
// Only the first confirmation publishes; repeats return the stored payment.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, transactionNo string) (Payment, error) {
	if orderID == "" {
		return Payment{}, ErrInvalidOrderID
	}

	p, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Payment{}, err
	}

	first, err := s.store.MarkConfirmed(ctx, orderID)
	if err != nil {
		return Payment{}, err
	}
	if !first {
		s.logger.Info("payment already confirmed", slog.String("order_id", orderID))
		return p, nil
	}

	ev := events.PaymentSucceeded{
		OrderID:       orderID,
		Amount:        p.Amount,
		TransactionNo: transactionNo,
	}
	if err := s.pub.Publish(ctx, events.PaymentSuccessRoutingKey, ev); err != nil {
		// let a retry publish again
		if relErr := s.store.ReleaseConfirmation(ctx, orderID); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return Payment{}, fmt.Errorf("confirm payment %s: %w", orderID, err)
	}

	confirmedAt := s.now()
	p.Status = StatusSucceeded
	p.TransactionNo = transactionNo
	p.ConfirmedAt = &confirmedAt
	if err := s.store.Save(ctx, p); err != nil {
		s.logger.Warn("payment confirmed but not saved",
			slog.String("order_id", orderID),
			slog.Any("error", err),
		)
	}

	s.logger.Info("payment confirmed", slog.String("order_id", orderID))
	return p, nil
}
