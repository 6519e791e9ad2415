package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
)

type Store interface {
	Save(ctx context.Context, p Payment) error
	Get(ctx context.Context, orderID string) (Payment, error)
	// MarkConfirmed reports true only for the first caller for an order.
	MarkConfirmed(ctx context.Context, orderID string) (bool, error)
	ReleaseConfirmation(ctx context.Context, orderID string) error
}

// RedisStore keeps payments as JSON strings that expire after ttl.
type RedisStore struct {
	client rueidis.Client
	ttl    time.Duration
}

func NewRedisStore(client rueidis.Client, ttl time.Duration) *RedisStore {
	if ttl < time.Second {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func paymentKey(orderID string) string {
	return "payment:" + orderID
}

func confirmationKey(orderID string) string {
	return "payment:" + orderID + ":confirmed"
}

func (s *RedisStore) Save(ctx context.Context, p Payment) error {
	data, err := jsoncodec.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payment: %w", err)
	}
	cmd := s.client.B().Set().Key(paymentKey(p.OrderID)).Value(string(data)).ExSeconds(s.ttlSeconds()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("save payment %s: %w", p.OrderID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, orderID string) (Payment, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(paymentKey(orderID)).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, fmt.Errorf("get payment %s: %w", orderID, err)
	}

	var p Payment
	if err := jsoncodec.Unmarshal([]byte(raw), &p); err != nil {
		return Payment{}, fmt.Errorf("decode payment %s: %w", orderID, err)
	}
	return p, nil
}

func (s *RedisStore) MarkConfirmed(ctx context.Context, orderID string) (bool, error) {
	cmd := s.client.B().Set().Key(confirmationKey(orderID)).Value("1").Nx().ExSeconds(s.ttlSeconds()).Build()
	err := s.client.Do(ctx, cmd).Error()
	switch {
	case err == nil:
		return true, nil
	case rueidis.IsRedisNil(err):
		return false, nil
	default:
		return false, fmt.Errorf("mark payment %s confirmed: %w", orderID, err)
	}
}

func (s *RedisStore) ReleaseConfirmation(ctx context.Context, orderID string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(confirmationKey(orderID)).Build()).Error(); err != nil {
		return fmt.Errorf("release confirmation %s: %w", orderID, err)
	}
	return nil
}

func (s *RedisStore) ttlSeconds() int64 {
	return int64(s.ttl / time.Second)
}
