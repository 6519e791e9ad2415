package product

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
	"github.com/bedive-215/tech-store-sub001/internal/events"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any, opts ...broker.PublishOption) error
}

// Service applies product changes and publishes them on the product-change keys.
// The database write happens first; a failed publish is returned to the caller
// with the write already committed.
type Service struct {
	store  Store
	pub    Publisher
	logger *slog.Logger
}

func NewService(store Store, pub Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		pub:    pub,
		logger: logger.With(slog.String("component", "product.service")),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) UpdateStock(ctx context.Context, id string, stock int) error {
	if id == "" || stock < 0 {
		return fmt.Errorf("%w: stock must be >= 0", ErrInvalid)
	}
	if err := s.store.UpdateStock(ctx, id, stock); err != nil {
		return err
	}
	return s.announce(ctx, id, events.ChangeStockRoutingKey, events.StockChanged{ProductID: id, Stock: stock})
}

func (s *Service) UpdatePrice(ctx context.Context, id string, price float64) error {
	if id == "" || price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalid)
	}
	if err := s.store.UpdatePrice(ctx, id, price); err != nil {
		return err
	}
	return s.announce(ctx, id, events.ChangePriceRoutingKey, events.PriceChanged{ProductID: id, Price: price})
}

func (s *Service) UpdateName(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if err := s.store.UpdateName(ctx, id, name); err != nil {
		return err
	}
	return s.announce(ctx, id, events.ChangeNameRoutingKey, events.NameChanged{ProductID: id, Name: name})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	return s.announce(ctx, id, events.DeleteProductRoutingKey, events.ProductDeleted{ProductID: id})
}

func (s *Service) announce(ctx context.Context, id, routingKey string, payload any) error {
	if err := s.pub.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Error("product change not published",
			slog.String("product_id", id),
			slog.String("routing_key", routingKey),
			slog.Any("error", err),
		)
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	s.logger.Info("product change published",
		slog.String("product_id", id),
		slog.String("routing_key", routingKey),
	)
	return nil
}
