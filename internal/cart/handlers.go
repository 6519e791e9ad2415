package cart

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
	"github.com/bedive-215/tech-store-sub001/internal/events"
	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
	"github.com/bedive-215/tech-store-sub001/internal/logger"
)

// ProductChangeHandler returns the handler for the product-change queue.
// Invalid payloads and unknown routing keys are logged and acknowledged;
// only store failures are returned.
func ProductChangeHandler(store Store, logger *slog.Logger) broker.HandlerFunc {
	logger = logger.With(slog.String("component", "cart.product_change"))

	return func(ctx context.Context, routingKey string, body []byte) error {
		log := logger.With(slog.String("routing_key", routingKey))

		switch routingKey {
		case events.ChangeStockRoutingKey:
			return handleChangeStock(ctx, store, log, body)
		case events.ChangePriceRoutingKey:
			return handleChangePrice(ctx, store, log, body)
		case events.ChangeNameRoutingKey:
			return handleChangeName(ctx, store, log, body)
		case events.DeleteProductRoutingKey:
			return handleDeleteProduct(ctx, store, log, body)
		default:
			log.Warn("ignoring unknown routing key")
			return nil
		}
	}
}

// maxStock bounds change_stock values so they fit the INTEGER stock column.
const maxStock = math.MaxInt32

func handleChangeStock(ctx context.Context, store Store, log *slog.Logger, body []byte) error {
	var ev events.ChangeStock
	if err := jsoncodec.Unmarshal(body, &ev); err != nil || !validID(ev.ProductID) || ev.Stock == nil {
		log.Warn("invalid change_stock payload", logger.Body(body))
		return nil
	}

	floored := math.Floor(*ev.Stock)
	if math.IsNaN(floored) || math.IsInf(floored, 0) || floored > maxStock {
		log.Warn("invalid stock value", slog.String("product_id", *ev.ProductID))
		return nil
	}

	// Out of stock removes the product from every cart instead of updating it.
	stock := int(max(floored, 0))
	if stock == 0 {
		n, err := store.RemoveItemsByProduct(ctx, *ev.ProductID)
		if err != nil {
			return fmt.Errorf("remove items for %s: %w", *ev.ProductID, err)
		}
		log.Info("product out of stock, removed from carts",
			slog.String("product_id", *ev.ProductID),
			slog.Int64("items", n),
		)
		return nil
	}

	n, err := store.UpdateStock(ctx, *ev.ProductID, stock)
	if err != nil {
		return fmt.Errorf("update stock for %s: %w", *ev.ProductID, err)
	}
	log.Info("cart stock updated",
		slog.String("product_id", *ev.ProductID),
		slog.Int("stock", stock),
		slog.Int64("items", n),
	)
	return nil
}

func handleChangePrice(ctx context.Context, store Store, log *slog.Logger, body []byte) error {
	var ev events.ChangePrice
	if err := jsoncodec.Unmarshal(body, &ev); err != nil || !validID(ev.ProductID) || ev.Price == nil {
		log.Warn("invalid change_price payload", logger.Body(body))
		return nil
	}
	if *ev.Price < 0 {
		log.Warn("invalid price value", slog.String("product_id", *ev.ProductID))
		return nil
	}

	n, err := store.UpdatePrice(ctx, *ev.ProductID, *ev.Price)
	if err != nil {
		return fmt.Errorf("update price for %s: %w", *ev.ProductID, err)
	}
	log.Info("cart price updated",
		slog.String("product_id", *ev.ProductID),
		slog.Float64("price", *ev.Price),
		slog.Int64("items", n),
	)
	return nil
}

func handleChangeName(ctx context.Context, store Store, log *slog.Logger, body []byte) error {
	var ev events.ChangeName
	if err := jsoncodec.Unmarshal(body, &ev); err != nil || !validID(ev.ProductID) || ev.Name == nil || *ev.Name == "" {
		log.Warn("invalid change_name payload", logger.Body(body))
		return nil
	}

	n, err := store.UpdateName(ctx, *ev.ProductID, *ev.Name)
	if err != nil {
		return fmt.Errorf("update name for %s: %w", *ev.ProductID, err)
	}
	log.Info("cart product name updated",
		slog.String("product_id", *ev.ProductID),
		slog.Int64("items", n),
	)
	return nil
}

func handleDeleteProduct(ctx context.Context, store Store, log *slog.Logger, body []byte) error {
	var ev events.DeleteProduct
	if err := jsoncodec.Unmarshal(body, &ev); err != nil || !validID(ev.ProductID) {
		log.Warn("invalid delete_product payload", logger.Body(body))
		return nil
	}

	n, err := store.RemoveItemsByProduct(ctx, *ev.ProductID)
	if err != nil {
		return fmt.Errorf("remove items for %s: %w", *ev.ProductID, err)
	}
	log.Info("deleted product removed from carts",
		slog.String("product_id", *ev.ProductID),
		slog.Int64("items", n),
	)
	return nil
}

func validID(id *string) bool {
	return id != nil && *id != ""
}
