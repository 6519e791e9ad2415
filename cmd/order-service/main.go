package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bedive-215/tech-store-sub001/internal/app"
	"github.com/bedive-215/tech-store-sub001/internal/config"
	"github.com/bedive-215/tech-store-sub001/internal/db"
	"github.com/bedive-215/tech-store-sub001/internal/events"
	"github.com/bedive-215/tech-store-sub001/internal/httpapi"
	"github.com/bedive-215/tech-store-sub001/internal/logger"
	"github.com/bedive-215/tech-store-sub001/internal/order"
)

func main() {
	if err := run(); err != nil {
		slog.Error("order-service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel).With(slog.String("service", "order-service"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, db.OrderSchema, log); err != nil {
			return err
		}
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	rt, err := app.Start(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	store := order.NewPostgresStore(pool)
	if err := rt.Subscriber.Subscribe(ctx, events.OrderStatusQueue, order.StatusHandler(store, log)); err != nil {
		return err
	}
	if err := rt.Subscriber.Subscribe(ctx, events.OrderAmountRequestQueue,
		order.AmountRequestHandler(store, rt.Publisher, log)); err != nil {
		return err
	}

	return rt.Serve(ctx, httpapi.NewRouter(rt.Registry))
}
