package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bedive-215/tech-store-sub001/internal/app"
	"github.com/bedive-215/tech-store-sub001/internal/cart"
	"github.com/bedive-215/tech-store-sub001/internal/config"
	"github.com/bedive-215/tech-store-sub001/internal/db"
	"github.com/bedive-215/tech-store-sub001/internal/events"
	"github.com/bedive-215/tech-store-sub001/internal/httpapi"
	"github.com/bedive-215/tech-store-sub001/internal/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("cart-service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel).With(slog.String("service", "cart-service"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, db.CartSchema, log); err != nil {
			return err
		}
	}
	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer database.Close()

	rt, err := app.Start(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	handler := cart.ProductChangeHandler(cart.NewPostgresStore(database), log)
	if err := rt.Subscriber.Subscribe(ctx, events.ProductChangeQueue, handler); err != nil {
		return err
	}

	return rt.Serve(ctx, httpapi.NewRouter(rt.Registry))
}
