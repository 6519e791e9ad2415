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
	"github.com/bedive-215/tech-store-sub001/internal/httpapi"
	"github.com/bedive-215/tech-store-sub001/internal/logger"
	"github.com/bedive-215/tech-store-sub001/internal/product"
)

func main() {
	if err := run(); err != nil {
		slog.Error("product-service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel).With(slog.String("service", "product-service"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, db.ProductSchema, log); err != nil {
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

	svc := product.NewService(product.NewPostgresStore(pool), rt.Publisher, log)
	router := httpapi.NewRouter(rt.Registry, httpapi.NewProductHandler(svc).Routes)

	return rt.Serve(ctx, router)
}
