package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/rueidis"

	"github.com/bedive-215/tech-store-sub001/internal/app"
	"github.com/bedive-215/tech-store-sub001/internal/config"
	"github.com/bedive-215/tech-store-sub001/internal/events"
	"github.com/bedive-215/tech-store-sub001/internal/httpapi"
	"github.com/bedive-215/tech-store-sub001/internal/logger"
	"github.com/bedive-215/tech-store-sub001/internal/payment"
	"github.com/bedive-215/tech-store-sub001/internal/rpc"
)

func main() {
	if err := run(); err != nil {
		slog.Error("payment-service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel).With(slog.String("service", "payment-service"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{InitAddress: []string{cfg.RedisAddr}})
	if err != nil {
		return err
	}
	defer redisClient.Close()

	rt, err := app.Start(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	rpcMetrics := rpc.NewMetrics()
	if err := rpcMetrics.Register(rt.Registry); err != nil {
		return err
	}
	coord := rpc.NewCoordinator(rt.Publisher, log,
		rpc.WithTimeout(cfg.RequestTimeout),
		rpc.WithMetrics(rpcMetrics),
	)
	if err := rt.Subscriber.Subscribe(ctx, events.OrderAmountReplyQueue, coord.HandleReply); err != nil {
		return err
	}

	svc := payment.NewService(coord, rt.Publisher, payment.NewRedisStore(redisClient, cfg.PaymentTTL), log)
	router := httpapi.NewRouter(rt.Registry, httpapi.NewPaymentHandler(svc).Routes)

	return rt.Serve(ctx, router)
}
