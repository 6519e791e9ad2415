// Command topology declares the broker exchange, queues and bindings once
// and exits.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
	"github.com/bedive-215/tech-store-sub001/internal/config"
	"github.com/bedive-215/tech-store-sub001/internal/events"
	"github.com/bedive-215/tech-store-sub001/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel).With(slog.String("service", "topology"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn := broker.NewConnection(broker.ConnectionConfig{URL: cfg.RabbitMQURL, ReconnectDelay: cfg.ReconnectDelay}, log)
	err = events.DefaultTopology(cfg.ExchangeName, cfg.ExchangeType).Setup(ctx, conn, log)
	_ = conn.Close()
	if err != nil {
		log.Error("topology setup failed", slog.Any("error", err))
		os.Exit(1)
	}
}
