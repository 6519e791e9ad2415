// Package app holds the process wiring shared by the service binaries:
// broker connection, topology, metrics registry and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bedive-215/tech-store-sub001/internal/broker"
	"github.com/bedive-215/tech-store-sub001/internal/config"
	"github.com/bedive-215/tech-store-sub001/internal/events"
)

const shutdownTimeout = 10 * time.Second

type Runtime struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Conn       *broker.Connection
	Publisher  *broker.Publisher
	Subscriber *broker.Subscriber
}

// Start connects to the broker and declares the topology. The topology is
// declared before anything is published or consumed.
func Start(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...broker.ConnectionOption) (*Runtime, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics := broker.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("register broker metrics: %w", err)
	}

	conn := broker.NewConnection(broker.ConnectionConfig{
		URL:            cfg.RabbitMQURL,
		ReconnectDelay: cfg.ReconnectDelay,
	}, logger, opts...)

	if err := events.DefaultTopology(cfg.ExchangeName, cfg.ExchangeType).Setup(ctx, conn, logger); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Registry:  reg,
		Conn:      conn,
		Publisher: broker.NewPublisher(conn, cfg.ExchangeName, logger, metrics),
		Subscriber: broker.NewSubscriber(conn, broker.SubscriberConfig{
			ConsumerTag:   cfg.ServiceName,
			PrefetchCount: cfg.PrefetchCount,
		}, logger, metrics),
	}, nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func (rt *Runtime) Serve(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:         rt.Config.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.Logger.Info("http server listening", slog.String("addr", rt.Config.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		rt.Logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func (rt *Runtime) Close() {
	if err := rt.Publisher.Close(); err != nil {
		rt.Logger.Warn("publisher close", slog.Any("error", err))
	}
	if err := rt.Conn.Close(); err != nil {
		rt.Logger.Warn("broker connection close", slog.Any("error", err))
	}
}
