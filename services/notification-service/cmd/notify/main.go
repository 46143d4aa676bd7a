package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/mq"
	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/obs"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/notification-service/internal/notifier"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/notification-service/internal/worker"
)

const serviceName = "notification-service"

func main() {
	_ = godotenv.Load(".env")
	var cfg worker.Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal(err)
	}
	logger := obs.NewLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := mq.ConsumerOptions{
		Exchanges: cfg.Exchanges,
		Queue:     cfg.Queue,
		Keys:      cfg.Bindings,
		Prefetch:  cfg.Prefetch,
		DLX:       cfg.DLXName,
		DLXQueue:  cfg.DLXQueue,
	}
	var cons *mq.Consumer
	for {
		var err error
		cons, err = mq.NewConsumer(cfg.RabbitURL, opts)
		if err == nil {
			break
		}
		logger.Warn("connect failed; retry in 2s", "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
	defer cons.Close()

	msgs, err := cons.Deliveries(ctx, serviceName)
	if err != nil {
		logger.Error("consume", "err", err)
		os.Exit(1)
	}
	logger.Info("started", "queue", cfg.Queue, "exchanges", cfg.Exchanges, "bindings", cfg.Bindings)

	relay := worker.NewRelay(notifier.NewConsole(logger.With("component", "notifier")), logger)
	if err := relay.Run(ctx, msgs); err != nil {
		logger.Error("relay stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
