package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/config"
	kafkax "github.com/abenezerz/chapa-shop/internal/kafka"
	"github.com/abenezerz/chapa-shop/internal/notify"
	"github.com/abenezerz/chapa-shop/internal/orders"
	"github.com/abenezerz/chapa-shop/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Redis:       rdb,
		Log:         logger,
		ServiceName: cfg.ServiceName + "-worker",
	}

	group := getenv("WORKER_GROUP", "payment-notify")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), 4)

	for _, topic := range []string{orders.TopicPaymentVerified, orders.TopicPaymentFailed} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers, logger)
		go func(topic string) {
			logger.Info("consumer started",
				zap.String("group", group),
				zap.String("topic", topic),
				zap.Int("workers", workers))
			if err := cons.Start(ctx, svc.HandlePaymentEvent); err != nil {
				logger.Error("consumer exit", zap.String("topic", topic), zap.Error(err))
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down consumers...")
	case <-ctx.Done():
	}
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
