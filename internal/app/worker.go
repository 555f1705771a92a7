package app

import (
	"context"
	"os/signal"
	"syscall"

	"go-elms/internal/config"
	"go-elms/internal/messaging/kafka"
	"go-elms/internal/messaging/kafka/producer"
	"go-elms/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker relays leave outbox rows to Kafka until SIGINT or SIGTERM.
func RunWorker(cfg *config.Config) error {
	logger := zap.L().Named("app.worker")

	_, sqlDB, err := openDatabase(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaWriter, err := connection.ConnectKafkaWithRetry(cfg.Kafka, maxRetries(cfg), logger)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer.ProcessOutboxEvents(ctx, outboxRepo, kafkaWriter, logger, producer.Options{
		PollInterval: cfg.Kafka.PollInterval,
		Retention:    cfg.Kafka.OutboxRetention,
	})

	logger.Info("outbox relay stopped", zap.String("topic", cfg.Kafka.Topic))
	return nil
}
