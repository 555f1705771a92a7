package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"go-elms/internal/bootstrap"
	"go-elms/internal/config"
	"go-elms/internal/leave"
	"go-elms/internal/messaging/kafka/consumer"
	"go-elms/internal/shared/connection"

	"go.uber.org/zap"
)

// RunConsumer audits leave change events and invalidates the cached balances
// they affect. The next balance read on any api instance reloads the scope.
func RunConsumer(cfg *config.Config) error {
	logger := zap.L().Named("app.consumer")

	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}

	rdb, err := connection.ConnectRedisWithRetry(cfg.Redis, maxRetries(cfg), logger)
	if err != nil {
		return err
	}
	defer rdb.Close()

	balanceCache := leave.NewBalanceCache(rdb, cfg.Leave.BalanceCacheTTL, logger)
	auditLogger := bootstrap.NewStdoutAuditLogger(logger)

	reader := connection.NewKafkaReader(cfg.Kafka)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer.ConsumeLeaveRequestChanged(ctx, reader, balanceCache, auditLogger, logger)

	logger.Info("consumer stopped", zap.String("group_id", cfg.Kafka.GroupID))
	return nil
}
