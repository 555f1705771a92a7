package producer

import (
	"context"
	"time"

	"go-elms/internal/messaging/kafka"

	"go.uber.org/zap"
)

const batchSize = 50

// Options tunes the relay loop. Zero values fall back to the defaults.
type Options struct {
	PollInterval  time.Duration
	Retention     time.Duration
	PurgeInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 72 * time.Hour
	}
	if o.PurgeInterval <= 0 {
		o.PurgeInterval = time.Hour
	}
	return o
}

// ProcessOutboxEvents relays pending leave events until ctx is cancelled.
// Failed rows are retried on the repository's backoff schedule and relayed
// rows are purged once they are older than the retention.
func ProcessOutboxEvents(
	ctx context.Context,
	repo kafka.OutboxRepository,
	writer MessageWriter,
	logger *zap.Logger,
	opts Options,
) {
	if logger == nil {
		logger = zap.L()
	}
	opts = opts.withDefaults()

	log := logger.Named("kafka.producer.worker")
	poll := time.NewTicker(opts.PollInterval)
	defer poll.Stop()
	purge := time.NewTicker(opts.PurgeInterval)
	defer purge.Stop()

	log.Info("outbox worker started",
		zap.Duration("poll_interval", opts.PollInterval),
		zap.Duration("retention", opts.Retention),
	)
	if err := processPendingEvents(ctx, repo, writer, log); err != nil {
		log.Error("process outbox events failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox worker stopped")
			return
		case <-poll.C:
			if err := processPendingEvents(ctx, repo, writer, log); err != nil {
				log.Error("process outbox events failed", zap.Error(err))
			}
		case now := <-purge.C:
			purgeSentEvents(ctx, repo, now.Add(-opts.Retention), log)
		}
	}
}

func processPendingEvents(
	ctx context.Context,
	repo kafka.OutboxRepository,
	writer MessageWriter,
	logger *zap.Logger,
) error {
	events, err := repo.ListPending(ctx, batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	logger.Debug("processing pending outbox events", zap.Int("count", len(events)))

	for _, event := range events {
		fields := []zap.Field{
			zap.String("outbox_id", event.ID),
			zap.String("aggregate_id", event.AggregateID),
			zap.String("event_type", event.EventType),
			zap.String("request_id", event.RequestID),
		}

		if err := publishEvent(ctx, writer, event); err != nil {
			logger.Error("publish outbox event failed",
				append(fields, zap.Int("retry_count", event.RetryCount), zap.Error(err))...)
			if markErr := repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				logger.Error("mark outbox event failed", zap.String("outbox_id", event.ID), zap.Error(markErr))
			}
			continue
		}

		// A row that stays pending is published again on the next tick;
		// the consumer tolerates duplicates.
		if err := repo.MarkSent(ctx, event.ID); err != nil {
			logger.Error("mark outbox event sent failed", append(fields, zap.Error(err))...)
			continue
		}

		logger.Info("outbox event sent", fields...)
	}

	return nil
}

func purgeSentEvents(ctx context.Context, repo kafka.OutboxRepository, before time.Time, logger *zap.Logger) {
	n, err := repo.PurgeSent(ctx, before)
	if err != nil {
		logger.Error("purge sent outbox events failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("purged sent outbox events", zap.Int64("count", n), zap.Time("before", before))
	}
}
