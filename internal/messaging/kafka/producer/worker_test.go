package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-elms/internal/messaging/kafka"
	"go-elms/internal/messaging/kafka/mock"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type fakeWriter struct {
	failFor map[string]error
	written []kafkago.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		if err, ok := w.failFor[string(m.Key)]; ok {
			return err
		}
		w.written = append(w.written, m)
	}
	return nil
}

func outboxEvent(id, aggregateID string) kafka.OutboxEvent {
	return kafka.OutboxEvent{
		ID:            id,
		RequestID:     "req-" + id,
		AggregateType: "leave_request",
		AggregateID:   aggregateID,
		EventType:     "leave_request.approved",
		Topic:         "elms.leave.request.changed.v1",
		Payload:       []byte(`{"leave_id":` + aggregateID + `}`),
		Status:        kafka.OutboxStatusPending,
	}
}

func TestBuildMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		msg := buildMessage(outboxEvent("o-1", "7"))

		assert.Equal(t, "elms.leave.request.changed.v1", msg.Topic)
		assert.Equal(t, []byte("7"), msg.Key)
		require.Len(t, msg.Headers, 3)
		assert.Equal(t, "request_id", msg.Headers[2].Key)
		assert.Equal(t, []byte("req-o-1"), msg.Headers[2].Value)
	})

	t.Run("without request id", func(t *testing.T) {
		ev := outboxEvent("o-1", "7")
		ev.RequestID = ""
		msg := buildMessage(ev)
		assert.Len(t, msg.Headers, 2)
	})
}

func TestProcessPendingEvents(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)
		writer := &fakeWriter{}

		repo.EXPECT().ListPending(gomock.Any(), batchSize).
			Return([]kafka.OutboxEvent{outboxEvent("o-1", "7"), outboxEvent("o-2", "8")}, nil)
		repo.EXPECT().MarkSent(gomock.Any(), "o-1").Return(nil)
		repo.EXPECT().MarkSent(gomock.Any(), "o-2").Return(nil)

		err := processPendingEvents(context.Background(), repo, writer, zap.NewNop())
		require.NoError(t, err)
		assert.Len(t, writer.written, 2)
	})

	t.Run("negative publish failure marks failed and continues", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)
		writer := &fakeWriter{failFor: map[string]error{"7": errors.New("broker down")}}

		repo.EXPECT().ListPending(gomock.Any(), batchSize).
			Return([]kafka.OutboxEvent{outboxEvent("o-1", "7"), outboxEvent("o-2", "8")}, nil)
		repo.EXPECT().MarkFailed(gomock.Any(), "o-1", "broker down").Return(nil)
		repo.EXPECT().MarkSent(gomock.Any(), "o-2").Return(nil)

		err := processPendingEvents(context.Background(), repo, writer, zap.NewNop())
		require.NoError(t, err)
		require.Len(t, writer.written, 1)
		assert.Equal(t, []byte("8"), writer.written[0].Key)
	})

	t.Run("negative list failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)

		repo.EXPECT().ListPending(gomock.Any(), batchSize).Return(nil, errors.New("db down"))

		err := processPendingEvents(context.Background(), repo, &fakeWriter{}, zap.NewNop())
		assert.EqualError(t, err, "db down")
	})

	t.Run("empty batch", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)
		writer := &fakeWriter{}

		repo.EXPECT().ListPending(gomock.Any(), batchSize).Return(nil, nil)

		require.NoError(t, processPendingEvents(context.Background(), repo, writer, zap.NewNop()))
		assert.Empty(t, writer.written)
	})
}

func TestPurgeSentEvents(t *testing.T) {
	before := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)
		repo.EXPECT().PurgeSent(gomock.Any(), before).Return(int64(3), nil)

		purgeSentEvents(context.Background(), repo, before, zap.NewNop())
	})

	t.Run("negative db error is logged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockOutboxRepository(ctrl)
		repo.EXPECT().PurgeSent(gomock.Any(), before).Return(int64(0), errors.New("db down"))

		purgeSentEvents(context.Background(), repo, before, zap.NewNop())
	})
}

func TestOptions_WithDefaults(t *testing.T) {
	got := Options{PollInterval: time.Second}.withDefaults()

	assert.Equal(t, time.Second, got.PollInterval)
	assert.Equal(t, 72*time.Hour, got.Retention)
	assert.Equal(t, time.Hour, got.PurgeInterval)
}
