package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"go-elms/internal/events"
	"go-elms/internal/messaging/kafka"
	"go-elms/internal/shared/dateutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxPublisher turns leave changes into outbox rows that the worker relays
// to Kafka. The postgres repository calls it inside the transaction of the
// change itself.
type OutboxPublisher struct {
	repo   kafka.OutboxRepository
	now    func() time.Time
	logger *zap.Logger
}

func NewOutboxPublisher(repo kafka.OutboxRepository, logger ...*zap.Logger) *OutboxPublisher {
	l := zap.L().Named("leave.publisher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.publisher")
	}
	return &OutboxPublisher{repo: repo, now: time.Now, logger: l}
}

// WithTx returns a publisher writing through tx.
func (p *OutboxPublisher) WithTx(tx *sql.Tx) *OutboxPublisher {
	return &OutboxPublisher{repo: p.repo.WithTx(tx), now: p.now, logger: p.logger}
}

// Publish writes the outbox row for ch. Refreshes are not domain events.
func (p *OutboxPublisher) Publish(ctx context.Context, ch Change) error {
	if ch.Request == nil || ch.Kind == ChangeRefreshed {
		return nil
	}
	event := buildChangedEvent(ch, p.now().UTC())
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	outbox := kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: "leave_request",
		AggregateID:   strconv.FormatInt(event.LeaveID, 10),
		EventType:     event.EventType,
		Topic:         events.LeaveRequestChangedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}
	if err := kafka.ValidateOutboxEvent(outbox); err != nil {
		return err
	}
	if err := p.repo.Create(ctx, outbox); err != nil {
		p.logger.Error("write leave outbox event failed",
			zap.Int64("leave_id", event.LeaveID),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func buildChangedEvent(ch Change, at time.Time) events.LeaveRequestChangedEvent {
	r := ch.Request
	event := events.LeaveRequestChangedEvent{
		EventType:  events.LeaveRequestSubmitted,
		LeaveID:    r.ID,
		EmployeeID: r.RequesterID,
		Status:     string(r.Status),
		TotalDays:  r.TotalDays,
		StartDate:  dateutil.FormatISO(r.StartDate),
		EndDate:    dateutil.FormatISO(r.EndDate),
		RequestID:  ch.RequestID,
		OccurredAt: at,
	}
	switch r.Status {
	case StatusApproved:
		event.EventType = events.LeaveRequestApproved
		if r.ApprovedBy != nil {
			event.ActorID = *r.ApprovedBy
		}
	case StatusRejected:
		event.EventType = events.LeaveRequestRejected
		if r.RejectedBy != nil {
			event.ActorID = *r.RejectedBy
		}
		if r.RejectionReason != nil {
			event.Reason = *r.RejectionReason
		}
	default:
		event.ActorID = r.RequesterID
	}
	return event
}
