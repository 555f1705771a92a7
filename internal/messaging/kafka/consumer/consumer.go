package consumer

import (
	"context"
	"encoding/json"
	"strings"

	"go-elms/internal/bootstrap"
	"go-elms/internal/events"
	"go-elms/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// BalanceInvalidator is satisfied by *leave.BalanceCache.
type BalanceInvalidator interface {
	Invalidate(ctx context.Context, employeeIDs ...string) error
}

// ConsumeLeaveRequestChanged drops the cached balance of the affected employee
// and records an audit entry for every leave change event. A message is only
// committed once the cache is invalidated, so a Redis outage replays it.
func ConsumeLeaveRequestChanged(
	ctx context.Context,
	reader MessageReader,
	balances BalanceInvalidator,
	audit bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	if logger == nil {
		logger = zap.L()
	}
	log := logger.Named("kafka.consumer.leave_request_changed")
	log.Info("leave request consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave request consumer stopped")
				return
			}
			log.Error("fetch leave request message failed", zap.Error(err))
			continue
		}

		var event events.LeaveRequestChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave request event failed", zap.Int64("offset", msg.Offset), zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if event.EmployeeID == "" {
			log.Warn("leave request event without employee, skipping", zap.Int64("leave_id", event.LeaveID))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		rid := event.RequestID
		if rid == "" {
			rid = headerValue(msg, "request_id")
		}
		eventCtx := contextutil.WithRequestID(ctx, rid)

		if err := balances.Invalidate(eventCtx, event.EmployeeID); err != nil {
			log.Error("invalidate leave balance failed",
				zap.Int64("leave_id", event.LeaveID),
				zap.String("employee_id", event.EmployeeID),
				zap.String("request_id", rid),
				zap.Error(err),
			)
			continue
		}

		audit.Log(eventCtx, auditEntry(event))

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave request message failed", zap.Error(err))
			continue
		}

		log.Info("leave request event handled",
			zap.String("event_type", event.EventType),
			zap.Int64("leave_id", event.LeaveID),
			zap.String("employee_id", event.EmployeeID),
			zap.String("request_id", rid),
		)
	}
}

func auditEntry(event events.LeaveRequestChangedEvent) bootstrap.AuditLog {
	meta := map[string]any{
		"leave_id":    event.LeaveID,
		"employee_id": event.EmployeeID,
		"status":      event.Status,
		"total_days":  event.TotalDays,
		"start_date":  event.StartDate,
		"end_date":    event.EndDate,
		"occurred_at": event.OccurredAt,
	}
	if event.ActorID != "" {
		meta["actor_id"] = event.ActorID
	}
	if event.Reason != "" {
		meta["rejection_reason"] = event.Reason
	}

	action := strings.ToUpper(strings.NewReplacer(".", "_").Replace(event.EventType))
	return bootstrap.AuditLog{
		Action:  action,
		Message: "leave request " + strings.ToLower(event.Status),
		Meta:    meta,
	}
}

func headerValue(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
