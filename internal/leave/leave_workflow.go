package leave

import (
	"context"
	"errors"

	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/shared/contextutil"
	"go-elms/internal/shared/metrics"

	"go.uber.org/zap"
)

// Decision is the outcome of an approve or reject: the decided request and
// the requester's balance recomputed afterwards.
type Decision struct {
	Request LeaveRequest
	Balance LeaveBalance
}

// Workflow holds the admin side operations.
type Workflow struct {
	store   *Store
	ledger  *Ledger
	metrics *metrics.Leave
	logger  *zap.Logger
}

func NewWorkflow(store *Store, ledger *Ledger, m *metrics.Leave, logger ...*zap.Logger) *Workflow {
	l := zap.L().Named("leave.workflow")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.workflow")
	}
	return &Workflow{store: store, ledger: ledger, metrics: m, logger: l}
}

func (w *Workflow) Approve(ctx context.Context, id int64, adminID string) (Decision, error) {
	return w.decide(ctx, id, StatusApproved, TransitionMeta{ActorID: adminID})
}

// Reject declines a request. reason may be empty.
func (w *Workflow) Reject(ctx context.Context, id int64, adminID, reason string) (Decision, error) {
	return w.decide(ctx, id, StatusRejected, TransitionMeta{ActorID: adminID, RejectionReason: reason})
}

func (w *Workflow) decide(ctx context.Context, id int64, status Status, meta TransitionMeta) (Decision, error) {
	log := contextutil.GetLogger(ctx, w.logger)

	current, err := w.store.Get(ctx, id)
	if err != nil {
		w.metrics.Transition(string(status), outcomeOf(err))
		return Decision{}, err
	}
	if current.Status != StatusPending {
		log.Warn("leave request already decided",
			zap.Int64("leave_id", id),
			zap.String("status", string(current.Status)),
		)
		w.metrics.Transition(string(status), "already_decided")
		return Decision{}, leaveerrors.ErrAlreadyDecided
	}

	updated, err := w.store.Transition(ctx, id, status, meta)
	if err != nil {
		// Losing a race with another decision is reported like any other
		// already decided request.
		if errors.Is(err, leaveerrors.ErrInvalidTransition) {
			err = leaveerrors.ErrAlreadyDecided
		}
		w.metrics.Transition(string(status), outcomeOf(err))
		return Decision{}, err
	}
	w.metrics.Transition(string(status), "ok")
	log.Info("leave request decided", append(contextutil.ExtractMetadata(ctx).Fields(),
		zap.Int64("leave_id", id),
		zap.String("employee_id", updated.RequesterID),
		zap.String("status", string(status)),
	)...)

	balance, err := w.ledger.Balance(ctx, updated.RequesterID, updated.Year())
	if err != nil {
		// The decision is committed; a missing balance only degrades the reply.
		log.Warn("balance recompute after decision failed",
			zap.Int64("leave_id", id),
			zap.String("employee_id", updated.RequesterID),
			zap.Error(err),
		)
		return Decision{Request: updated}, nil
	}
	return Decision{Request: updated, Balance: balance}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, leaveerrors.ErrLeaveNotFound):
		return "not_found"
	case errors.Is(err, leaveerrors.ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, leaveerrors.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "error"
	}
}
