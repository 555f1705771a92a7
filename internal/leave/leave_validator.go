package leave

import (
	"strings"
	"time"

	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/shared/apperror"
	"go-elms/internal/shared/dateutil"
)

type SubmissionInput struct {
	RequesterID   string
	RequesterName string
	StartDate     time.Time
	EndDate       time.Time
	Reason        string
	Details       string
}

// Validator gatekeeps new requests. It builds the PENDING record but never
// stores it.
type Validator struct {
	calc *Calculator
	now  func() time.Time
}

func NewValidator(calc *Calculator, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{calc: calc, now: now}
}

func (v *Validator) Validate(in SubmissionInput, balance LeaveBalance) (LeaveRequest, error) {
	start := dateutil.StartOfDay(in.StartDate)
	end := dateutil.StartOfDay(in.EndDate)
	if end.Before(start) {
		return LeaveRequest{}, apperror.WithField("end_date", leaveerrors.ErrInvalidRange)
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return LeaveRequest{}, apperror.WithField("reason", leaveerrors.ErrMissingReason)
	}
	if !IsKnownReason(reason) {
		return LeaveRequest{}, apperror.WithField("reason", leaveerrors.ErrUnknownReason)
	}

	details := strings.TrimSpace(in.Details)
	if reason == ReasonOther && details == "" {
		return LeaveRequest{}, apperror.WithField("details", leaveerrors.ErrMissingDetails)
	}

	span := v.calc.Span(start, end)
	if span > balance.RemainingDays {
		return LeaveRequest{}, apperror.WithField("end_date", leaveerrors.ErrBalanceExceeded)
	}

	return LeaveRequest{
		RequesterID:   in.RequesterID,
		RequesterName: in.RequesterName,
		CreatedAt:     v.now().UTC(),
		StartDate:     start,
		EndDate:       end,
		TotalDays:     span,
		Reason:        reason,
		Details:       details,
		Status:        StatusPending,
	}, nil
}
