package leave

import (
	"strings"
	"time"

	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/shared/dateutil"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus normalises the status spellings used by the leave API and its
// older clients. Unknown values are rejected instead of passed through.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, nil
	case "approved", "accepted":
		return StatusApproved, nil
	case "rejected", "denied":
		return StatusRejected, nil
	default:
		return "", leaveerrors.ErrInvalidStatus
	}
}

const (
	ReasonPersonal = "Personal reasons"
	ReasonHealth   = "Health reasons"
	ReasonFamily   = "Family reasons"
	ReasonOther    = "Other"
)

var reasons = []string{ReasonPersonal, ReasonHealth, ReasonFamily, ReasonOther}

// Reasons lists the selectable leave reasons in display order.
func Reasons() []string {
	out := make([]string, len(reasons))
	copy(out, reasons)
	return out
}

func IsKnownReason(reason string) bool {
	for _, r := range reasons {
		if r == reason {
			return true
		}
	}
	return false
}

type LeaveRequest struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	RequesterID   string `gorm:"type:varchar(64);not null;index:idx_leave_requests_requester"`
	RequesterName string `gorm:"type:varchar(255);not null;default:''"`

	StartDate time.Time `gorm:"type:date;not null;index:idx_leave_requests_requester"`
	EndDate   time.Time `gorm:"type:date;not null"`
	TotalDays int       `gorm:"type:int;not null;default:0"`
	Reason    string    `gorm:"type:varchar(64);not null"`
	Details   string    `gorm:"type:text;not null;default:''"`

	// SpanFromDates marks ingested records that came without a day count.
	SpanFromDates bool `gorm:"-" json:"-"`

	Status          Status     `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_leave_requests_status"`
	ApprovedBy      *string    `gorm:"type:varchar(64)"`
	RejectedBy      *string    `gorm:"type:varchar(64)"`
	RejectionReason *string    `gorm:"type:text"`
	DecidedAt       *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

// DaySpan is the number of days the request consumes. TotalDays is fixed at
// creation, zero included; the dates are only counted for records ingested
// without it.
func (r LeaveRequest) DaySpan(mode CountMode) int {
	if r.SpanFromDates {
		return mode.Span(r.StartDate, r.EndDate)
	}
	return r.TotalDays
}

// Year is the calendar year the request is charged against.
func (r LeaveRequest) Year() int {
	return r.StartDate.Year()
}

// Clone returns a copy that shares no pointers with r.
func (r LeaveRequest) Clone() LeaveRequest {
	out := r
	out.ApprovedBy = cloneString(r.ApprovedBy)
	out.RejectedBy = cloneString(r.RejectedBy)
	out.RejectionReason = cloneString(r.RejectionReason)
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		out.DecidedAt = &t
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// normalizeDates drops the time of day so spans and comparisons are by date.
func (r *LeaveRequest) normalizeDates() {
	r.StartDate = dateutil.StartOfDay(r.StartDate)
	r.EndDate = dateutil.StartOfDay(r.EndDate)
}
