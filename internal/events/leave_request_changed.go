package events

import "time"

const LeaveRequestChangedTopic = "elms.leave.request.changed.v1"

const (
	LeaveRequestSubmitted = "leave_request.submitted"
	LeaveRequestApproved  = "leave_request.approved"
	LeaveRequestRejected  = "leave_request.rejected"
)

type LeaveRequestChangedEvent struct {
	EventType  string    `json:"event_type"`
	LeaveID    int64     `json:"leave_id"`
	EmployeeID string    `json:"employee_id"`
	Status     string    `json:"status"`
	TotalDays  int       `json:"total_days"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	ActorID    string    `json:"actor_id,omitempty"`
	Reason     string    `json:"rejection_reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
