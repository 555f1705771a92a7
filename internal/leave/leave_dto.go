package leave

import (
	"time"

	"go-elms/internal/shared/dateutil"
)

// CreateLeaveRequest leaves reason unchecked at binding so the validator can
// report a missing and an unknown reason distinctly.
type CreateLeaveRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason"`
	Details   string `json:"details"`
}

type RejectLeaveRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

type LeaveResponse struct {
	ID              int64   `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	EmployeeName    string  `json:"employee_name"`
	DateOfRequest   string  `json:"date_of_request"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	TotalDays       int     `json:"total_days"`
	Reason          string  `json:"reason"`
	Details         string  `json:"details,omitempty"`
	Status          string  `json:"status"`
	ApprovedBy      *string `json:"approved_by,omitempty"`
	RejectedBy      *string `json:"rejected_by,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	DecidedAt       *string `json:"decided_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type MyRequestsResponse struct {
	Pending []LeaveResponse `json:"pending"`
	History []LeaveResponse `json:"history"`
}

// AdminLeaveRow adds the requester's "used/entitlement" summary for the year
// of the request.
type AdminLeaveRow struct {
	LeaveResponse
	BalanceSummary string `json:"balance_summary"`
}

type AdminQueuesResponse struct {
	Pending  []AdminLeaveRow `json:"pending"`
	Accepted []AdminLeaveRow `json:"accepted"`
	Denied   []AdminLeaveRow `json:"denied"`
}

type DecisionResponse struct {
	Request LeaveResponse `json:"request"`
	Balance LeaveBalance  `json:"balance"`
}

func mapToResponse(r LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:              r.ID,
		EmployeeID:      r.RequesterID,
		EmployeeName:    r.RequesterName,
		DateOfRequest:   dateutil.FormatDateTime(r.CreatedAt),
		StartDate:       dateutil.FormatISO(r.StartDate),
		EndDate:         dateutil.FormatISO(r.EndDate),
		TotalDays:       r.TotalDays,
		Reason:          r.Reason,
		Details:         r.Details,
		Status:          string(r.Status),
		ApprovedBy:      cloneString(r.ApprovedBy),
		RejectedBy:      cloneString(r.RejectedBy),
		RejectionReason: cloneString(r.RejectionReason),
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.DecidedAt != nil {
		v := r.DecidedAt.UTC().Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	return resp
}

func mapToListResponse(reqs []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(reqs))
	for i, r := range reqs {
		resp[i] = mapToResponse(r)
	}
	return resp
}
