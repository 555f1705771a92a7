// Package remote backs the leave store with the external leave API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go-elms/internal/apiclient"
	"go-elms/internal/leave"
	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/shared/contextutil"
	"go-elms/internal/shared/dateutil"

	"go.uber.org/zap"
)

// API is the slice of apiclient.Client the adapter needs.
type API interface {
	FetchLeaveBalance(ctx context.Context, employeeID string, year int) (apiclient.BalanceRecord, error)
	FetchRequests(ctx context.Context, employeeIDCode string) ([]apiclient.LeaveRequestRecord, error)
	FetchAllRequests(ctx context.Context) ([]apiclient.LeaveRequestRecord, error)
	FetchRequest(ctx context.Context, id int64) (apiclient.LeaveRequestRecord, error)
	SubmitRequest(ctx context.Context, employeeIDCode string, payload apiclient.SubmitPayload) (apiclient.LeaveRequestRecord, error)
	ApproveRequest(ctx context.Context, id int64, adminID string) (apiclient.LeaveRequestRecord, error)
	RejectRequest(ctx context.Context, id int64, adminID, reason string) (apiclient.LeaveRequestRecord, error)
	FetchCurrentUser(ctx context.Context, employeeID string) (apiclient.UserInfo, error)
}

var errMissingID = errors.New("leave api returned a request without id")

type repository struct {
	api    API
	logger *zap.Logger

	mu    sync.RWMutex
	codes map[string]string
}

// NewRepository returns a leave.Repository whose state lives in the remote
// service. Requests are addressed by employee code, so the code of each
// employee is looked up once and remembered.
func NewRepository(api API, logger ...*zap.Logger) leave.Repository {
	l := zap.L().Named("leave.remote")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.remote")
	}
	return &repository{api: api, logger: l, codes: make(map[string]string)}
}

func (r *repository) Create(ctx context.Context, req *leave.LeaveRequest) error {
	code, err := r.employeeCode(ctx, req.RequesterID)
	if err != nil {
		return err
	}

	rec, err := r.api.SubmitRequest(ctx, code, apiclient.SubmitPayload{
		StartDate: dateutil.FormatISO(req.StartDate),
		EndDate:   dateutil.FormatISO(req.EndDate),
		Reason:    req.Reason,
		Details:   req.Details,
		TotalDays: req.TotalDays,
	})
	if err != nil {
		if apiclient.HasStatus(err, http.StatusConflict) {
			return leaveerrors.ErrDuplicateID
		}
		return err
	}

	created, err := toEntity(rec, req.RequesterID)
	if err != nil {
		return err
	}
	if created.ID == 0 {
		return errMissingID
	}
	// The service may echo only part of the record.
	if created.RequesterName == "" {
		created.RequesterName = req.RequesterName
	}
	if created.Details == "" {
		created.Details = req.Details
	}
	if created.SpanFromDates {
		created.TotalDays = req.TotalDays
		created.SpanFromDates = false
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = req.CreatedAt
	}
	*req = created
	return nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*leave.LeaveRequest, error) {
	rec, err := r.api.FetchRequest(ctx, id)
	if err != nil {
		return nil, mapStatusError(err)
	}
	req, err := toEntity(rec, "")
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindAll(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	var (
		recs []apiclient.LeaveRequestRecord
		err  error
	)
	if employeeID == "" {
		recs, err = r.api.FetchAllRequests(ctx)
	} else {
		var code string
		if code, err = r.employeeCode(ctx, employeeID); err != nil {
			return nil, err
		}
		recs, err = r.api.FetchRequests(ctx, code)
	}
	if err != nil {
		return nil, err
	}

	log := contextutil.GetLogger(ctx, r.logger)
	out := make([]leave.LeaveRequest, 0, len(recs))
	for _, rec := range recs {
		req, err := toEntity(rec, employeeID)
		if err != nil {
			log.Warn("skipping unreadable leave record",
				zap.Int64("leave_id", rec.ID),
				zap.String("status", rec.Status),
				zap.Error(err),
			)
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (r *repository) UpdateStatus(ctx context.Context, req *leave.LeaveRequest) error {
	var (
		rec apiclient.LeaveRequestRecord
		err error
	)
	switch req.Status {
	case leave.StatusApproved:
		rec, err = r.api.ApproveRequest(ctx, req.ID, deref(req.ApprovedBy))
	case leave.StatusRejected:
		rec, err = r.api.RejectRequest(ctx, req.ID, deref(req.RejectedBy), deref(req.RejectionReason))
	default:
		return leaveerrors.ErrInvalidTransition
	}
	if err != nil {
		return mapStatusError(err)
	}

	updated, err := toEntity(rec, req.RequesterID)
	if err != nil {
		return err
	}
	if updated.ID == 0 {
		// Nothing echoed back; keep what the store computed.
		return nil
	}
	if updated.Status != req.Status {
		return leaveerrors.ErrInvalidTransition
	}
	if updated.DecidedAt == nil {
		updated.DecidedAt = req.DecidedAt
	}
	if updated.ApprovedBy == nil {
		updated.ApprovedBy = req.ApprovedBy
	}
	if updated.RejectedBy == nil {
		updated.RejectedBy = req.RejectedBy
	}
	if updated.RejectionReason == nil {
		updated.RejectionReason = req.RejectionReason
	}
	if updated.RequesterName == "" {
		updated.RequesterName = req.RequesterName
	}
	*req = updated
	return nil
}

// employeeCode resolves the code the API files requests under. An employee
// without one is addressed by its id.
func (r *repository) employeeCode(ctx context.Context, employeeID string) (string, error) {
	r.mu.RLock()
	code, ok := r.codes[employeeID]
	r.mu.RUnlock()
	if ok {
		return code, nil
	}

	info, err := r.api.FetchCurrentUser(ctx, employeeID)
	if err != nil {
		return "", err
	}
	code = strings.TrimSpace(info.EmployeeIDCode)
	if code == "" {
		code = employeeID
	}

	r.mu.Lock()
	r.codes[employeeID] = code
	r.mu.Unlock()
	return code, nil
}

func mapStatusError(err error) error {
	switch {
	case apiclient.HasStatus(err, http.StatusNotFound):
		return leaveerrors.ErrLeaveNotFound
	case apiclient.HasStatus(err, http.StatusConflict):
		return leaveerrors.ErrInvalidTransition
	}
	return err
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	if t, err := dateutil.ParseDate(raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseDay accepts plain dates and timestamps, keeping only the date.
func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len("2006-01-02") {
		raw = raw[:len("2006-01-02")]
	}
	t, err := dateutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func toEntity(rec apiclient.LeaveRequestRecord, fallbackEmployee string) (leave.LeaveRequest, error) {
	if rec.ID == 0 && rec.Status == "" {
		return leave.LeaveRequest{}, nil
	}

	status, err := leave.ParseStatus(rec.Status)
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	start, err := parseDay(rec.StartDate)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("startDate %q: %w", rec.StartDate, err)
	}
	end, err := parseDay(rec.EndDate)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("endDate %q: %w", rec.EndDate, err)
	}

	out := leave.LeaveRequest{
		ID:            rec.ID,
		RequesterID:   firstNonEmpty(rec.EmployeeID, fallbackEmployee, rec.EmployeeIDCode),
		RequesterName: rec.EmployeeName,
		StartDate:     start,
		EndDate:       end,
		Reason:        rec.Reason,
		Details:       rec.Details,
		Status:        status,
	}
	if rec.TotalDays != nil {
		out.TotalDays = *rec.TotalDays
	} else {
		out.SpanFromDates = true
	}
	if t, ok := parseTimestamp(rec.CreatedAt); ok {
		out.CreatedAt = t
		out.UpdatedAt = t
	}
	if t, ok := parseTimestamp(rec.DecidedAt); ok {
		out.DecidedAt = &t
		out.UpdatedAt = t
	}
	out.ApprovedBy = optional(rec.ApprovedBy)
	out.RejectedBy = optional(rec.RejectedBy)
	out.RejectionReason = optional(rec.RejectionReason)
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
