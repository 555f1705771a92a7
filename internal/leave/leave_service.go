package leave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/rbac"
	"go-elms/internal/shared/apperror"
	"go-elms/internal/shared/contextutil"
	"go-elms/internal/shared/dateutil"
	"go-elms/internal/shared/keylock"
	"go-elms/internal/shared/metrics"

	"go.uber.org/zap"
)

// Actor is the authenticated caller.
type Actor struct {
	EmployeeID string
	Role       string
}

func (a Actor) IsAdmin() bool {
	return strings.EqualFold(a.Role, rbac.RoleAdmin)
}

// Directory resolves display names of employees.
type Directory interface {
	DisplayName(ctx context.Context, employeeID string) (string, error)
}

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, actor Actor, req CreateLeaveRequest) (LeaveResponse, error)
	MyRequests(ctx context.Context, employeeID string) (MyRequestsResponse, error)
	MyBalance(ctx context.Context, employeeID string, year int) (LeaveBalance, error)
	AdminQueues(ctx context.Context) (AdminQueuesResponse, error)
	GetByID(ctx context.Context, actor Actor, id int64) (LeaveResponse, error)
	Approve(ctx context.Context, adminID string, id int64) (DecisionResponse, error)
	Reject(ctx context.Context, adminID string, id int64, reason string) (DecisionResponse, error)
	ExportHistory(ctx context.Context, w io.Writer) error
}

type ServiceDeps struct {
	Store     *Store
	Ledger    *Ledger
	Validator *Validator
	Workflow  *Workflow
	Cache     *BalanceCache
	Directory Directory
	Metrics   *metrics.Leave
}

type service struct {
	store     *Store
	ledger    *Ledger
	validator *Validator
	workflow  *Workflow
	cache     *BalanceCache
	directory Directory
	metrics   *metrics.Leave
	submits   *keylock.Locker
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(deps ServiceDeps, logger ...*zap.Logger) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	cache := deps.Cache
	if cache == nil {
		cache = NewBalanceCache(nil, 0, l)
	}
	return &service{
		store:     deps.Store,
		ledger:    deps.Ledger,
		validator: deps.Validator,
		workflow:  deps.Workflow,
		cache:     cache,
		directory: deps.Directory,
		metrics:   deps.Metrics,
		submits:   keylock.New(),
		now:       time.Now,
		logger:    l,
	}
}

// Submit validates and stores a new request. Submissions of one employee are
// serialised so two concurrent requests cannot both fit in the same balance.
func (s *service) Submit(ctx context.Context, actor Actor, req CreateLeaveRequest) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("submit leave requested",
		zap.String("employee_id", actor.EmployeeID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	if strings.TrimSpace(actor.EmployeeID) == "" {
		return LeaveResponse{}, leaveerrors.ErrInvalidEmployeeID
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		s.metrics.Submission(submissionOutcome(err))
		return LeaveResponse{}, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		s.metrics.Submission(submissionOutcome(err))
		return LeaveResponse{}, err
	}

	unlock := s.submits.Lock(actor.EmployeeID)
	defer unlock()

	// Other instances share the backing, so the balance is checked against a
	// fresh read rather than the cached set.
	if err := s.store.Reload(ctx, actor.EmployeeID); err != nil {
		log.Error("submit leave reload failed", zap.String("employee_id", actor.EmployeeID), zap.Error(err))
		s.metrics.Submission(submissionOutcome(err))
		return LeaveResponse{}, err
	}

	balance, err := s.ledger.Balance(ctx, actor.EmployeeID, start.Year())
	if err != nil {
		log.Error("submit leave balance failed", zap.String("employee_id", actor.EmployeeID), zap.Error(err))
		s.metrics.Submission(submissionOutcome(err))
		return LeaveResponse{}, err
	}

	candidate, err := s.validator.Validate(SubmissionInput{
		RequesterID:   actor.EmployeeID,
		RequesterName: s.displayName(ctx, actor.EmployeeID),
		StartDate:     start,
		EndDate:       end,
		Reason:        req.Reason,
		Details:       req.Details,
	}, balance)
	if err != nil {
		log.Warn("submit leave validation failed",
			zap.String("employee_id", actor.EmployeeID),
			zap.Int("remaining_days", balance.RemainingDays),
			zap.Error(err),
		)
		s.metrics.Submission(submissionOutcome(err))
		return LeaveResponse{}, err
	}

	created, err := s.store.Add(ctx, candidate)
	if err != nil {
		log.Error("submit leave persist failed", zap.String("employee_id", actor.EmployeeID), zap.Error(err))
		s.metrics.Submission(submissionOutcome(err))
		return LeaveResponse{}, err
	}

	s.metrics.Submission("ok")
	log.Info("submit leave success",
		zap.Int64("leave_id", created.ID),
		zap.String("employee_id", created.RequesterID),
		zap.Int("total_days", created.TotalDays),
	)
	return mapToResponse(created), nil
}

func (s *service) MyRequests(ctx context.Context, employeeID string) (MyRequestsResponse, error) {
	if err := s.store.EnsureLoaded(ctx, employeeID); err != nil {
		return MyRequestsResponse{}, err
	}
	return MyRequestsResponse{
		Pending: mapToListResponse(s.store.ListByEmployeeAndStatus(employeeID, StatusPending)),
		History: mapToListResponse(s.store.ListByEmployeeAndStatus(employeeID, StatusApproved, StatusRejected)),
	}, nil
}

func (s *service) MyBalance(ctx context.Context, employeeID string, year int) (LeaveBalance, error) {
	if year == 0 {
		year = s.now().Year()
	}
	if year < 1 {
		return LeaveBalance{}, apperror.WithField("year", leaveerrors.ErrInvalidYear)
	}
	// A miss means the cached value expired or a change event dropped it, so
	// the scope is refetched before recomputing.
	return s.cache.Get(ctx, employeeID, year, func(ctx context.Context) (LeaveBalance, error) {
		if err := s.store.Reload(ctx, employeeID); err != nil && !errors.Is(err, leaveerrors.ErrStaleRefresh) {
			return LeaveBalance{}, err
		}
		return s.ledger.Balance(ctx, employeeID, year)
	})
}

func (s *service) AdminQueues(ctx context.Context) (AdminQueuesResponse, error) {
	if err := s.store.EnsureLoaded(ctx, AllEmployees); err != nil {
		return AdminQueuesResponse{}, err
	}

	summaries := make(map[string]string)
	rows := func(reqs []LeaveRequest) ([]AdminLeaveRow, error) {
		out := make([]AdminLeaveRow, len(reqs))
		for i, r := range reqs {
			key := fmt.Sprintf("%s:%d", r.RequesterID, r.Year())
			summary, ok := summaries[key]
			if !ok {
				b, err := s.MyBalance(ctx, r.RequesterID, r.Year())
				if err != nil {
					return nil, err
				}
				summary = fmt.Sprintf("%d/%d", b.UsedDays, b.EntitlementDays)
				summaries[key] = summary
			}
			out[i] = AdminLeaveRow{LeaveResponse: mapToResponse(r), BalanceSummary: summary}
		}
		return out, nil
	}

	var resp AdminQueuesResponse
	var err error
	if resp.Pending, err = rows(s.store.ListByStatus(StatusPending)); err != nil {
		return AdminQueuesResponse{}, err
	}
	if resp.Accepted, err = rows(s.store.ListByStatus(StatusApproved)); err != nil {
		return AdminQueuesResponse{}, err
	}
	if resp.Denied, err = rows(s.store.ListByStatus(StatusRejected)); err != nil {
		return AdminQueuesResponse{}, err
	}
	return resp, nil
}

// GetByID hides other employees' requests from non admins.
func (s *service) GetByID(ctx context.Context, actor Actor, id int64) (LeaveResponse, error) {
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return LeaveResponse{}, err
	}
	if !actor.IsAdmin() && req.RequesterID != actor.EmployeeID {
		return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
	}
	return mapToResponse(req), nil
}

func (s *service) Approve(ctx context.Context, adminID string, id int64) (DecisionResponse, error) {
	d, err := s.workflow.Approve(ctx, id, adminID)
	if err != nil {
		return DecisionResponse{}, err
	}
	return DecisionResponse{Request: mapToResponse(d.Request), Balance: d.Balance}, nil
}

func (s *service) Reject(ctx context.Context, adminID string, id int64, reason string) (DecisionResponse, error) {
	d, err := s.workflow.Reject(ctx, id, adminID, strings.TrimSpace(reason))
	if err != nil {
		return DecisionResponse{}, err
	}
	return DecisionResponse{Request: mapToResponse(d.Request), Balance: d.Balance}, nil
}

// ExportHistory writes every decided request as XLSX, newest first.
func (s *service) ExportHistory(ctx context.Context, w io.Writer) error {
	if err := s.store.EnsureLoaded(ctx, AllEmployees); err != nil {
		return err
	}
	decided := append(s.store.ListByStatus(StatusApproved), s.store.ListByStatus(StatusRejected)...)
	sortNewestFirst(decided)
	return WriteHistoryXLSX(w, decided)
}

func (s *service) displayName(ctx context.Context, employeeID string) string {
	if s.directory == nil {
		return employeeID
	}
	name, err := s.directory.DisplayName(ctx, employeeID)
	if err != nil || name == "" {
		contextutil.GetLogger(ctx, s.logger).Debug("display name lookup failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return employeeID
	}
	return name
}

func parseDate(field, v string) (time.Time, error) {
	t, err := dateutil.ParseDate(strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, apperror.WithField(field, leaveerrors.ErrInvalidDateFormat)
	}
	return t, nil
}

func submissionOutcome(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch appErr {
		case leaveerrors.ErrInvalidRange:
			return "invalid_range"
		case leaveerrors.ErrMissingReason:
			return "missing_reason"
		case leaveerrors.ErrUnknownReason:
			return "unknown_reason"
		case leaveerrors.ErrMissingDetails:
			return "missing_details"
		case leaveerrors.ErrBalanceExceeded:
			return "balance_exceeded"
		case leaveerrors.ErrInvalidDateFormat:
			return "invalid_date"
		}
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
