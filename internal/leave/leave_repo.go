package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/shared/contextutil"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repository is the backing of the lifecycle store. FindAll with an empty
// employeeID returns every employee's requests.
//
//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	Create(ctx context.Context, req *LeaveRequest) error
	FindByID(ctx context.Context, id int64) (*LeaveRequest, error)
	FindAll(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	UpdateStatus(ctx context.Context, req *LeaveRequest) error
}

var errNotPending = errors.New("leave request is no longer pending")

type repository struct {
	db     *gorm.DB
	events *OutboxPublisher
}

// NewRepository stores requests in postgres. With events set, every insert
// and decision writes its outbox row in the same transaction.
func NewRepository(db *gorm.DB, events ...*OutboxPublisher) Repository {
	r := &repository{db: db}
	if len(events) > 0 {
		r.events = events[0]
	}
	return r
}

func (r *repository) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := r.db.WithContext(ctx)
	if r.events == nil {
		return fn(db)
	}
	return db.Transaction(fn)
}

func (r *repository) record(ctx context.Context, tx *gorm.DB, kind ChangeKind, req LeaveRequest) error {
	if r.events == nil {
		return nil
	}
	sqlTx, ok := tx.Statement.ConnPool.(*sql.Tx)
	if !ok {
		return errors.New("leave outbox: connection is not in a transaction")
	}
	snapshot := req.Clone()
	return r.events.WithTx(sqlTx).Publish(ctx, Change{
		Kind:      kind,
		Scope:     req.RequesterID,
		Request:   &snapshot,
		Employees: []string{req.RequesterID},
		RequestID: contextutil.GetRequestID(ctx),
	})
}

func (r *repository) Create(ctx context.Context, req *LeaveRequest) error {
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return r.record(ctx, tx, ChangeAdded, *req)
	})
	if isUniqueViolation(err) {
		return leaveerrors.ErrDuplicateID
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id int64) (*LeaveRequest, error) {
	var req LeaveRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, leaveerrors.ErrLeaveNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// requesterScope limits a query to one employee. AllEmployees keeps every row.
func requesterScope(employeeID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if employeeID == AllEmployees {
			return db
		}
		return db.Where("requester_id = ?", employeeID)
	}
}

func (r *repository) FindAll(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	var reqs []LeaveRequest
	err := r.db.WithContext(ctx).
		Scopes(requesterScope(employeeID)).
		Order("created_at DESC").Order("id DESC").
		Find(&reqs).Error
	return reqs, err
}

// UpdateStatus only touches rows that are still PENDING, so two instances
// deciding the same request cannot both win.
func (r *repository) UpdateStatus(ctx context.Context, req *LeaveRequest) error {
	now := time.Now().UTC()
	err := r.inTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&LeaveRequest{}).
			Where("id = ? AND status = ?", req.ID, StatusPending).
			Updates(map[string]any{
				"status":           req.Status,
				"approved_by":      req.ApprovedBy,
				"rejected_by":      req.RejectedBy,
				"rejection_reason": req.RejectionReason,
				"decided_at":       req.DecidedAt,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNotPending
		}
		decided := *req
		decided.UpdatedAt = now
		return r.record(ctx, tx, ChangeTransitioned, decided)
	})
	if errors.Is(err, errNotPending) {
		if _, err := r.FindByID(ctx, req.ID); err != nil {
			return err
		}
		return leaveerrors.ErrInvalidTransition
	}
	if err != nil {
		return err
	}
	req.UpdatedAt = now
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
