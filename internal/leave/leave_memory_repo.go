package leave

import (
	"context"
	"sort"
	"sync"
	"time"

	leaveerrors "go-elms/internal/leave/errors"
)

// memoryRepository keeps requests in process memory. Ids are monotonic.
type memoryRepository struct {
	mu     sync.Mutex
	rows   map[int64]LeaveRequest
	lastID int64
	now    func() time.Time
}

func NewMemoryRepository(seed ...LeaveRequest) Repository {
	r := &memoryRepository{
		rows: make(map[int64]LeaveRequest),
		now:  time.Now,
	}
	for _, req := range seed {
		req := req
		_ = r.Create(context.Background(), &req)
	}
	return r
}

func (r *memoryRepository) Create(ctx context.Context, req *LeaveRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == 0 {
		req.ID = r.lastID + 1
	}
	if _, exists := r.rows[req.ID]; exists {
		return leaveerrors.ErrDuplicateID
	}
	if req.ID > r.lastID {
		r.lastID = req.ID
	}

	now := r.now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	r.rows[req.ID] = req.Clone()
	return nil
}

func (r *memoryRepository) FindByID(ctx context.Context, id int64) (*LeaveRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, leaveerrors.ErrLeaveNotFound
	}
	out := row.Clone()
	return &out, nil
}

func (r *memoryRepository) FindAll(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]LeaveRequest, 0, len(r.rows))
	for _, row := range r.rows {
		if employeeID != "" && row.RequesterID != employeeID {
			continue
		}
		out = append(out, row.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryRepository) UpdateStatus(ctx context.Context, req *LeaveRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[req.ID]
	if !ok {
		return leaveerrors.ErrLeaveNotFound
	}
	if row.Status != StatusPending {
		return leaveerrors.ErrInvalidTransition
	}

	row.Status = req.Status
	row.ApprovedBy = cloneString(req.ApprovedBy)
	row.RejectedBy = cloneString(req.RejectedBy)
	row.RejectionReason = cloneString(req.RejectionReason)
	if req.DecidedAt != nil {
		t := *req.DecidedAt
		row.DecidedAt = &t
	}
	row.UpdatedAt = r.now().UTC()
	r.rows[req.ID] = row

	*req = row.Clone()
	return nil
}
