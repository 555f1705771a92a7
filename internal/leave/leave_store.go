package leave

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/shared/contextutil"
	"go-elms/internal/shared/keylock"
	"go-elms/internal/shared/metrics"

	"go.uber.org/zap"
)

// AllEmployees is the refresh scope of the admin view.
const AllEmployees = ""

type ChangeKind string

const (
	ChangeAdded        ChangeKind = "added"
	ChangeTransitioned ChangeKind = "transitioned"
	ChangeRefreshed    ChangeKind = "refreshed"
)

// Change is published after a mutation or refresh has been committed.
// Request is a copy of the affected record and is nil for refreshes.
// Employees lists every employee whose requests may have changed.
type Change struct {
	Kind      ChangeKind
	Scope     string
	Request   *LeaveRequest
	Employees []string
	RequestID string
}

type Observer func(Change)

type TransitionMeta struct {
	ActorID         string
	RejectionReason string
}

type subscription struct {
	id uint64
	fn Observer
}

// Store is the single owner of the cached leave requests. Every mutation goes
// through Add or Transition, and observers are only called after the new
// state is visible to readers.
type Store struct {
	repo    Repository
	locks   *keylock.Locker
	now     func() time.Time
	metrics *metrics.Leave
	logger  *zap.Logger

	mu       sync.RWMutex
	requests map[int64]LeaveRequest
	loaded   map[string]time.Time
	maxAge   time.Duration
	// ticket orders mutation commits and refresh starts. marks holds, per
	// scope, the newest ticket already applied to that scope.
	ticket    uint64
	marks     map[string]uint64
	adminMark uint64

	obsMu     sync.Mutex
	observers []subscription
	nextObs   uint64
}

func NewStore(repo Repository, m *metrics.Leave, logger ...*zap.Logger) *Store {
	l := zap.L().Named("leave.store")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.store")
	}
	return &Store{
		repo:     repo,
		locks:    keylock.New(),
		now:      time.Now,
		metrics:  m,
		logger:   l,
		requests: make(map[int64]LeaveRequest),
		loaded:   make(map[string]time.Time),
		marks:    make(map[string]uint64),
	}
}

// SetMaxAge makes a fetched scope count as loaded for d only, so changes
// committed by other processes reach this cache. Zero keeps scopes forever.
func (s *Store) SetMaxAge(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxAge = d
}

// Subscribe registers fn for every committed change. The returned function
// removes it; calling it more than once is a no-op.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			defer s.obsMu.Unlock()
			for i, sub := range s.observers {
				if sub.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) publish(ch Change) {
	s.obsMu.Lock()
	subs := make([]subscription, len(s.observers))
	copy(subs, s.observers)
	s.obsMu.Unlock()

	for _, sub := range subs {
		sub.fn(ch)
	}
}

func (s *Store) nextTicketLocked() uint64 {
	s.ticket++
	return s.ticket
}

func (s *Store) watermarkLocked(scope string) uint64 {
	if scope == AllEmployees {
		return s.marks[AllEmployees]
	}
	return max(s.marks[scope], s.adminMark)
}

func (s *Store) markLocked(scope string, t uint64) {
	if t > s.marks[scope] {
		s.marks[scope] = t
	}
	if t > s.marks[AllEmployees] {
		s.marks[AllEmployees] = t
	}
	if scope == AllEmployees && t > s.adminMark {
		s.adminMark = t
	}
}

// Add stores a new PENDING request. A zero ID is assigned by the backing.
func (s *Store) Add(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	if req.Status == "" {
		req.Status = StatusPending
	}
	if req.Status != StatusPending {
		return LeaveRequest{}, leaveerrors.ErrInvalidTransition
	}
	req.normalizeDates()

	if req.ID != 0 {
		s.mu.RLock()
		_, exists := s.requests[req.ID]
		s.mu.RUnlock()
		if exists {
			return LeaveRequest{}, leaveerrors.ErrDuplicateID
		}
	}

	created := req.Clone()
	if err := s.repo.Create(ctx, &created); err != nil {
		log.Warn("store add failed",
			zap.String("employee_id", req.RequesterID),
			zap.Error(err),
		)
		return LeaveRequest{}, err
	}

	s.mu.Lock()
	if _, exists := s.requests[created.ID]; exists {
		s.mu.Unlock()
		return LeaveRequest{}, leaveerrors.ErrDuplicateID
	}
	s.requests[created.ID] = created.Clone()
	s.markLocked(created.RequesterID, s.nextTicketLocked())
	s.mu.Unlock()

	log.Info("leave request added",
		zap.Int64("leave_id", created.ID),
		zap.String("employee_id", created.RequesterID),
		zap.Int("total_days", created.TotalDays),
	)

	notified := created.Clone()
	s.publish(Change{
		Kind:      ChangeAdded,
		Scope:     created.RequesterID,
		Request:   &notified,
		Employees: []string{created.RequesterID},
		RequestID: contextutil.GetRequestID(ctx),
	})
	return created.Clone(), nil
}

// Transition moves a cached PENDING request to a terminal status. Calls on
// the same id are serialised; on any failure the cache is left untouched.
func (s *Store) Transition(ctx context.Context, id int64, status Status, meta TransitionMeta) (LeaveRequest, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	if !status.Terminal() {
		return LeaveRequest{}, leaveerrors.ErrInvalidTransition
	}

	unlock := s.locks.Lock(strconv.FormatInt(id, 10))
	defer unlock()

	s.mu.RLock()
	current, ok := s.requests[id]
	s.mu.RUnlock()
	if !ok || current.Status != StatusPending {
		log.Warn("store transition rejected",
			zap.Int64("leave_id", id),
			zap.Bool("cached", ok),
			zap.String("from_status", string(current.Status)),
			zap.String("to_status", string(status)),
		)
		return LeaveRequest{}, leaveerrors.ErrInvalidTransition
	}

	updated := current.Clone()
	decidedAt := s.now().UTC()
	updated.Status = status
	updated.DecidedAt = &decidedAt
	switch status {
	case StatusApproved:
		actor := meta.ActorID
		updated.ApprovedBy = &actor
		updated.RejectedBy = nil
		updated.RejectionReason = nil
	case StatusRejected:
		actor := meta.ActorID
		updated.ApprovedBy = nil
		updated.RejectedBy = &actor
		if meta.RejectionReason != "" {
			reason := meta.RejectionReason
			updated.RejectionReason = &reason
		}
	}

	if err := s.repo.UpdateStatus(ctx, &updated); err != nil {
		log.Warn("store transition failed",
			zap.Int64("leave_id", id),
			zap.String("to_status", string(status)),
			zap.Error(err),
		)
		return LeaveRequest{}, err
	}

	s.mu.Lock()
	s.requests[id] = updated.Clone()
	s.markLocked(updated.RequesterID, s.nextTicketLocked())
	s.mu.Unlock()

	log.Info("leave request transitioned",
		zap.Int64("leave_id", id),
		zap.String("employee_id", updated.RequesterID),
		zap.String("status", string(status)),
		zap.String("actor_id", meta.ActorID),
	)

	notified := updated.Clone()
	s.publish(Change{
		Kind:      ChangeTransitioned,
		Scope:     updated.RequesterID,
		Request:   &notified,
		Employees: []string{updated.RequesterID},
		RequestID: contextutil.GetRequestID(ctx),
	})
	return updated.Clone(), nil
}

// Get returns the cached request, reading through to the backing on a miss.
func (s *Store) Get(ctx context.Context, id int64) (LeaveRequest, error) {
	s.mu.RLock()
	req, ok := s.requests[id]
	s.mu.RUnlock()
	if ok {
		return req.Clone(), nil
	}

	found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	found.normalizeDates()

	s.mu.Lock()
	if cached, ok := s.requests[id]; ok {
		s.mu.Unlock()
		return cached.Clone(), nil
	}
	s.requests[id] = found.Clone()
	s.mu.Unlock()
	return found.Clone(), nil
}

func (s *Store) ListByStatus(status Status) []LeaveRequest {
	return s.list(func(r LeaveRequest) bool { return r.Status == status })
}

func (s *Store) ListByEmployee(employeeID string) []LeaveRequest {
	return s.list(func(r LeaveRequest) bool { return r.RequesterID == employeeID })
}

func (s *Store) ListByEmployeeAndStatus(employeeID string, statuses ...Status) []LeaveRequest {
	return s.list(func(r LeaveRequest) bool {
		if r.RequesterID != employeeID {
			return false
		}
		for _, st := range statuses {
			if r.Status == st {
				return true
			}
		}
		return false
	})
}

// list returns matching copies, newest first.
func (s *Store) list(match func(LeaveRequest) bool) []LeaveRequest {
	s.mu.RLock()
	out := make([]LeaveRequest, 0)
	for _, r := range s.requests {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out
}

func sortNewestFirst(reqs []LeaveRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return reqs[i].ID > reqs[j].ID
	})
}

// Loaded reports whether scope has been fetched since it was last
// invalidated and, with a max age set, recently enough.
func (s *Store) Loaded(employeeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freshLocked(employeeID) || s.freshLocked(AllEmployees)
}

func (s *Store) freshLocked(scope string) bool {
	at, ok := s.loaded[scope]
	if !ok {
		return false
	}
	return s.maxAge <= 0 || s.now().Sub(at) < s.maxAge
}

// Invalidate forgets that scope was fetched. Cached records stay readable
// until the next refresh replaces them.
func (s *Store) Invalidate(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if employeeID == AllEmployees {
		s.loaded = make(map[string]time.Time)
		return
	}
	delete(s.loaded, employeeID)
	delete(s.loaded, AllEmployees)
}

// Refresh refetches scope wholesale. The response is dropped with
// ErrStaleRefresh when a mutation or a newer refresh touching the same scope
// committed while the fetch was in flight, and with ctx.Err() when the caller
// went away. Fetch errors leave the cache as it was.
func (s *Store) Refresh(ctx context.Context, employeeID string) error {
	log := contextutil.GetLogger(ctx, s.logger)

	s.mu.Lock()
	started := s.nextTicketLocked()
	s.mu.Unlock()

	fetched, err := s.repo.FindAll(ctx, employeeID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.metrics.Refresh("cancelled")
			return ctxErr
		}
		s.metrics.Refresh("failed")
		log.Warn("store refresh fetch failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return err
	}

	s.mu.Lock()
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.mu.Unlock()
		s.metrics.Refresh("cancelled")
		log.Debug("store refresh discarded, caller gone", zap.String("employee_id", employeeID))
		return ctxErr
	}
	if s.watermarkLocked(employeeID) > started {
		s.mu.Unlock()
		s.metrics.Refresh("stale")
		log.Debug("store refresh discarded, superseded", zap.String("employee_id", employeeID))
		return leaveerrors.ErrStaleRefresh
	}

	previous := make(map[int64]LeaveRequest)
	for id, r := range s.requests {
		if employeeID == AllEmployees || r.RequesterID == employeeID {
			previous[id] = r
			delete(s.requests, id)
		}
	}
	// Only employees whose rows differ are reported, so a refresh that finds
	// nothing new does not drop derived caches.
	affected := make(map[string]struct{})
	for _, r := range fetched {
		if employeeID != AllEmployees && r.RequesterID != employeeID {
			continue
		}
		r.normalizeDates()
		old, ok := previous[r.ID]
		delete(previous, r.ID)
		if !ok || !sameRecord(old, r) {
			affected[r.RequesterID] = struct{}{}
			if ok {
				affected[old.RequesterID] = struct{}{}
			}
		}
		s.requests[r.ID] = r.Clone()
	}
	for _, gone := range previous {
		affected[gone.RequesterID] = struct{}{}
	}
	s.loaded[employeeID] = s.now()
	s.markLocked(employeeID, started)
	s.mu.Unlock()

	employees := make([]string, 0, len(affected))
	for id := range affected {
		employees = append(employees, id)
	}
	sort.Strings(employees)

	s.metrics.Refresh("applied")
	log.Debug("store refreshed",
		zap.String("employee_id", employeeID),
		zap.Int("count", len(fetched)),
	)
	s.publish(Change{Kind: ChangeRefreshed, Scope: employeeID, Employees: employees})
	return nil
}

func sameRecord(a, b LeaveRequest) bool {
	return a.RequesterID == b.RequesterID &&
		a.Status == b.Status &&
		a.TotalDays == b.TotalDays &&
		a.SpanFromDates == b.SpanFromDates &&
		a.StartDate.Equal(b.StartDate) &&
		a.EndDate.Equal(b.EndDate) &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

// Reload refetches scope even when it is cached. A refresh that loses to a
// concurrent commit is retried, since the commit may predate writes made
// elsewhere.
func (s *Store) Reload(ctx context.Context, employeeID string) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = s.Refresh(ctx, employeeID); !errors.Is(err, leaveerrors.ErrStaleRefresh) {
			return err
		}
	}
	return err
}

// EnsureLoaded refreshes scope unless it is already cached. A refresh that
// loses to a concurrent commit is retried once, since the winner may not have
// loaded this scope.
func (s *Store) EnsureLoaded(ctx context.Context, employeeID string) error {
	for attempt := 0; attempt < 2; attempt++ {
		if s.Loaded(employeeID) {
			return nil
		}
		err := s.Refresh(ctx, employeeID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, leaveerrors.ErrStaleRefresh) {
			return err
		}
	}
	if s.Loaded(employeeID) {
		return nil
	}
	return leaveerrors.ErrStaleRefresh
}
