package leave_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-elms/internal/leave"
	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/shared/contextutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// hookedRepo wraps the memory repository so tests can pause or fail fetches.
type hookedRepo struct {
	leave.Repository
	beforeFindAll func(ctx context.Context, employeeID string) error
	findAllCalls  int32
}

func (r *hookedRepo) FindAll(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	atomic.AddInt32(&r.findAllCalls, 1)
	// Read before the hook so a paused refresh returns the old snapshot.
	reqs, err := r.Repository.FindAll(ctx, employeeID)
	if r.beforeFindAll != nil {
		if hookErr := r.beforeFindAll(ctx, employeeID); hookErr != nil {
			return nil, hookErr
		}
	}
	return reqs, err
}

func pending(emp string, start, end int, days int) leave.LeaveRequest {
	return leave.LeaveRequest{
		RequesterID: emp,
		StartDate:   day(2025, 11, start),
		EndDate:     day(2025, 11, end),
		TotalDays:   days,
		Reason:      leave.ReasonPersonal,
		Status:      leave.StatusPending,
	}
}

func newStore(seed ...leave.LeaveRequest) (*leave.Store, *hookedRepo) {
	repo := &hookedRepo{Repository: leave.NewMemoryRepository(seed...)}
	return leave.NewStore(repo, nil, zap.NewNop()), repo
}

func TestStore_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("success assigns monotonic ids and notifies", func(t *testing.T) {
		store, _ := newStore()
		var changes []leave.Change
		store.Subscribe(func(ch leave.Change) { changes = append(changes, ch) })

		ctx := contextutil.WithRequestID(ctx, "rid-1")
		a, err := store.Add(ctx, pending("emp-1", 3, 4, 2))
		require.NoError(t, err)
		b, err := store.Add(ctx, pending("emp-1", 10, 10, 1))
		require.NoError(t, err)

		assert.Greater(t, b.ID, a.ID)
		require.Len(t, changes, 2)
		assert.Equal(t, leave.ChangeAdded, changes[0].Kind)
		assert.Equal(t, []string{"emp-1"}, changes[0].Employees)
		assert.Equal(t, "rid-1", changes[0].RequestID)
		assert.Equal(t, a.ID, changes[0].Request.ID)
	})

	t.Run("negative non pending record", func(t *testing.T) {
		store, _ := newStore()
		req := pending("emp-1", 3, 4, 2)
		req.Status = leave.StatusApproved

		_, err := store.Add(ctx, req)
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidTransition)
	})

	t.Run("negative duplicate id", func(t *testing.T) {
		store, _ := newStore()
		req := pending("emp-1", 3, 4, 2)
		req.ID = 7
		_, err := store.Add(ctx, req)
		require.NoError(t, err)

		_, err = store.Add(ctx, req)
		assert.ErrorIs(t, err, leaveerrors.ErrDuplicateID)
	})

	t.Run("success returned copy is detached", func(t *testing.T) {
		store, _ := newStore()
		created, err := store.Add(ctx, pending("emp-1", 3, 4, 2))
		require.NoError(t, err)

		created.Status = leave.StatusApproved
		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, leave.StatusPending, got.Status)
	})
}

func TestStore_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("success approve sets decision fields", func(t *testing.T) {
		store, _ := newStore()
		created, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))

		var got []leave.Change
		store.Subscribe(func(ch leave.Change) { got = append(got, ch) })

		updated, err := store.Transition(ctx, created.ID, leave.StatusApproved, leave.TransitionMeta{ActorID: "mgr1"})
		require.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, updated.Status)
		require.NotNil(t, updated.ApprovedBy)
		assert.Equal(t, "mgr1", *updated.ApprovedBy)
		assert.NotNil(t, updated.DecidedAt)
		assert.Nil(t, updated.RejectedBy)

		require.Len(t, got, 1)
		assert.Equal(t, leave.ChangeTransitioned, got[0].Kind)
		assert.Equal(t, leave.StatusApproved, got[0].Request.Status)
	})

	t.Run("success reject keeps reason", func(t *testing.T) {
		store, _ := newStore()
		created, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))

		updated, err := store.Transition(ctx, created.ID, leave.StatusRejected,
			leave.TransitionMeta{ActorID: "mgr1", RejectionReason: "team offsite"})
		require.NoError(t, err)
		require.NotNil(t, updated.RejectionReason)
		assert.Equal(t, "team offsite", *updated.RejectionReason)
		assert.Equal(t, "mgr1", *updated.RejectedBy)
	})

	t.Run("negative terminal status cannot move", func(t *testing.T) {
		store, _ := newStore()
		created, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))
		_, err := store.Transition(ctx, created.ID, leave.StatusApproved, leave.TransitionMeta{ActorID: "mgr1"})
		require.NoError(t, err)

		_, err = store.Transition(ctx, created.ID, leave.StatusRejected, leave.TransitionMeta{ActorID: "mgr2"})
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidTransition)

		got, _ := store.Get(ctx, created.ID)
		assert.Equal(t, leave.StatusApproved, got.Status)
	})

	t.Run("negative pending is not a target", func(t *testing.T) {
		store, _ := newStore()
		created, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))

		_, err := store.Transition(ctx, created.ID, leave.StatusPending, leave.TransitionMeta{})
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidTransition)
	})

	t.Run("negative unknown id", func(t *testing.T) {
		store, _ := newStore()
		_, err := store.Transition(ctx, 999, leave.StatusApproved, leave.TransitionMeta{ActorID: "mgr1"})
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidTransition)
	})

	t.Run("success concurrent decisions have one winner", func(t *testing.T) {
		store, _ := newStore()
		created, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))

		var (
			wg   sync.WaitGroup
			wins int32
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				status := leave.StatusApproved
				if i%2 == 1 {
					status = leave.StatusRejected
				}
				if _, err := store.Transition(ctx, created.ID, status, leave.TransitionMeta{ActorID: "mgr"}); err == nil {
					atomic.AddInt32(&wins, 1)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins)
	})
}

func TestStore_Queries(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	a, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))
	b, _ := store.Add(ctx, pending("emp-1", 10, 10, 1))
	c, _ := store.Add(ctx, pending("emp-2", 5, 5, 1))
	_, err := store.Transition(ctx, b.ID, leave.StatusRejected, leave.TransitionMeta{ActorID: "mgr1"})
	require.NoError(t, err)

	t.Run("success by status", func(t *testing.T) {
		got := store.ListByStatus(leave.StatusPending)
		require.Len(t, got, 2)
		assert.Equal(t, c.ID, got[0].ID)
		assert.Equal(t, a.ID, got[1].ID)
	})

	t.Run("success by employee newest first", func(t *testing.T) {
		got := store.ListByEmployee("emp-1")
		require.Len(t, got, 2)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("success by employee and statuses", func(t *testing.T) {
		got := store.ListByEmployeeAndStatus("emp-1", leave.StatusApproved, leave.StatusRejected)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("success unknown employee is empty", func(t *testing.T) {
		assert.Empty(t, store.ListByEmployee("nobody"))
	})
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	var calls int32
	unsubscribe := store.Subscribe(func(leave.Change) { atomic.AddInt32(&calls, 1) })

	_, _ = store.Add(ctx, pending("emp-1", 3, 4, 2))
	unsubscribe()
	unsubscribe()
	_, _ = store.Add(ctx, pending("emp-1", 10, 10, 1))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("success reads through on miss", func(t *testing.T) {
		seed := pending("emp-1", 3, 4, 2)
		seed.ID = 7
		store, _ := newStore(seed)

		got, err := store.Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
	})

	t.Run("negative not found", func(t *testing.T) {
		store, _ := newStore()
		_, err := store.Get(ctx, 42)
		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
	})
}

func TestStore_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("success replaces scope and reports employees", func(t *testing.T) {
		seed1 := pending("emp-1", 3, 4, 2)
		seed2 := pending("emp-2", 5, 5, 1)
		store, _ := newStore(seed1, seed2)

		var got leave.Change
		store.Subscribe(func(ch leave.Change) { got = ch })

		require.NoError(t, store.Refresh(ctx, leave.AllEmployees))
		assert.Len(t, store.ListByStatus(leave.StatusPending), 2)
		assert.Equal(t, leave.ChangeRefreshed, got.Kind)
		assert.Nil(t, got.Request)
		assert.Equal(t, []string{"emp-1", "emp-2"}, got.Employees)
		assert.True(t, store.Loaded("emp-1"))
	})

	t.Run("negative fetch error keeps cache", func(t *testing.T) {
		store, repo := newStore()
		created, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))
		repo.beforeFindAll = func(context.Context, string) error { return errors.New("network down") }

		err := store.Refresh(ctx, "emp-1")
		assert.EqualError(t, err, "network down")
		_, err = store.Get(ctx, created.ID)
		assert.NoError(t, err)
		assert.False(t, store.Loaded("emp-1"))
	})

	t.Run("negative cancelled refresh is discarded", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))
		cctx, cancel := context.WithCancel(ctx)
		repo.beforeFindAll = func(context.Context, string) error {
			cancel()
			return nil
		}

		err := store.Refresh(cctx, "emp-1")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, store.ListByEmployee("emp-1"))
		assert.False(t, store.Loaded("emp-1"))
	})

	t.Run("negative refresh overtaken by a transition is stale", func(t *testing.T) {
		store, repo := newStore()
		created, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))

		// The fetch returns the PENDING snapshot, then an approval commits
		// before the refresh applies it.
		repo.beforeFindAll = func(context.Context, string) error {
			repo.beforeFindAll = nil
			_, err := store.Transition(ctx, created.ID, leave.StatusApproved, leave.TransitionMeta{ActorID: "mgr1"})
			return err
		}

		err := store.Refresh(ctx, "emp-1")
		assert.ErrorIs(t, err, leaveerrors.ErrStaleRefresh)

		got, _ := store.Get(ctx, created.ID)
		assert.Equal(t, leave.StatusApproved, got.Status)
	})

	t.Run("negative older refresh loses to newer one", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))

		repo.beforeFindAll = func(context.Context, string) error {
			repo.beforeFindAll = nil
			return store.Refresh(ctx, "emp-1")
		}

		err := store.Refresh(ctx, "emp-1")
		assert.ErrorIs(t, err, leaveerrors.ErrStaleRefresh)
		assert.Len(t, store.ListByEmployee("emp-1"), 1)
	})

	t.Run("negative employee refresh overtaken by admin refresh", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))

		repo.beforeFindAll = func(_ context.Context, scope string) error {
			if scope == "emp-1" {
				repo.beforeFindAll = nil
				return store.Refresh(ctx, leave.AllEmployees)
			}
			return nil
		}

		err := store.Refresh(ctx, "emp-1")
		assert.ErrorIs(t, err, leaveerrors.ErrStaleRefresh)
		assert.True(t, store.Loaded("emp-1"))
	})
}

func TestStore_EnsureLoaded(t *testing.T) {
	ctx := context.Background()

	t.Run("success fetches once", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))

		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		assert.Equal(t, int32(1), atomic.LoadInt32(&repo.findAllCalls))
	})

	t.Run("success retries after stale refresh", func(t *testing.T) {
		store, repo := newStore()
		created, _ := store.Add(ctx, pending("emp-1", 3, 4, 2))
		repo.beforeFindAll = func(context.Context, string) error {
			repo.beforeFindAll = nil
			_, err := store.Transition(ctx, created.ID, leave.StatusApproved, leave.TransitionMeta{ActorID: "mgr1"})
			return err
		}

		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		assert.Equal(t, int32(2), atomic.LoadInt32(&repo.findAllCalls))
		assert.True(t, store.Loaded("emp-1"))
	})

	t.Run("success invalidate forces refetch", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))

		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		store.Invalidate("emp-1")
		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		assert.Equal(t, int32(2), atomic.LoadInt32(&repo.findAllCalls))
	})

	t.Run("success admin scope covers employees", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))

		require.NoError(t, store.EnsureLoaded(ctx, leave.AllEmployees))
		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		assert.Equal(t, int32(1), atomic.LoadInt32(&repo.findAllCalls))
	})
}

func TestStore_MaxAge(t *testing.T) {
	ctx := context.Background()

	t.Run("success expired scope is refetched", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))
		store.SetMaxAge(time.Nanosecond)

		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		time.Sleep(time.Millisecond)
		assert.False(t, store.Loaded("emp-1"))

		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		assert.Equal(t, int32(2), atomic.LoadInt32(&repo.findAllCalls))
	})

	t.Run("success zero keeps scope", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))
		store.SetMaxAge(0)

		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		time.Sleep(time.Millisecond)
		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		assert.Equal(t, int32(1), atomic.LoadInt32(&repo.findAllCalls))
	})
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("success picks up rows written by another store", func(t *testing.T) {
		shared := leave.NewMemoryRepository()
		a := leave.NewStore(shared, nil, zap.NewNop())
		b := leave.NewStore(shared, nil, zap.NewNop())
		require.NoError(t, b.EnsureLoaded(ctx, "emp-1"))

		_, err := a.Add(ctx, pending("emp-1", 3, 4, 2))
		require.NoError(t, err)
		assert.Empty(t, b.ListByEmployee("emp-1"))

		require.NoError(t, b.Reload(ctx, "emp-1"))
		assert.Len(t, b.ListByEmployee("emp-1"), 1)
	})

	t.Run("success only changed employees are reported", func(t *testing.T) {
		shared := leave.NewMemoryRepository(pending("emp-1", 3, 4, 2), pending("emp-2", 5, 5, 1))
		a := leave.NewStore(shared, nil, zap.NewNop())
		b := leave.NewStore(shared, nil, zap.NewNop())
		require.NoError(t, b.Reload(ctx, leave.AllEmployees))

		var got leave.Change
		b.Subscribe(func(ch leave.Change) { got = ch })

		require.NoError(t, b.Reload(ctx, leave.AllEmployees))
		assert.Equal(t, leave.ChangeRefreshed, got.Kind)
		assert.Empty(t, got.Employees)

		_, err := a.Add(ctx, pending("emp-2", 10, 11, 2))
		require.NoError(t, err)
		require.NoError(t, b.Reload(ctx, leave.AllEmployees))
		assert.Equal(t, []string{"emp-2"}, got.Employees)
	})

	t.Run("negative fetch failure keeps cached rows", func(t *testing.T) {
		store, repo := newStore(pending("emp-1", 3, 4, 2))
		require.NoError(t, store.EnsureLoaded(ctx, "emp-1"))
		repo.beforeFindAll = func(context.Context, string) error { return errors.New("network down") }

		assert.EqualError(t, store.Reload(ctx, "emp-1"), "network down")
		assert.Len(t, store.ListByEmployee("emp-1"), 1)
	})
}
