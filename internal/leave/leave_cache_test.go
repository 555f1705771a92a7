package leave_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-elms/internal/leave"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func cachedPayload(t *testing.T, gen int64, b leave.LeaveBalance) []byte {
	t.Helper()
	payload, err := json.Marshal(struct {
		Gen     int64              `json:"gen"`
		Balance leave.LeaveBalance `json:"balance"`
	}{gen, b})
	require.NoError(t, err)
	return payload
}

func TestBalanceCache_Get(t *testing.T) {
	ctx := context.Background()
	key := leave.BalanceCacheKey("emp-1")
	genKey := leave.BalanceGenerationKey("emp-1")
	want := leave.LeaveBalance{EmployeeID: "emp-1", Year: 2025, EntitlementDays: 12, UsedDays: 10, RemainingDays: 2}

	t.Run("success hit skips load", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		rmock.ExpectGet(genKey).SetVal("3")
		rmock.ExpectHGet(key, "2025").SetVal(string(cachedPayload(t, 3, want)))

		got, err := cache.Get(ctx, "emp-1", 2025, func(context.Context) (leave.LeaveBalance, error) {
			t.Fatal("load must not run on a hit")
			return leave.LeaveBalance{}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("success miss loads and stores", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		rmock.ExpectGet(genKey).RedisNil()
		rmock.ExpectHGet(key, "2025").RedisNil()
		rmock.ExpectHSet(key, "2025", cachedPayload(t, 0, want)).SetVal(1)
		rmock.ExpectExpire(key, time.Minute).SetVal(true)

		got, err := cache.Get(ctx, "emp-1", 2025, func(context.Context) (leave.LeaveBalance, error) {
			return want, nil
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("success older generation counts as a miss", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		stale := want
		stale.UsedDays, stale.RemainingDays = 0, 12
		rmock.ExpectGet(genKey).SetVal("2")
		rmock.ExpectHGet(key, "2025").SetVal(string(cachedPayload(t, 1, stale)))
		rmock.ExpectHSet(key, "2025", cachedPayload(t, 2, want)).SetVal(0)
		rmock.ExpectExpire(key, time.Minute).SetVal(true)

		got, err := cache.Get(ctx, "emp-1", 2025, func(context.Context) (leave.LeaveBalance, error) {
			return want, nil
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("negative write racing an invalidation is never served", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		before := want
		before.UsedDays, before.RemainingDays = 0, 12

		// First read computes under generation 0 while a submission lands.
		rmock.ExpectGet(genKey).RedisNil()
		rmock.ExpectHGet(key, "2025").RedisNil()
		rmock.ExpectIncr(genKey).SetVal(1)
		rmock.ExpectDel(key).SetVal(0)
		rmock.ExpectHSet(key, "2025", cachedPayload(t, 0, before)).SetVal(1)
		rmock.ExpectExpire(key, time.Minute).SetVal(true)

		got, err := cache.Get(ctx, "emp-1", 2025, func(ctx context.Context) (leave.LeaveBalance, error) {
			require.NoError(t, cache.Invalidate(ctx, "emp-1"))
			return before, nil
		})
		require.NoError(t, err)
		assert.Equal(t, before, got)

		// The value written back is tagged with the old generation.
		rmock.ExpectGet(genKey).SetVal("1")
		rmock.ExpectHGet(key, "2025").SetVal(string(cachedPayload(t, 0, before)))
		rmock.ExpectHSet(key, "2025", cachedPayload(t, 1, want)).SetVal(0)
		rmock.ExpectExpire(key, time.Minute).SetVal(true)

		var loads int
		got, err = cache.Get(ctx, "emp-1", 2025, func(context.Context) (leave.LeaveBalance, error) {
			loads++
			return want, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, loads)
		assert.Equal(t, want, got)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("negative generation unreadable bypasses the cache", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		rmock.ExpectGet(genKey).SetErr(errors.New("redis down"))

		got, err := cache.Get(ctx, "emp-1", 2025, func(context.Context) (leave.LeaveBalance, error) {
			return want, nil
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("negative load error is returned and not stored", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		rmock.ExpectGet(genKey).RedisNil()
		rmock.ExpectHGet(key, "2025").RedisNil()

		_, err := cache.Get(ctx, "emp-1", 2025, func(context.Context) (leave.LeaveBalance, error) {
			return leave.LeaveBalance{}, errors.New("hr api down")
		})
		assert.EqualError(t, err, "hr api down")
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("success nil client is pass-through", func(t *testing.T) {
		cache := leave.NewBalanceCache(nil, 0, zap.NewNop())

		var loads int32
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = cache.Get(ctx, "emp-1", 2025, func(context.Context) (leave.LeaveBalance, error) {
					atomic.AddInt32(&loads, 1)
					return want, nil
				})
			}()
		}
		wg.Wait()
		assert.GreaterOrEqual(t, atomic.LoadInt32(&loads), int32(1))
		require.NoError(t, cache.Invalidate(ctx, "emp-1"))
	})
}

func TestBalanceCache_Invalidate(t *testing.T) {
	t.Run("success bumps generations and deletes every employee key", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		rmock.ExpectIncr(leave.BalanceGenerationKey("emp-1")).SetVal(4)
		rmock.ExpectIncr(leave.BalanceGenerationKey("emp-2")).SetVal(1)
		rmock.ExpectDel(leave.BalanceCacheKey("emp-1"), leave.BalanceCacheKey("emp-2")).SetVal(2)

		require.NoError(t, cache.Invalidate(context.Background(), "emp-1", "emp-2"))
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("negative generation bump fails", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		rmock.ExpectIncr(leave.BalanceGenerationKey("emp-1")).SetErr(errors.New("redis down"))

		assert.EqualError(t, cache.Invalidate(context.Background(), "emp-1"), "redis down")
	})

	t.Run("negative redis error", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())

		rmock.ExpectIncr(leave.BalanceGenerationKey("emp-1")).SetVal(1)
		rmock.ExpectDel(leave.BalanceCacheKey("emp-1")).SetErr(errors.New("redis down"))

		assert.Error(t, cache.Invalidate(context.Background(), "emp-1"))
	})

	t.Run("success store changes invalidate the requester", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		cache := leave.NewBalanceCache(rdb, time.Minute, zap.NewNop())
		store, _ := newStore()
		store.Subscribe(cache.Observe)

		rmock.ExpectIncr(leave.BalanceGenerationKey("emp-1")).SetVal(1)
		rmock.ExpectDel(leave.BalanceCacheKey("emp-1")).SetVal(1)

		_, err := store.Add(context.Background(), pending("emp-1", 3, 4, 2))
		require.NoError(t, err)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})
}
