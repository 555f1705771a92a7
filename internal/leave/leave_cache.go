package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	BalanceCacheKeyPrefix      = "leave:balance:"
	BalanceGenerationKeyPrefix = "leave:balance-gen:"
)

// BalanceCacheKey is the redis hash holding one field per year.
func BalanceCacheKey(employeeID string) string {
	return BalanceCacheKeyPrefix + employeeID
}

// BalanceGenerationKey counts the invalidations of one employee. Cached
// balances carry the generation they were computed under.
func BalanceGenerationKey(employeeID string) string {
	return BalanceGenerationKeyPrefix + employeeID
}

type cachedBalance struct {
	Gen     int64        `json:"gen"`
	Balance LeaveBalance `json:"balance"`
}

// BalanceCache keeps computed balances in redis. Concurrent misses for the
// same employee, year and generation share one computation. A value written
// after an invalidation it raced with is never served. A nil redis client
// turns the cache into a pass-through.
type BalanceCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewBalanceCache(rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) *BalanceCache {
	l := zap.L().Named("leave.cache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.cache")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{rdb: rdb, ttl: ttl, sf: &singleflight.Group{}, logger: l}
}

func (c *BalanceCache) Get(
	ctx context.Context,
	employeeID string,
	year int,
	load func(ctx context.Context) (LeaveBalance, error),
) (LeaveBalance, error) {
	key := BalanceCacheKey(employeeID)
	field := strconv.Itoa(year)

	// -1 means the generation is unknown; the cache is bypassed.
	gen := int64(-1)
	if c.rdb != nil {
		gen = c.generation(ctx, employeeID)
	}
	if gen >= 0 {
		raw, err := c.rdb.HGet(ctx, key, field).Result()
		switch {
		case err == nil:
			var entry cachedBalance
			if json.Unmarshal([]byte(raw), &entry) == nil && entry.Gen == gen {
				return entry.Balance, nil
			}
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("balance cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err, _ := c.sf.Do(fmt.Sprintf("%s:%s:%d", key, field, gen), func() (interface{}, error) {
		b, err := load(ctx)
		if err != nil {
			return LeaveBalance{}, err
		}
		if gen >= 0 {
			c.store(ctx, key, field, cachedBalance{Gen: gen, Balance: b})
		}
		return b, nil
	})
	if err != nil {
		return LeaveBalance{}, err
	}
	return v.(LeaveBalance), nil
}

func (c *BalanceCache) generation(ctx context.Context, employeeID string) int64 {
	gen, err := c.rdb.Get(ctx, BalanceGenerationKey(employeeID)).Int64()
	switch {
	case err == nil:
		return gen
	case errors.Is(err, redis.Nil):
		return 0
	default:
		c.logger.Warn("balance generation read failed", zap.String("employee_id", employeeID), zap.Error(err))
		return -1
	}
}

func (c *BalanceCache) store(ctx context.Context, key, field string, entry cachedBalance) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.rdb.HSet(ctx, key, field, payload).Err(); err != nil {
		c.logger.Warn("balance cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Expire(ctx, key, c.ttl).Err(); err != nil {
		c.logger.Warn("balance cache expire failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate bumps the generation of the given employees, then drops their
// cached years.
func (c *BalanceCache) Invalidate(ctx context.Context, employeeIDs ...string) error {
	if c.rdb == nil || len(employeeIDs) == 0 {
		return nil
	}
	keys := make([]string, len(employeeIDs))
	for i, id := range employeeIDs {
		if err := c.rdb.Incr(ctx, BalanceGenerationKey(id)).Err(); err != nil {
			c.logger.Error("failed to bump balance generation",
				zap.String("employee_id", id),
				zap.Error(err),
			)
			return err
		}
		keys[i] = BalanceCacheKey(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Error("failed to invalidate balance cache",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Observe is a store observer that invalidates the balances a change touches.
func (c *BalanceCache) Observe(ch Change) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Invalidate(ctx, ch.Employees...)
}
