package insilico

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds finished in-silico modeling results keyed by trial, so the
// results endpoint stays fast while the database remains the source of
// truth.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(trialID string) string {
	return fmt.Sprintf("insilico:%s", trialID)
}

func (c *Cache) Get(ctx context.Context, trialID string) (map[string]interface{}, bool, error) {
	if c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey(trialID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var results map[string]interface{}
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (c *Cache) Put(ctx context.Context, trialID string, results map[string]interface{}) error {
	if c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(trialID), raw, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, trialID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, cacheKey(trialID)).Err()
}
