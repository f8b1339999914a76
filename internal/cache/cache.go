// Package cache keeps the latest alignment score per (axis, member) in Redis
// so dashboard reads skip Postgres on the hot path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opencivic/alignator/models"
)

// ErrMiss is returned when no cached score exists for the key.
var ErrMiss = errors.New("cache miss")

// Conn opens and pings a Redis connection.
func Conn(ctx context.Context, addr, password string, db int, timeout time.Duration) (*redis.Client, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: timeout,
		ReadTimeout: timeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// ScoreCache caches latest score versions.
type ScoreCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewScoreCache wraps a Redis client. ttl <= 0 keeps entries until overwritten.
func NewScoreCache(rdb *redis.Client, ttl time.Duration) *ScoreCache {
	return &ScoreCache{rdb: rdb, ttl: ttl}
}

func scoreKey(axis, memberID string) string {
	return "alignator:score:latest:" + axis + ":" + memberID
}

// SetLatest stores each score under its (axis, member) key.
func (c *ScoreCache) SetLatest(ctx context.Context, scores []models.AlignmentScore) error {
	for _, sc := range scores {
		raw, err := json.Marshal(sc)
		if err != nil {
			return err
		}
		if err := c.rdb.Set(ctx, scoreKey(sc.Axis, sc.MemberID), raw, c.ttl).Err(); err != nil {
			return fmt.Errorf("caching score %s/%s: %w", sc.MemberID, sc.Axis, err)
		}
	}
	return nil
}

// GetLatest fetches one cached score; ErrMiss when absent.
func (c *ScoreCache) GetLatest(ctx context.Context, axis, memberID string) (models.AlignmentScore, error) {
	var sc models.AlignmentScore
	raw, err := c.rdb.Get(ctx, scoreKey(axis, memberID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sc, ErrMiss
	}
	if err != nil {
		return sc, err
	}
	if err := json.Unmarshal(raw, &sc); err != nil {
		return sc, err
	}
	return sc, nil
}

// AcquireLock takes a best-effort distributed lock via SetNX; the boolean
// reports whether this caller holds it.
func AcquireLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock drops a held lock.
func ReleaseLock(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err()
}
