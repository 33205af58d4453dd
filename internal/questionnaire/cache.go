package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ScoreCache memoizes pairwise compatibility scores in Redis. The score of a
// pair is symmetric, so the key always orders the smaller user id first.
// A nil client disables caching entirely.
type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScoreCache(client *redis.Client, ttl time.Duration) *ScoreCache {
	return &ScoreCache{client: client, ttl: ttl}
}

type cachedScore struct {
	Score        int       `json:"score"`
	CalculatedAt time.Time `json:"calculated_at"`
}

func pairKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("compat:%d:%d", userA, userB)
}

// Get returns the cached score for a pair, or ok=false on a miss. Cache
// failures degrade to a miss; scoring is cheap to recompute.
func (c *ScoreCache) Get(ctx context.Context, userA, userB int64) (int, time.Time, bool) {
	if c == nil || c.client == nil {
		return 0, time.Time{}, false
	}

	data, err := c.client.Get(ctx, pairKey(userA, userB)).Bytes()
	if errors.Is(err, redis.Nil) {
		recordCacheLookup(false)
		return 0, time.Time{}, false
	}
	if err != nil {
		recordCacheLookup(false)
		return 0, time.Time{}, false
	}

	var cached cachedScore
	if err := json.Unmarshal(data, &cached); err != nil {
		recordCacheLookup(false)
		return 0, time.Time{}, false
	}

	recordCacheLookup(true)
	return cached.Score, cached.CalculatedAt, true
}

// Set stores a freshly computed pair score. Best effort.
func (c *ScoreCache) Set(ctx context.Context, userA, userB int64, score int, calculatedAt time.Time) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(cachedScore{Score: score, CalculatedAt: calculatedAt})
	if err != nil {
		return
	}

	c.client.Set(ctx, pairKey(userA, userB), data, c.ttl)
}

// SweepStale removes cached pair scores that were written without an
// expiry, which happens when the cache TTL is configured as zero. Keys
// carrying a TTL age out on their own.
func (c *ScoreCache) SweepStale(ctx context.Context) (int, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}

	var removed int
	iter := c.client.Scan(ctx, 0, "compat:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := c.client.TTL(ctx, key).Result()
		if err != nil {
			return removed, err
		}
		if ttl < 0 {
			if err := c.client.Del(ctx, key).Err(); err != nil {
				return removed, err
			}
			removed++
		}
	}

	return removed, iter.Err()
}

// InvalidateUser drops every cached pair involving the given user. Called
// whenever the user's profile vectors change.
func (c *ScoreCache) InvalidateUser(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	patterns := []string{
		fmt.Sprintf("compat:%d:*", userID),
		fmt.Sprintf("compat:*:%d", userID),
	}

	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}

	return nil
}
