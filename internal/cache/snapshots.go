// Package cache fronts the snapshot store with a redis read-through cache so
// repeated diagnoses of the same product skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/amzops/sellerpulse/internal/persistence"
)

// SnapshotCache wraps a SnapshotRepo with per-key caching of the latest
// snapshot. Staleness is bounded by the TTL and by aggregator invalidation.
type SnapshotCache struct {
	client   *redis.Client
	fallback persistence.SnapshotRepo
	ttl      time.Duration
}

// New creates a snapshot cache over the given repo.
func New(client *redis.Client, fallback persistence.SnapshotRepo, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SnapshotCache{
		client:   client,
		fallback: fallback,
		ttl:      ttl,
	}
}

func latestKey(asin, warehouse string, window persistence.TimeWindow) string {
	return fmt.Sprintf("snap:latest:%s:%s:%s", asin, warehouse, window)
}

// GetLatest returns the cached latest snapshot, falling through to the repo
// on a miss and populating the cache best-effort.
func (c *SnapshotCache) GetLatest(ctx context.Context, asin, warehouse string, window persistence.TimeWindow) (*persistence.InventorySnapshot, error) {
	key := latestKey(asin, warehouse, window)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var snap persistence.InventorySnapshot
		if jerr := json.Unmarshal(data, &snap); jerr == nil {
			return &snap, nil
		}
		// Unreadable entry: drop it and fall through.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("Snapshot cache read failed")
	}

	snap, err := c.fallback.GetLatest(ctx, asin, warehouse, window)
	if err != nil || snap == nil {
		return snap, err
	}

	if encoded, jerr := json.Marshal(snap); jerr == nil {
		if serr := c.client.Set(ctx, key, encoded, c.ttl).Err(); serr != nil {
			log.Warn().Err(serr).Str("key", key).Msg("Snapshot cache write failed")
		}
	}

	return snap, nil
}

// Invalidate drops the cached entries for every window of a product. Called
// by the aggregator after rewriting a group.
func (c *SnapshotCache) Invalidate(ctx context.Context, asin, warehouse string) error {
	keys := make([]string, 0, len(persistence.Windows))
	for _, w := range persistence.Windows {
		keys = append(keys, latestKey(asin, warehouse, w))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot cache: %w", err)
	}
	return nil
}
