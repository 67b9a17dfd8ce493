// Package storage provides the optional persistence layers around the
// dashboard core: a Redis cache holding the latest committed snapshot for
// warm starts, and a Postgres audit trail of refresh cycles.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palletops/warehouse-monitor/internal/dashboard"
)

// ErrCacheMiss is returned when no snapshot has been cached yet.
var ErrCacheMiss = errors.New("snapshot cache: miss")

// snapshotKey is the single Redis key holding the latest snapshot.
const snapshotKey = "warehouse:dashboard:snapshot"

// SnapshotCache stores the latest committed dashboard snapshot in Redis so
// a restarted server can render data before its first refresh completes.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache creates a cache over the given Redis client.
// A zero ttl defaults to one hour.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// Save writes the snapshot, replacing any previous one.
func (c *SnapshotCache) Save(ctx context.Context, snap *dashboard.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing snapshot to redis: %w", err)
	}
	return nil
}

// Load reads the cached snapshot. Returns ErrCacheMiss when absent or expired.
func (c *SnapshotCache) Load(ctx context.Context) (*dashboard.Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot from redis: %w", err)
	}
	var snap dashboard.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding cached snapshot: %w", err)
	}
	return &snap, nil
}
