package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/outcomelab/mutuel/internal/domain"
)

// defaultSnapshotTTL keeps cached market details fresh enough for polling
// clients while absorbing their read load.
const defaultSnapshotTTL = 5 * time.Second

// SnapshotCache implements domain.SnapshotCache using JSON-serialized market
// snapshots under market:{id} keys with a short TTL.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client. A
// non-positive ttl falls back to the default.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

func snapshotKey(marketID uint64) string {
	return fmt.Sprintf("market:%d", marketID)
}

// Set stores a market snapshot.
func (sc *SnapshotCache) Set(ctx context.Context, snap domain.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey(snap.Market.ID), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %d: %w", snap.Market.ID, err)
	}
	return nil
}

// Get returns the cached snapshot, or domain.ErrNotFound on a miss.
func (sc *SnapshotCache) Get(ctx context.Context, marketID uint64) (domain.MarketSnapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(marketID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get snapshot %d: %w", marketID, err)
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: decode snapshot %d: %w", marketID, err)
	}
	return snap, nil
}

// Invalidate drops the cached snapshot for a market, forcing the next view
// read through to the ledger.
func (sc *SnapshotCache) Invalidate(ctx context.Context, marketID uint64) error {
	if err := sc.rdb.Del(ctx, snapshotKey(marketID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot %d: %w", marketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)

// InvalidatorSink drops the affected market's snapshot as each settlement
// event commits, so polling clients never see pools older than one event.
type InvalidatorSink struct {
	cache *SnapshotCache
}

// NewInvalidatorSink creates an InvalidatorSink over the given cache.
func NewInvalidatorSink(cache *SnapshotCache) *InvalidatorSink {
	return &InvalidatorSink{cache: cache}
}

// Emit implements domain.EventSink.
func (s *InvalidatorSink) Emit(ctx context.Context, evt domain.Event) error {
	return s.cache.Invalidate(ctx, evt.MarketID)
}
