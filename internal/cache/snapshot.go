package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"tuition-pricing-service/internal/entity"
)

// SnapshotStore is the durable store the cache sits in front of.
type SnapshotStore interface {
	Insert(ctx context.Context, snap *entity.PricingSnapshot) error
	Get(ctx context.Context, id string) (*entity.PricingSnapshot, error)
}

// SnapshotCache is a read-through cache of snapshot payloads. Snapshots never change,
// so entries are only ever added.
type SnapshotCache struct {
	store SnapshotStore
	rdb   Client
	ttl   time.Duration
}

func NewSnapshotCache(store SnapshotStore, rdb Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{store: store, rdb: rdb, ttl: ttl}
}

func snapshotKey(id string) string {
	return fmt.Sprintf("snapshot:%s", id)
}

// Insert writes through to the store and then warms the cache. Cache failures are only logged.
func (c *SnapshotCache) Insert(ctx context.Context, snap *entity.PricingSnapshot) error {
	if err := c.store.Insert(ctx, snap); err != nil {
		return err
	}
	c.set(ctx, snap)
	return nil
}

func (c *SnapshotCache) Get(ctx context.Context, id string) (*entity.PricingSnapshot, error) {
	// Read from cache
	payload, err := c.rdb.Get(ctx, snapshotKey(id)).Bytes()
	switch {
	case err == nil:
		return &entity.PricingSnapshot{SnapshotID: id, Payload: payload}, nil
	case errors.Is(err, redis.Nil):
		logger.Debug().Msgf("Snapshot %s not found in cache", id)
	default:
		logger.Error().Err(err).Msgf("Error getting snapshot %s from cache", id)
	}

	snap, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, snap)
	return snap, nil
}

func (c *SnapshotCache) set(ctx context.Context, snap *entity.PricingSnapshot) {
	// Write to cache
	err := c.rdb.Set(ctx, snapshotKey(snap.SnapshotID), snap.Payload, c.ttl).Err()
	if err != nil {
		logger.Error().Err(err).Msgf("Error setting snapshot %s in cache", snap.SnapshotID)
	}
}
