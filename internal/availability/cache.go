package availability

import (
	"context"
	"encoding/json"
	"time"

	"ms-queueskip/internal/models"

	"github.com/go-redis/redis/v8"
)

// Cache keeps short-lived availability snapshots in Redis so the venue
// listing can poll without hammering the counting queries. Snapshots are
// advisory to begin with, so a few seconds of staleness is acceptable; writes
// that change capacity invalidate eagerly anyway.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl}
}

func cacheKey(venueID string) string {
	return "availability:" + venueID
}

// Get returns the cached snapshot, or nil on a miss. Redis failures degrade
// to a miss; the caller recomputes from the store.
func (c *Cache) Get(ctx context.Context, venueID string) (*models.Availability, error) {
	raw, err := c.Client.Get(ctx, cacheKey(venueID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot models.Availability
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Cache) Set(ctx context.Context, snapshot *models.Availability) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, cacheKey(snapshot.VenueID), raw, c.TTL).Err()
}

// Invalidate drops the snapshot after anything that changes committed
// capacity (reserve, cancel, confirm, schedule edits).
func (c *Cache) Invalidate(ctx context.Context, venueID string) error {
	return c.Client.Del(ctx, cacheKey(venueID)).Err()
}
