// Package redis caches the public published-events listing and backs
// the idempotency and rate-limit middleware.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Taha-mlaiki/ResNow/internal/domain"
)

const publishedEventsKey = "events:published"

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// GetPublishedEvents returns the cached listing, reporting a miss for
// absent keys and decode failures alike.
func (c *Cache) GetPublishedEvents(ctx context.Context) ([]domain.Event, bool) {
	val, err := c.client.Get(ctx, publishedEventsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var events []domain.Event
	if err := json.Unmarshal(val, &events); err != nil {
		return nil, false
	}
	return events, true
}

func (c *Cache) SetPublishedEvents(ctx context.Context, events []domain.Event, ttl time.Duration) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, publishedEventsKey, data, ttl).Err()
}

// InvalidatePublishedEvents drops the cached listing; called after any
// event mutation.
func (c *Cache) InvalidatePublishedEvents(ctx context.Context) error {
	return c.client.Del(ctx, publishedEventsKey).Err()
}
