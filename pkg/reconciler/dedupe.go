package reconciler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeCache answers "has this event ID been fully processed already"
// faster than a ledger query. It is an optimization only: a miss or a
// cache failure falls through to the authoritative ledger check.
type DedupeCache interface {
	Seen(ctx context.Context, provider, eventID string) (bool, error)
	MarkSeen(ctx context.Context, provider, eventID string) error
}

// dedupeTTL covers the window in which providers retry failed webhook
// deliveries. Hotmart retries for up to 24h; 48h leaves slack.
const dedupeTTL = 48 * time.Hour

// RedisDedupeCache keeps processed event IDs in Redis with a TTL.
type RedisDedupeCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisDedupeCache creates a cache over the given client. Panics on a
// nil client to fail fast during initialization.
func NewRedisDedupeCache(client redis.UniversalClient) *RedisDedupeCache {
	if client == nil {
		panic("reconciler: redis client is required")
	}
	return &RedisDedupeCache{client: client, ttl: dedupeTTL}
}

func dedupeKey(provider, eventID string) string {
	return "billing:event:" + provider + ":" + eventID
}

func (c *RedisDedupeCache) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, dedupeKey(provider, eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisDedupeCache) MarkSeen(ctx context.Context, provider, eventID string) error {
	return c.client.Set(ctx, dedupeKey(provider, eventID), "1", c.ttl).Err()
}
