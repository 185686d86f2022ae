package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCacheTTL bounds how long a stale email mapping can serve
// lookups after the tenant changes its email.
const DefaultCacheTTL = 5 * time.Minute

// DefaultCacheSize caps the number of cached mappings.
const DefaultCacheSize = 1000

type cacheEntry struct {
	id        uuid.UUID
	expiresAt time.Time
}

// cachedDirectory is a read-through cache over another Directory.
// Only positive lookups are cached: a miss must stay a miss until the
// tenant registers, at which point Upsert primes the entry.
type cachedDirectory struct {
	next    Directory
	ttl     time.Duration
	maxSize int

	mu    sync.Mutex
	items map[string]cacheEntry
}

// NewCachedDirectory wraps a directory with an in-memory TTL cache.
func NewCachedDirectory(next Directory, ttl time.Duration, maxSize int) Directory {
	if next == nil {
		panic("tenant: directory is required")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &cachedDirectory{
		next:    next,
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[string]cacheEntry),
	}
}

func (c *cachedDirectory) FindByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	email = NormalizeEmail(email)

	c.mu.Lock()
	entry, ok := c.items[email]
	if ok && time.Now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.id, nil
	}
	if ok {
		delete(c.items, email)
	}
	c.mu.Unlock()

	id, err := c.next.FindByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}

	c.set(email, id)
	return id, nil
}

func (c *cachedDirectory) Upsert(ctx context.Context, tenantID uuid.UUID, email string) error {
	email = NormalizeEmail(email)
	if err := c.next.Upsert(ctx, tenantID, email); err != nil {
		return err
	}
	c.set(email, tenantID)
	return nil
}

func (c *cachedDirectory) set(email string, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxSize {
		c.evictLocked()
	}
	c.items[email] = cacheEntry{id: id, expiresAt: time.Now().Add(c.ttl)}
}

// evictLocked drops expired entries, falling back to an arbitrary entry
// when everything is still fresh.
func (c *cachedDirectory) evictLocked() {
	now := time.Now()
	dropped := false
	for email, entry := range c.items {
		if now.After(entry.expiresAt) {
			delete(c.items, email)
			dropped = true
		}
	}
	if dropped {
		return
	}
	for email := range c.items {
		delete(c.items, email)
		return
	}
}
