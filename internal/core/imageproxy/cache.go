package imageproxy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"Lightbox/internal/metrics"
)

var (
	// ErrInvalidCacheSize is returned when maxEntries is not positive
	ErrInvalidCacheSize = errors.New("cache max entries must be positive")
	// ErrInvalidCacheTTL is returned when ttl is not positive
	ErrInvalidCacheTTL = errors.New("cache ttl must be positive")
)

// Cache defines the interface for the transcoded image cache.
type Cache interface {
	// Get returns the payload stored under key, if present and not expired.
	Get(key string) ([]byte, bool)

	// Set stores payload under key, overwriting any previous entry and
	// stamping the current time.
	Set(key string, payload []byte)

	// Cleanup removes expired entries and returns how many were removed.
	Cleanup() int
}

// CacheEntry is one memoized transcoding result.
type CacheEntry struct {
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// MemoryCache implements Cache with a bounded in-memory LRU.
// Entries older than the TTL are treated as absent; they are removed on
// lookup or by Cleanup. The cache lives as long as the value does.
type MemoryCache struct {
	entries *lru.Cache[string, CacheEntry]
	ttl     time.Duration
	now     func() time.Time
}

// CacheOption configures a MemoryCache.
type CacheOption func(*MemoryCache)

// WithClock overrides the time source used for stamping and expiry checks.
func WithClock(now func() time.Time) CacheOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a MemoryCache holding at most maxEntries entries,
// each valid for ttl after it was stored.
func NewMemoryCache(maxEntries int, ttl time.Duration, opts ...CacheOption) (*MemoryCache, error) {
	if maxEntries <= 0 {
		return nil, ErrInvalidCacheSize
	}
	if ttl <= 0 {
		return nil, ErrInvalidCacheTTL
	}

	c := &MemoryCache{
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	entries, err := lru.NewWithEvict[string, CacheEntry](maxEntries, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.entries = entries

	return c, nil
}

func (c *MemoryCache) expired(entry CacheEntry) bool {
	return c.now().Sub(entry.CreatedAt) >= c.ttl
}

// onEvict runs for capacity evictions and for explicit removals of expired entries.
func (c *MemoryCache) onEvict(key string, entry CacheEntry) {
	reason := "capacity"
	if c.expired(entry) {
		reason = "ttl"
	}
	metrics.RecordEviction(reason)
	slog.Debug("[IMAGE-PROXY] evicted cache entry",
		"key", key,
		"reason", reason,
		"size_bytes", len(entry.Payload),
	)
}

// Get returns the payload stored under key.
// An expired entry is removed and reported as a miss.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, false
	}
	if c.expired(entry) {
		c.entries.Remove(key)
		metrics.RecordCacheLookup(metrics.CacheExpired)
		return nil, false
	}
	metrics.RecordCacheLookup(metrics.CacheHit)
	return entry.Payload, true
}

// Set stores payload under key with the current time.
func (c *MemoryCache) Set(key string, payload []byte) {
	c.entries.Add(key, CacheEntry{
		Key:       key,
		Payload:   payload,
		CreatedAt: c.now(),
	})
}

// Len returns the number of entries currently held, expired ones included.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

// Cleanup removes every expired entry and returns the number removed.
func (c *MemoryCache) Cleanup() int {
	removed := 0
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if !ok || !c.expired(entry) {
			continue
		}
		if c.entries.Remove(key) {
			removed++
		}
	}

	if removed > 0 {
		slog.Info("[IMAGE-PROXY] TTL cleanup completed",
			"entries_removed", removed,
			"entries_remaining", c.entries.Len(),
			"ttl", c.ttl,
		)
	}

	return removed
}

// StartCleanupJob starts a background goroutine that periodically removes
// expired entries. Returns a cancel function that should be called during
// graceful shutdown. If interval is 0 or negative, no job is started and the
// cancel function is a no-op.
func (c *MemoryCache) StartCleanupJob(interval time.Duration) context.CancelFunc {
	if interval <= 0 {
		slog.Info("[IMAGE-PROXY] cache cleanup job disabled (interval=0)")
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("[IMAGE-PROXY] CRITICAL: cache cleanup job panicked",
					"panic", r,
				)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		slog.Info("[IMAGE-PROXY] cache cleanup job started",
			"interval", interval,
			"ttl", c.ttl,
		)

		cycleCount := 0
		for {
			select {
			case <-ctx.Done():
				slog.Info("[IMAGE-PROXY] cache cleanup job stopped")
				return
			case <-ticker.C:
				cycleCount++
				if removed := c.Cleanup(); removed == 0 && cycleCount%6 == 0 {
					slog.Debug("[IMAGE-PROXY] cache cleanup heartbeat",
						"cycle", cycleCount,
						"entries", c.entries.Len(),
					)
				}
			}
		}
	}()

	return cancel
}
