package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// Clock abstracts time for the cache so expiry is testable without sleeping
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock Clock used outside tests
var SystemClock Clock = systemClock{}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-memory cache with a fixed per-entry TTL. Expiry is
// checked against the injected clock on every read, so a stale entry is
// never returned even between cleanup sweeps.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
	ttl     time.Duration
	clock   Clock
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// TTLCacheOption is a functional option for configuring a TTLCache
type TTLCacheOption[V any] func(*TTLCache[V])

// WithClock sets the clock used for expiry decisions
func WithClock[V any](clock Clock) TTLCacheOption[V] {
	return func(c *TTLCache[V]) {
		c.clock = clock
	}
}

// WithLogger sets the logger for the cache
func WithLogger[V any](logger *zap.Logger) TTLCacheOption[V] {
	return func(c *TTLCache[V]) {
		c.logger = logger
	}
}

// NewTTLCache creates a cache whose entries expire ttl after they were set
func NewTTLCache[V any](ttl time.Duration, opts ...TTLCacheOption[V]) *TTLCache[V] {
	c := &TTLCache[V]{
		entries: make(map[string]ttlEntry[V]),
		ttl:     ttl,
		clock:   SystemClock,
		logger:  zap.NewNop(),
		stopCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()

	return c
}

// Get returns the cached value for key, treating expired entries as misses
func (c *TTLCache[V]) Get(key string) (V, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && now.Before(entry.expiresAt) {
		atomic.AddInt64(&c.hits, 1)
		return entry.value, true
	}

	if ok {
		c.mu.Lock()
		// Re-check under the write lock: the entry may have been refreshed.
		if current, still := c.entries[key]; still && !now.Before(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	atomic.AddInt64(&c.misses, 1)
	var zero V
	return zero, false
}

// Set stores value under key with the cache's TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = ttlEntry[V]{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops the entry for key if present
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix drops every entry whose key starts with prefix
func (c *TTLCache[V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Purge drops all entries
func (c *TTLCache[V]) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]ttlEntry[V])
	c.mu.Unlock()
}

// Len returns the number of entries currently held, including not yet swept
// expired ones
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counters
func (c *TTLCache[V]) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the background cleanup goroutine
func (c *TTLCache[V]) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

func (c *TTLCache[V]) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *TTLCache[V]) sweep() {
	now := c.clock.Now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("Swept expired cache entries", zap.Int("removed", removed))
	}
}
