package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache configuration constants.
const (
	// DefaultSize is the number of responses a memory backend keeps.
	DefaultSize = 512

	// DefaultTTL is how long a cached response stays valid.
	DefaultTTL = time.Minute
)

// Backend stores encoded engine responses.
type Backend interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for the backend's TTL.
	Set(ctx context.Context, key string, value []byte) error

	// Purge drops every entry the backend owns.
	Purge(ctx context.Context) error

	// Stats returns hit and miss counters.
	Stats() Stats

	Close() error
}

// Stats are cache counters.
type Stats struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Entries int    `json:"entries"`
}

// counters is shared hit/miss bookkeeping for backends.
type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryBackend is an in-process LRU with a TTL per entry.
type MemoryBackend struct {
	counters
	cache *lru.Cache[string, memoryEntry]
	ttl   time.Duration

	mu  sync.Mutex
	now func() time.Time
}

// NewMemoryBackend creates an LRU backend. Non-positive size and ttl use
// the defaults.
func NewMemoryBackend(size int, ttl time.Duration) *MemoryBackend {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache, _ := lru.New[string, memoryEntry](size)
	return &MemoryBackend{cache: cache, ttl: ttl, now: time.Now}
}

// Get implements Backend. Expired entries count as misses and are removed.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := m.cache.Get(key)
	if ok && m.clock().After(entry.expires) {
		m.cache.Remove(key)
		ok = false
	}
	m.record(ok)
	if !ok {
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.cache.Add(key, memoryEntry{value: value, expires: m.clock().Add(m.ttl)})
	return nil
}

// Purge implements Backend.
func (m *MemoryBackend) Purge(context.Context) error {
	m.cache.Purge()
	return nil
}

// Stats implements Backend.
func (m *MemoryBackend) Stats() Stats {
	return Stats{
		Backend: "memory",
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		Entries: m.cache.Len(),
	}
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	return nil
}

func (m *MemoryBackend) clock() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now()
}
