// Package telemetry records query patterns seen by search engines.
// All telemetry data is kept locally - no external reporting.
package telemetry

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Operations
// =============================================================================

// Operation names the engine call that produced a query event.
type Operation string

const (
	OpSearch   Operation = "search"
	OpKeys     Operation = "keys"
	OpGet      Operation = "get"
	OpPaginate Operation = "paginate"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent is a single engine call.
type QueryEvent struct {
	Model       string
	Query       string
	Operation   Operation
	ResultCount int
	Latency     time.Duration
	Failed      bool
	Timestamp   time.Time
}

// IsZeroResult returns true if a successful call matched nothing.
func (e QueryEvent) IsZeroResult() bool {
	return !e.Failed && e.ResultCount == 0
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // Next write position
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in the buffer oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear removes all items from the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

// =============================================================================
// Term Extraction
// =============================================================================

// ExtractTerms extracts terms from free text.
// Terms are lowercased, stripped of Solr syntax and filtered to length 3+.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || query == "*:*" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		w = strings.Trim(w, `"'()[]{}+-!~*?^:`)
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term" db:"term"`
	Count int64  `json:"count" db:"count"`
}

// =============================================================================
// Snapshot
// =============================================================================

// QueryMetricsSnapshot is an immutable snapshot of query metrics.
type QueryMetricsSnapshot struct {
	OperationCounts     map[Operation]int64     `json:"operation_counts"`
	ModelCounts         map[string]int64        `json:"model_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	FailureCount        int64                   `json:"failure_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	UniqueQueryCount    int64                   `json:"unique_query_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// RepeatRate returns the share of queries seen recently with the same text.
func (s *QueryMetricsSnapshot) RepeatRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ExactRepeatCount) / float64(s.TotalQueries)
}

// =============================================================================
// Persistence
// =============================================================================

// QueryMetricsStore defines persistence operations for query metrics.
type QueryMetricsStore interface {
	// SaveOperationCounts adds daily per-operation counts.
	SaveOperationCounts(date string, counts map[Operation]int64) error

	// GetOperationCounts sums counts over a date range.
	GetOperationCounts(from, to string) (map[Operation]int64, error)

	// UpsertTermCounts adds to term frequency counts.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms retrieves the top N terms by frequency.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroResultQuery appends a query to the bounded zero-result log.
	AddZeroResultQuery(query string, timestamp time.Time) error

	// GetZeroResultQueries retrieves recent zero-result queries, newest first.
	GetZeroResultQueries(limit int) ([]string, error)

	// SaveLatencyCounts adds daily latency histogram counts.
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error

	// GetLatencyCounts sums the latency distribution over a date range.
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)
}

// QueryMetricsConfig configures the query metrics collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int           // Max terms to track (default: 100)
	ZeroResultsCapacity   int           // Max zero-result queries to keep (default: 100)
	RecentQueriesCapacity int           // Max query hashes for repeat detection (default: 500)
	FlushInterval         time.Duration // 0 disables auto-flush
}

// DefaultQueryMetricsConfig returns sensible defaults.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
		FlushInterval:         60 * time.Second,
	}
}

// =============================================================================
// Query Metrics
// =============================================================================

// QueryMetrics aggregates query events in memory and periodically flushes
// the deltas to a store. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.RWMutex

	operations      map[Operation]int64
	models          map[string]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	failureCount    int64
	startTime       time.Time

	recentQueries    *lru.Cache[uint64, struct{}]
	exactRepeatCount int64

	// Unflushed deltas.
	pendingOps     map[Operation]int64
	pendingTerms   map[string]int64
	pendingLatency map[LatencyBucket]int64
	pendingZero    []QueryEvent

	store       QueryMetricsStore
	now         func() time.Time
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

// NewQueryMetrics creates a collector with the default configuration.
// If store is nil, metrics are only kept in memory.
func NewQueryMetrics(store QueryMetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector with custom configuration.
func NewQueryMetricsWithConfig(store QueryMetricsStore, cfg QueryMetricsConfig) *QueryMetrics {
	def := DefaultQueryMetricsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[uint64, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		operations:     make(map[Operation]int64),
		models:         make(map[string]int64),
		topTerms:       topTerms,
		zeroResults:    NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:      make(map[LatencyBucket]int64),
		startTime:      time.Now(),
		recentQueries:  recent,
		pendingOps:     make(map[Operation]int64),
		pendingTerms:   make(map[string]int64),
		pendingLatency: make(map[LatencyBucket]int64),
		store:          store,
		now:            time.Now,
		stopCh:         make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}

	return m
}

func (m *QueryMetrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record captures one engine call. Thread-safe and non-blocking.
func (m *QueryMetrics) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.totalQueries++
	m.operations[event.Operation]++
	m.pendingOps[event.Operation]++
	if event.Model != "" {
		m.models[event.Model]++
	}

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	m.pendingLatency[bucket]++

	if event.Failed {
		m.failureCount++
		return
	}

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
		m.pendingTerms[term]++
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
		m.pendingZero = append(m.pendingZero, event)
	}

	h := hashQuery(event.Model, event.Query)
	if _, ok := m.recentQueries.Get(h); ok {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(h, struct{}{})
}

// hashQuery normalises a query for repetition detection.
func hashQuery(model, query string) uint64 {
	return xxhash.Sum64String(model + "\x00" + strings.ToLower(strings.TrimSpace(query)))
}

// Snapshot returns the current in-memory aggregates.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	topTerms := make([]TermCount, 0, m.topTerms.Len())
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	slices.SortStableFunc(topTerms, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})

	return &QueryMetricsSnapshot{
		OperationCounts:     copyMap(m.operations),
		ModelCounts:         copyMap(m.models),
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: copyMap(m.latencies),
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		FailureCount:        m.failureCount,
		ExactRepeatCount:    m.exactRepeatCount,
		UniqueQueryCount:    int64(m.recentQueries.Len()),
		Since:               m.startTime,
	}
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Flush persists the deltas recorded since the previous flush.
// Safe to call even if no store is configured.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	ops, terms, latency, zero := m.pendingOps, m.pendingTerms, m.pendingLatency, m.pendingZero
	m.pendingOps = make(map[Operation]int64)
	m.pendingTerms = make(map[string]int64)
	m.pendingLatency = make(map[LatencyBucket]int64)
	m.pendingZero = nil
	today := m.now().Format("2006-01-02")
	m.mu.Unlock()

	if len(ops) > 0 {
		if err := m.store.SaveOperationCounts(today, ops); err != nil {
			return err
		}
	}
	if err := m.store.UpsertTermCounts(terms); err != nil {
		return err
	}
	if len(latency) > 0 {
		if err := m.store.SaveLatencyCounts(today, latency); err != nil {
			return err
		}
	}
	for _, ev := range zero {
		if err := m.store.AddZeroResultQuery(ev.Query, ev.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Close stops auto-flush and writes the remaining deltas.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}

	return m.Flush()
}
