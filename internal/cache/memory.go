package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMemoryCapacity is the default maximum number of entries held by a MemoryConnector.
const DefaultMemoryCapacity = 1000

// MemoryConnector is an in-process Connector with LRU eviction and per-entry expiry.
// It is used by tests, local development and the CLI.
type MemoryConnector struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lruList  *list.List
	refs     int
	now      func() time.Time

	// Metrics using atomic for lock-free access.
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	gets      atomic.Uint64
}

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// NewMemoryConnector creates a connector holding at most DefaultMemoryCapacity entries.
func NewMemoryConnector() *MemoryConnector {
	return NewMemoryConnectorWithCapacity(DefaultMemoryCapacity)
}

// NewMemoryConnectorWithCapacity creates a connector with the given capacity.
func NewMemoryConnectorWithCapacity(capacity int) *MemoryConnector {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryConnector{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
		now:      time.Now,
	}
}

// Connect opens the connector. Entries survive Disconnect.
func (m *MemoryConnector) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs++
	return nil
}

// Disconnect releases one Connect.
func (m *MemoryConnector) Disconnect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs > 0 {
		m.refs--
	}
	return nil
}

// IsOpen reports whether any Connect is outstanding.
func (m *MemoryConnector) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs > 0
}

// Get returns the value at key and moves it to the front of the LRU list.
// Expired entries are removed and reported as missing.
func (m *MemoryConnector) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == 0 {
		return "", false, ErrNotConnected
	}
	m.gets.Add(1)

	elem, exists := m.items[key]
	if !exists {
		m.misses.Add(1)
		return "", false, nil
	}
	entry := elem.Value.(*memoryEntry)
	if !m.now().Before(entry.expiresAt) {
		m.remove(elem)
		m.misses.Add(1)
		return "", false, nil
	}

	m.lruList.MoveToFront(elem)
	m.hits.Add(1)
	return entry.value, true, nil
}

// SetEx stores value at key until ttl elapses. If the connector is full the
// least recently used entry is evicted.
func (m *MemoryConnector) SetEx(_ context.Context, key string, ttl time.Duration, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == 0 {
		return ErrNotConnected
	}

	expiresAt := m.now().Add(ttl)
	if elem, exists := m.items[key]; exists {
		m.lruList.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		return nil
	}

	if m.lruList.Len() >= m.capacity {
		m.evictOldest()
	}

	elem := m.lruList.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	m.items[key] = elem
	return nil
}

// Del removes keys.
func (m *MemoryConnector) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == 0 {
		return ErrNotConnected
	}
	for _, key := range keys {
		if elem, exists := m.items[key]; exists {
			m.remove(elem)
		}
	}
	return nil
}

// Clear removes every entry.
func (m *MemoryConnector) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element, m.capacity)
	m.lruList.Init()
}

// MemoryStats holds MemoryConnector metrics.
type MemoryStats struct {
	Size      int     // Current number of entries, expired ones included until touched.
	Capacity  int     // Maximum capacity.
	Gets      uint64  // Number of Get calls.
	Hits      uint64  // Number of successful lookups.
	Misses    uint64  // Number of missing or expired lookups.
	Evictions uint64  // Number of LRU evictions.
	HitRate   float64 // Hits / (hits + misses).
}

// Stats returns connector statistics.
func (m *MemoryConnector) Stats() MemoryStats {
	m.mu.Lock()
	size := m.lruList.Len()
	m.mu.Unlock()

	hits := m.hits.Load()
	misses := m.misses.Load()
	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return MemoryStats{
		Size:      size,
		Capacity:  m.capacity,
		Gets:      m.gets.Load(),
		Hits:      hits,
		Misses:    misses,
		Evictions: m.evictions.Load(),
		HitRate:   hitRate,
	}
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (m *MemoryConnector) evictOldest() {
	elem := m.lruList.Back()
	if elem == nil {
		return
	}
	m.remove(elem)
	m.evictions.Add(1)
}

// Must be called with lock held.
func (m *MemoryConnector) remove(elem *list.Element) {
	m.lruList.Remove(elem)
	delete(m.items, elem.Value.(*memoryEntry).key)
}
