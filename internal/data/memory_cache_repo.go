package data

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryCacheRepo is an in-process CacheRepository used when Redis is
// disabled. Entries expire lazily on access; the reaper-sized deployments this
// fallback targets never hold enough keys for active eviction to matter.
type MemoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	counter   int64
	expiresAt time.Time
}

// NewMemoryCacheRepo creates an empty in-memory cache.
func NewMemoryCacheRepo() *MemoryCacheRepo {
	return &MemoryCacheRepo{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCacheRepo) live(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// Set stores a value with the given TTL. A non-positive TTL means no expiry.
func (m *MemoryCacheRepo) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// Get retrieves a value. A missing or expired key yields (nil, nil).
func (m *MemoryCacheRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), entry.value...), nil
}

// Delete removes a key, reporting whether it was present.
func (m *MemoryCacheRepo) Delete(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(key)
	delete(m.entries, key)
	return ok, nil
}

// IncrementWithTTL increments a counter, starting a fresh window with the
// given TTL when the key is new or expired.
func (m *MemoryCacheRepo) IncrementWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, errors.New("key cannot be empty")
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		entry = memoryEntry{expiresAt: m.now().Add(ttl)}
	}
	entry.counter++
	m.entries[key] = entry
	return entry.counter, nil
}

// Health always succeeds for the in-memory cache.
func (m *MemoryCacheRepo) Health(context.Context) error {
	return nil
}
