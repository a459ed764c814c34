package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/b-vitamins/openalex-go/pkg/logging"
)

// FetchFunc produces the value for a cache miss.
type FetchFunc func(ctx context.Context) (any, error)

// Manager adds single-flight fetch deduplication on top of a Store.
// Concurrent callers for the same key block on one in-flight fetch while
// callers for different keys proceed independently.
type Manager struct {
	store  *Store
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is a short-lived per-key lock. refs counts callers holding or
// waiting on it, so the registry entry can be dropped when the last one
// leaves.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a cache manager over store.
func NewManager(store *Store) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{
		store:  store,
		logger: logging.NewLogger("cache-manager"),
	}
}

// Store returns the underlying store.
func (m *Manager) Store() *Store {
	return m.store
}

// GetOrFetch returns the cached value for key, fetching and storing it on a
// miss. The fetch is deduplicated per key: the first caller through the
// per-key lock fetches, later callers observe the populated cache on lock
// acquisition. A failed fetch is never cached and propagates unchanged to
// the caller that performed it; waiters then fetch for themselves.
func (m *Manager) GetOrFetch(ctx context.Context, key Key, ttl time.Duration, fetch FetchFunc) (any, error) {
	k := key.String()

	if val, ok := m.store.Get(k); ok {
		m.logger.Debug().Str("cache_key", k).Msg("Cache hit")
		return val, nil
	}

	lock := m.lockKey(k)
	defer m.unlockKey(k, lock)

	// Another caller may have completed the fetch while we waited.
	if val, ok := m.store.Get(k); ok {
		m.logger.Debug().Str("cache_key", k).Msg("Cache hit after in-flight fetch")
		return val, nil
	}

	val, err := fetch(ctx)
	if err != nil {
		// Failures are never cached.
		return nil, err
	}

	m.store.Set(k, val, ttl)
	m.logger.Debug().
		Str("cache_key", k).
		Dur("ttl", ttl).
		Msg("Cached fetched value")
	return val, nil
}

// Invalidate removes the cached value for key.
func (m *Manager) Invalidate(key Key) {
	m.store.Delete(key.String())
}

// Clear removes all cached values.
func (m *Manager) Clear() {
	m.store.Clear()
}

// Stats reports cache statistics.
func (m *Manager) Stats() Stats {
	return m.store.Stats()
}

func (m *Manager) lockKey(k string) *keyLock {
	m.mu.Lock()
	l, ok := m.locks[k]
	if !ok {
		if m.locks == nil {
			m.locks = make(map[string]*keyLock)
		}
		l = &keyLock{}
		m.locks[k] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return l
}

func (m *Manager) unlockKey(k string, l *keyLock) {
	l.mu.Unlock()

	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, k)
	}
	m.mu.Unlock()
}
