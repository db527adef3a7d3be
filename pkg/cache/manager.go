package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/item-quote-client/pkg/item"
	"github.com/rs/zerolog"
)

// Manager is the item cache. It maps an item identifier to its last-fetched
// representation and treats entries older than the TTL as absent, deleting
// them on lookup.
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewManager creates a cache manager over store with DefaultTTL.
func NewManager(store Store, logger zerolog.Logger) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the time source (for testing).
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// TTL returns the entry time-to-live.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get returns the cached item for id. Store errors are logged and reported
// as a miss so an unhealthy backend degrades to upstream fetches.
func (m *Manager) Get(ctx context.Context, id any) (*item.Item, bool) {
	key := Key(id)
	backend := m.store.Name()

	entry, err := m.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			CacheErrors.WithLabelValues("load").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache load error")
		}
		CacheMisses.WithLabelValues(backend).Inc()
		m.logger.Debug().Str("key", key).Bool("cache_hit", false).Msg("Cache miss")
		return nil, false
	}

	now := m.now()
	if entry.IsExpired(now, m.ttl) {
		// A Put may have replaced the entry since Load; only the expired
		// entry itself is removed.
		deleted, err := m.store.DeleteIfStoredAt(ctx, key, entry.StoredAt)
		switch {
		case err != nil:
			CacheErrors.WithLabelValues("delete").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache delete error")
		case deleted:
			CacheEvictions.WithLabelValues(backend).Inc()
		}
		CacheMisses.WithLabelValues(backend).Inc()
		m.logger.Debug().
			Str("key", key).
			Dur("age", entry.Age(now)).
			Msg("Cache entry expired")
		return nil, false
	}

	CacheHits.WithLabelValues(backend).Inc()
	m.logger.Debug().
		Str("key", key).
		Bool("cache_hit", true).
		Dur("age", entry.Age(now)).
		Msg("Cache hit")
	return entry.Item, true
}

// Put stores it under id with a fresh timestamp, replacing any earlier entry.
func (m *Manager) Put(ctx context.Context, id any, it *item.Item) {
	if it == nil {
		return
	}
	key := Key(id)

	entry := &Entry{
		Key:      key,
		Item:     it,
		StoredAt: m.now(),
	}
	if err := m.store.Save(ctx, key, entry, m.ttl); err != nil {
		CacheErrors.WithLabelValues("save").Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache item")
		return
	}

	m.logger.Debug().
		Str("key", key).
		Dur("ttl", m.ttl).
		Msg("Cached item")
}

// Delete removes the entry for id.
func (m *Manager) Delete(ctx context.Context, id any) error {
	if err := m.store.Delete(ctx, Key(id)); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}
