package cache

import (
	"time"

	"github.com/Sternrassler/item-quote-client/pkg/item"
)

// DefaultTTL is how long a fetched item is served from cache.
const DefaultTTL = 10 * time.Minute

// Entry is a cached upstream item.
type Entry struct {
	// Key is the normalized identifier the entry is stored under.
	Key string `json:"key"`

	// Item is the raw upstream representation. Pricing is never cached.
	Item *item.Item `json:"item"`

	// StoredAt is when the item was put into the cache.
	StoredAt time.Time `json:"stored_at"`
}

// IsExpired returns true once the entry is older than ttl at now.
// An entry exactly ttl old is still valid.
func (e *Entry) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) > ttl
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}
