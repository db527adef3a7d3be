// Package cache provides the item cache used in front of the upstream
// pricing API.
//
// The cache stores the raw upstream item representation, keyed by the string
// form of the item id, for a fixed TTL of 10 minutes:
//
// - Entries older than the TTL are treated as absent and deleted on lookup
// - There is no background sweeper; cleanup is purely lazy
// - Put always replaces the previous entry with a fresh timestamp
// - Pricing results are never cached
//
// # Basic Usage
//
//	// In-memory store (default, cleared on restart)
//	manager := cache.NewManager(cache.NewMemoryStore(), logger)
//
//	if it, ok := manager.Get(ctx, int64(1234)); ok {
//		// serve cached item, no upstream quota used
//	}
//
//	// after an upstream fetch
//	manager.Put(ctx, int64(1234), fetched)
//
// # Redis Backend
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(cache.NewRedisStore(redisClient), logger)
//
// Redis entries are JSON documents under "quote:item:<id>". Redis errors are
// logged and counted, and the lookup degrades to a miss.
//
// # Metrics
//
//   - quote_cache_hits_total{backend}
//   - quote_cache_misses_total{backend}
//   - quote_cache_evictions_total{backend}
//   - quote_cache_errors_total{operation}
package cache
