// Package resolve turns batches of item identifiers into priced quote lines.
//
// Identifiers in a batch are processed strictly in order, one upstream
// interaction at a time. A quota rejection stops the batch and returns the
// lines resolved so far; other failures only mark the affected line.
package resolve

import (
	"context"
	"errors"
	"strconv"

	"github.com/Sternrassler/item-quote-client/pkg/auth"
	"github.com/Sternrassler/item-quote-client/pkg/client"
	"github.com/Sternrassler/item-quote-client/pkg/item"
	"github.com/Sternrassler/item-quote-client/pkg/lookup"
	"github.com/Sternrassler/item-quote-client/pkg/pricing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	resolveLinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_resolve_lines_total",
		Help: "Total resolved quote lines by outcome",
	}, []string{"outcome"})

	resolveBatchesAborted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_resolve_batches_aborted_total",
		Help: "Total batches stopped early because the upstream quota was exhausted",
	})
)

// Fetcher fetches one item from the upstream API.
type Fetcher interface {
	FetchItem(ctx context.Context, id int64) (*item.Item, error)
}

// ItemCache is the read-through cache consulted before every fetch.
type ItemCache interface {
	Get(ctx context.Context, id any) (*item.Item, bool)
	Put(ctx context.Context, id any, it *item.Item)
}

// Lookup maps an item number or name to an upstream id.
type Lookup interface {
	Lookup(key string) (int64, error)
}

// Service orchestrates lookup, cache, upstream fetch and pricing.
type Service struct {
	fetcher Fetcher
	cache   ItemCache
	lookup  Lookup
	logger  zerolog.Logger
}

// NewService creates a resolution service. lookup may be nil when only
// ResolveByID is used.
func NewService(fetcher Fetcher, cache ItemCache, lookup Lookup, logger zerolog.Logger) *Service {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	if cache == nil {
		panic("item cache cannot be nil")
	}
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		lookup:  lookup,
		logger:  logger,
	}
}

// request is one identifier to resolve, with its id once known.
type request struct {
	input string
	id    int64
	// lookupErr is set when the identifier could not be mapped to an id.
	lookupErr error
}

// ResolveByNumber resolves item numbers or names through the lookup tables.
// Unknown identifiers produce a lookup_miss line without touching upstream.
func (s *Service) ResolveByNumber(ctx context.Context, inputs []string) (*Result, error) {
	reqs := make([]request, 0, len(inputs))
	for _, in := range inputs {
		key := lookup.Normalize(in)
		r := request{input: key}
		if s.lookup == nil {
			r.lookupErr = lookup.ErrNotFound
		} else {
			r.id, r.lookupErr = s.lookup.Lookup(key)
		}
		reqs = append(reqs, r)
	}
	return s.resolve(ctx, reqs)
}

// ResolveByID resolves numeric upstream ids directly.
func (s *Service) ResolveByID(ctx context.Context, ids []int64) (*Result, error) {
	reqs := make([]request, 0, len(ids))
	for _, id := range ids {
		reqs = append(reqs, request{input: strconv.FormatInt(id, 10), id: id})
	}
	return s.resolve(ctx, reqs)
}

func (s *Service) resolve(ctx context.Context, reqs []request) (*Result, error) {
	res := &Result{Lines: make([]Line, 0, len(reqs))}

	for i, r := range reqs {
		// Step a: identifier mapping
		if r.lookupErr != nil {
			s.logger.Debug().Str("input", r.input).Msg("No item id for identifier")
			resolveLinesTotal.WithLabelValues(CodeLookupMiss).Inc()
			res.Lines = append(res.Lines, lookupMissLine(r.input))
			continue
		}

		// Step b: cache, then upstream
		it, cached, err := s.fetch(ctx, r.id)
		if err != nil {
			var quotaErr *client.QuotaExceeded
			var authErr *auth.AuthError
			switch {
			case errors.As(err, &quotaErr):
				// Step c: stop the whole batch
				resolveBatchesAborted.Inc()
				s.logger.Warn().
					Int("resolved", len(res.Lines)).
					Int("skipped", len(reqs)-i).
					Int("retry_after", quotaErr.RetryAfterSeconds).
					Msg("Quota exhausted - aborting batch")
				res.Quota = &QuotaSignal{RetryAfterSeconds: quotaErr.RetryAfterSeconds}
				return res, nil
			case errors.As(err, &authErr):
				s.logger.Error().Err(err).Msg("Upstream authentication failed - aborting batch")
				return nil, err
			default:
				// Step d: mark this line only
				line := fetchErrorLine(r.input, r.id, err)
				resolveLinesTotal.WithLabelValues(line.Error.Code).Inc()
				s.logger.Warn().
					Err(err).
					Str("input", r.input).
					Int64("item_id", r.id).
					Msg("Item fetch failed")
				res.Lines = append(res.Lines, line)
				continue
			}
		}

		// Step e: price and assemble
		line := successLine(r.input, it, pricing.Price(it))
		line.Cached = cached
		resolveLinesTotal.WithLabelValues("ok").Inc()
		res.Lines = append(res.Lines, line)
	}

	s.logger.Debug().
		Int("lines", len(res.Lines)).
		Int("priced", len(res.Priced())).
		Msg("Batch resolved")
	return res, nil
}

// fetch serves id from cache or, on a miss, from upstream, filling the cache.
func (s *Service) fetch(ctx context.Context, id int64) (*item.Item, bool, error) {
	if it, ok := s.cache.Get(ctx, id); ok {
		return it, true, nil
	}

	it, err := s.fetcher.FetchItem(ctx, id)
	if err != nil {
		return nil, false, err
	}
	s.cache.Put(ctx, id, it)
	return it, false, nil
}
