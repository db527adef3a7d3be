// Package httpapi exposes the resolution service over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/item-quote-client/pkg/metrics"
	"github.com/Sternrassler/item-quote-client/pkg/ratelimit"
	"github.com/Sternrassler/item-quote-client/pkg/resolve"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quote_http_requests_total",
	Help: "Total API requests by route and status",
}, []string{"route", "status"})

// Resolver is the resolution service as seen by the HTTP layer.
type Resolver interface {
	ResolveByNumber(ctx context.Context, inputs []string) (*resolve.Result, error)
	ResolveByID(ctx context.Context, ids []int64) (*resolve.Result, error)
}

// QuotaReporter exposes the current quota window.
type QuotaReporter interface {
	Snapshot() ratelimit.Window
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Resolver Resolver
	Logger   zerolog.Logger

	// Quota is reported on /health when set.
	Quota QuotaReporter

	// MaxBodyBytes limits request bodies (default 1 MB).
	MaxBodyBytes int64
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(deps.Logger))

	r.Get("/health", healthHandler(deps.Quota))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	limit := deps.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	items := newItemsHandler(deps.Resolver, deps.Logger, limit)

	r.Route("/api/v1/items", func(ir chi.Router) {
		ir.Post("/resolve-by-number", items.ResolveByNumber)
		ir.Post("/resolve-by-id", items.ResolveByID)
	})

	return r
}

type quotaStatus struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type healthResponse struct {
	Status string       `json:"status"`
	Quota  *quotaStatus `json:"quota,omitempty"`
}

func healthHandler(quota QuotaReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if quota != nil {
			win := quota.Snapshot()
			resp.Quota = &quotaStatus{
				Used:      win.Count,
				Limit:     win.Limit,
				Remaining: win.Remaining(),
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// requestLogger logs each request and counts it by route pattern.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", chimw.GetReqID(r.Context())).
				Int("status", status).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int("bytes", ww.BytesWritten()).
				Msg("http request")
		})
	}
}
