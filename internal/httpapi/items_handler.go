package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Sternrassler/item-quote-client/pkg/auth"
	"github.com/Sternrassler/item-quote-client/pkg/resolve"
	"github.com/rs/zerolog"
)

// itemsHandler groups the resolution endpoints.
type itemsHandler struct {
	resolver Resolver
	logger   zerolog.Logger
	limit    int64
}

func newItemsHandler(resolver Resolver, logger zerolog.Logger, limit int64) *itemsHandler {
	return &itemsHandler{resolver: resolver, logger: logger, limit: limit}
}

type resolveByNumberRequest struct {
	Items []string `json:"items"`
}

type resolveByIDRequest struct {
	IDs []int64 `json:"ids"`
}

// ResolveByNumber handles POST /api/v1/items/resolve-by-number.
func (h *itemsHandler) ResolveByNumber(w http.ResponseWriter, r *http.Request) {
	var req resolveByNumberRequest
	if err := readJSON(r, h.limit, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be {\"items\": [string, ...]}")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", "items must not be empty")
		return
	}

	res, err := h.resolver.ResolveByNumber(r.Context(), req.Items)
	h.respond(w, res, err)
}

// ResolveByID handles POST /api/v1/items/resolve-by-id.
func (h *itemsHandler) ResolveByID(w http.ResponseWriter, r *http.Request) {
	var req resolveByIDRequest
	if err := readJSON(r, h.limit, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be {\"ids\": [number, ...]}")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", "ids must not be empty")
		return
	}

	res, err := h.resolver.ResolveByID(r.Context(), req.IDs)
	h.respond(w, res, err)
}

// respond maps a batch outcome to an HTTP response. A quota abort still
// carries the lines resolved before it.
func (h *itemsHandler) respond(w http.ResponseWriter, res *resolve.Result, err error) {
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			writeError(w, http.StatusBadGateway, "upstream_auth_failed", authErr.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Batch resolution failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve items")
		return
	}

	if res.Quota != nil {
		w.Header().Set("Retry-After", strconv.Itoa(res.Quota.RetryAfterSeconds))
		writeJSON(w, http.StatusTooManyRequests, res)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
