// Package client provides the guarded, authenticated upstream item client.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/item-quote-client/pkg/auth"
	"github.com/Sternrassler/item-quote-client/pkg/item"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream client operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_upstream_requests_total",
		Help: "Total upstream item requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quote_upstream_request_duration_seconds",
		Help:    "Upstream item request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_upstream_errors_total",
		Help: "Total upstream item errors by class",
	}, []string{"class"})
)

// maxItemBody bounds how much of an item response is read.
const maxItemBody = 4 << 20

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents upstream 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a success response with an unreadable body.
	ErrorClassDecode ErrorClass = "decode"
)

// TokenSource supplies upstream credentials.
type TokenSource interface {
	Acquire(ctx context.Context) (auth.Credential, error)
	Invalidate()
}

// Admitter gates upstream calls against the call quota.
type Admitter interface {
	TryAdmit() bool
	SecondsUntilReset() int
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the upstream API root, e.g. "https://api.example.com/v1".
	BaseURL string

	// UserAgent is sent with every item request.
	UserAgent string

	// Timeout bounds a single upstream call.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "item-quote-client/0.1.0",
		Timeout:   30 * time.Second,
	}
}

// Client performs guarded, authenticated item calls against the upstream API.
// It does not cache; callers consult the item cache before calling FetchItem.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	guard      Admitter
	config     Config
	logger     zerolog.Logger
}

// New creates a new upstream client.
func New(cfg Config, tokens TokenSource, guard Admitter, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("quota guard is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		guard:      guard,
		config:     cfg,
		logger:     logger,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// FetchItem fetches one item by numeric id.
//
// Errors:
//   - *QuotaExceeded when the quota guard refuses the call
//   - *auth.AuthError when no credential can be obtained
//   - *UpstreamError when the item call fails
func (c *Client) FetchItem(ctx context.Context, id int64) (*item.Item, error) {
	// Step 1: Check quota before spending a token fetch
	if !c.guard.TryAdmit() {
		retryAfter := c.guard.SecondsUntilReset()
		upstreamRequestsTotal.WithLabelValues("quota_rejected").Inc()
		c.logger.Warn().
			Int64("item_id", id).
			Int("retry_after", retryAfter).
			Msg("Item request blocked by quota guard")
		return nil, &QuotaExceeded{RetryAfterSeconds: retryAfter}
	}

	// Step 2: Credential
	cred, err := c.tokens.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	// Step 3: Authenticated request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/items/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Value)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().Int64("item_id", id).Msg("Executing upstream item request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Int64("item_id", id).Msg("Upstream request failed")
		return nil, &UpstreamError{
			ErrorClass: ErrorClassNetwork,
			Message:    "item request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	// Step 4: Handle HTTP errors
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := classifyStatus(resp.StatusCode)
		upstreamErrorsTotal.WithLabelValues(string(errClass)).Inc()

		if resp.StatusCode == http.StatusUnauthorized {
			// Next call re-authenticates; this one is not retried.
			c.tokens.Invalidate()
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		upErr := &UpstreamError{
			StatusCode:        resp.StatusCode,
			ErrorClass:        errClass,
			Message:           errorMessage(resp, body),
			RetryAfterSeconds: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}

		c.logger.Warn().
			Int64("item_id", id).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Int("retry_after", upErr.RetryAfterSeconds).
			Msg("Upstream item request error")
		return nil, upErr
	}

	// Step 5: Decode
	var it item.Item
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxItemBody)).Decode(&it); err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode item",
			Err:        err,
		}
	}

	c.logger.Debug().
		Int64("item_id", id).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("Fetched upstream item")

	return &it, nil
}

// classifyStatus categorizes a non-success status for observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// errorMessage extracts a readable message from an error response.
func errorMessage(resp *http.Response, body []byte) string {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" && len(msg) <= 200 {
		return msg
	}
	return resp.Status
}

// parseRetryAfter reads a Retry-After value given as delta-seconds or an
// HTTP date. It returns 0 when the header is absent or unparsable.
func parseRetryAfter(value string, now time.Time) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return secs
	}
	if at, err := http.ParseTime(value); err == nil {
		secs := int(math.Ceil(at.Sub(now).Seconds()))
		if secs < 1 {
			return 1
		}
		return secs
	}
	return 0
}
