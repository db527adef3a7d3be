package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/item-quote-client/internal/testutil"
	"github.com/Sternrassler/item-quote-client/pkg/auth"
	"github.com/Sternrassler/item-quote-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// stubTokens is a TokenSource with scripted behavior.
type stubTokens struct {
	err         error
	calls       int
	invalidated int
}

func (s *stubTokens) Acquire(ctx context.Context) (auth.Credential, error) {
	s.calls++
	if s.err != nil {
		return auth.Credential{}, s.err
	}
	return auth.Credential{Value: "stub-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubTokens) Invalidate() { s.invalidated++ }

// stubGuard is an Admitter that always answers the same.
type stubGuard struct {
	allow      bool
	retryAfter int
	calls      int
}

func (g *stubGuard) TryAdmit() bool {
	g.calls++
	return g.allow
}

func (g *stubGuard) SecondsUntilReset() int { return g.retryAfter }

func newTestClient(t *testing.T, mock *testutil.MockUpstream, tokens TokenSource, guard Admitter) *Client {
	t.Helper()

	c, err := New(DefaultConfig(mock.URL()), tokens, guard, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tokens := &stubTokens{}
	guard := &stubGuard{allow: true}

	tests := []struct {
		name     string
		config   Config
		tokens   TokenSource
		guard    Admitter
		errorMsg string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("http://localhost"),
			tokens: tokens,
			guard:  guard,
		},
		{
			name:     "empty base url",
			config:   DefaultConfig(""),
			tokens:   tokens,
			guard:    guard,
			errorMsg: "base url is required",
		},
		{
			name:     "nil token source",
			config:   DefaultConfig("http://localhost"),
			guard:    guard,
			errorMsg: "token source is required",
		},
		{
			name:     "nil guard",
			config:   DefaultConfig("http://localhost"),
			tokens:   tokens,
			errorMsg: "quota guard is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config, tt.tokens, tt.guard, zerolog.Nop())

			if tt.errorMsg != "" {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestFetchItem_Success(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetItem(101, testutil.ItemJSON(101, "A-100", "Widget", 42))

	tokens, err := auth.NewProvider(auth.Config{
		TokenURL:     mock.TokenURL(),
		ClientID:     testutil.ClientID,
		ClientSecret: testutil.ClientSecret,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	guard := ratelimit.NewGuard(10, zerolog.Nop())
	c := newTestClient(t, mock, tokens, guard)

	it, err := c.FetchItem(context.Background(), 101)
	if err != nil {
		t.Fatalf("FetchItem() error = %v", err)
	}

	if it.ID != 101 || it.ItemNumber != "A-100" || it.Price.Float64() != 42 {
		t.Errorf("FetchItem() = %+v", it)
	}
	if got := mock.GetLastAuthHeader(); got != "Bearer token-1" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer token-1")
	}
	if got := guard.Snapshot().Count; got != 1 {
		t.Errorf("quota used = %d, want 1", got)
	}
}

func TestFetchItem_QuotaDeniedSkipsToken(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	tokens := &stubTokens{}
	guard := &stubGuard{allow: false, retryAfter: 17}
	c := newTestClient(t, mock, tokens, guard)

	_, err := c.FetchItem(context.Background(), 1)

	var quotaErr *QuotaExceeded
	if !errors.As(err, &quotaErr) {
		t.Fatalf("expected *QuotaExceeded, got %T (%v)", err, err)
	}
	if quotaErr.RetryAfterSeconds != 17 {
		t.Errorf("RetryAfterSeconds = %d, want 17", quotaErr.RetryAfterSeconds)
	}
	if tokens.calls != 0 {
		t.Errorf("token acquired %d times on quota denial, want 0", tokens.calls)
	}
	if mock.GetItemCount() != 0 {
		t.Errorf("upstream called %d times on quota denial, want 0", mock.GetItemCount())
	}
}

func TestFetchItem_AuthErrorPropagates(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	authErr := &auth.AuthError{StatusCode: 401, Message: "invalid_client"}
	c := newTestClient(t, mock, &stubTokens{err: authErr}, &stubGuard{allow: true})

	_, err := c.FetchItem(context.Background(), 1)

	var got *auth.AuthError
	if !errors.As(err, &got) {
		t.Fatalf("expected *auth.AuthError, got %T (%v)", err, err)
	}
	if mock.GetItemCount() != 0 {
		t.Error("item endpoint called without a credential")
	}
}

func TestFetchItem_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name          string
		response      testutil.MockResponse
		wantStatus    int
		wantClass     ErrorClass
		wantRetry     int
		wantTransient bool
	}{
		{
			name:          "rate limited with retry-after",
			response:      testutil.NewRateLimitedResponse(30),
			wantStatus:    http.StatusTooManyRequests,
			wantClass:     ErrorClassRateLimit,
			wantRetry:     30,
			wantTransient: true,
		},
		{
			name:          "server error",
			response:      testutil.NewServerErrorResponse(),
			wantStatus:    http.StatusInternalServerError,
			wantClass:     ErrorClassServer,
			wantTransient: true,
		},
		{
			name: "forbidden",
			response: testutil.MockResponse{
				StatusCode: http.StatusForbidden,
				Body:       `{"message":"not allowed"}`,
			},
			wantStatus: http.StatusForbidden,
			wantClass:  ErrorClassClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockUpstream()
			defer mock.Close()
			mock.SetResponse(5, tt.response)

			c := newTestClient(t, mock, &stubTokens{}, &stubGuard{allow: true})

			_, err := c.FetchItem(context.Background(), 5)

			var upErr *UpstreamError
			if !errors.As(err, &upErr) {
				t.Fatalf("expected *UpstreamError, got %T (%v)", err, err)
			}
			if upErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", upErr.StatusCode, tt.wantStatus)
			}
			if upErr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", upErr.ErrorClass, tt.wantClass)
			}
			if upErr.RetryAfterSeconds != tt.wantRetry {
				t.Errorf("RetryAfterSeconds = %d, want %d", upErr.RetryAfterSeconds, tt.wantRetry)
			}
			if upErr.Transient() != tt.wantTransient {
				t.Errorf("Transient() = %v, want %v", upErr.Transient(), tt.wantTransient)
			}
			if mock.GetItemCount() != 1 {
				t.Errorf("upstream called %d times, want exactly 1 (no retry)", mock.GetItemCount())
			}
		})
	}
}

func TestFetchItem_NotFoundMessage(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	c := newTestClient(t, mock, &stubTokens{}, &stubGuard{allow: true})

	_, err := c.FetchItem(context.Background(), 404)

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %T", err)
	}
	if upErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", upErr.StatusCode)
	}
	if upErr.Message != "item not found" {
		t.Errorf("Message = %q, want %q", upErr.Message, "item not found")
	}
}

func TestFetchItem_UnauthorizedInvalidatesToken(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse(9, testutil.MockResponse{StatusCode: http.StatusUnauthorized, Body: `{"error":"expired"}`})

	tokens := &stubTokens{}
	c := newTestClient(t, mock, tokens, &stubGuard{allow: true})

	_, err := c.FetchItem(context.Background(), 9)
	if err == nil {
		t.Fatal("expected error")
	}
	if tokens.invalidated != 1 {
		t.Errorf("Invalidate() called %d times, want 1", tokens.invalidated)
	}
}

func TestFetchItem_DecodeError(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse(3, testutil.MockResponse{StatusCode: http.StatusOK, Body: `<html>`})

	c := newTestClient(t, mock, &stubTokens{}, &stubGuard{allow: true})

	_, err := c.FetchItem(context.Background(), 3)

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %T", err)
	}
	if upErr.ErrorClass != ErrorClassDecode {
		t.Errorf("ErrorClass = %q, want %q", upErr.ErrorClass, ErrorClassDecode)
	}
}

func TestFetchItem_NetworkError(t *testing.T) {
	mock := testutil.NewMockUpstream()
	baseURL := mock.URL()
	mock.Close()

	c, err := New(DefaultConfig(baseURL), &stubTokens{}, &stubGuard{allow: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.FetchItem(context.Background(), 1)

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %T", err)
	}
	if upErr.StatusCode != 0 || upErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("got status %d class %q, want 0/network", upErr.StatusCode, upErr.ErrorClass)
	}
	if upErr.Unwrap() == nil {
		t.Error("network error should wrap the transport cause")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "absent", value: "", want: 0},
		{name: "delta seconds", value: "120", want: 120},
		{name: "negative", value: "-5", want: 0},
		{name: "http date", value: now.Add(45 * time.Second).Format(http.TimeFormat), want: 45},
		{name: "past http date", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 1},
		{name: "garbage", value: "soon", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
