// Package testutil provides testing utilities for the item quote client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Paths served by MockUpstream.
const (
	TokenPath  = "/oauth/token"
	ItemPrefix = "/items/"
)

// Test credentials accepted by the mock token endpoint.
const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
)

// MockResponse defines a canned response for one item id.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable fake of the upstream pricing API with a
// client-credentials token endpoint and an item endpoint.
type MockUpstream struct {
	server *httptest.Server
	mu     sync.RWMutex

	items     map[int64]MockResponse
	tokenResp *MockResponse
	tokenSeq  int

	// Tracking
	TokenCount     int
	ItemCount      int
	ItemRequests   []int64
	LastAuthHeader string
}

// NewMockUpstream starts a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		items: make(map[int64]MockResponse),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TokenPath, mock.handleToken)
	mux.HandleFunc(ItemPrefix, mock.handleItem)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server base URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// TokenURL returns the full token endpoint URL.
func (m *MockUpstream) TokenURL() string {
	return m.server.URL + TokenPath
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenCount = 0
	m.ItemCount = 0
	m.ItemRequests = nil
	m.LastAuthHeader = ""
}

// SetItem registers a 200 response carrying body for id.
func (m *MockUpstream) SetItem(id int64, body string) {
	m.SetResponse(id, MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})
}

// SetResponse registers a canned response for id.
func (m *MockUpstream) SetResponse(id int64, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = resp
}

// SetTokenResponse overrides the token endpoint response. Passing nil
// restores the default behavior.
func (m *MockUpstream) SetTokenResponse(resp *MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenResp = resp
}

// GetTokenCount returns the number of token exchanges served.
func (m *MockUpstream) GetTokenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TokenCount
}

// GetItemCount returns the number of item requests served.
func (m *MockUpstream) GetItemCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ItemCount
}

// GetItemRequests returns the item ids requested, in order.
func (m *MockUpstream) GetItemRequests() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, len(m.ItemRequests))
	copy(out, m.ItemRequests)
	return out
}

// GetLastAuthHeader returns the Authorization header of the last item request.
func (m *MockUpstream) GetLastAuthHeader() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastAuthHeader
}

func (m *MockUpstream) handleToken(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.TokenCount++
	m.tokenSeq++
	seq := m.tokenSeq
	override := m.tokenResp
	m.mu.Unlock()

	if override != nil {
		writeMock(w, *override)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, secret, ok := r.BasicAuth()
	if !ok || id != ClientID || secret != ClientSecret {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"unsupported_grant_type"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": fmt.Sprintf("token-%d", seq),
		"expires_in":   3600,
	})
}

func (m *MockUpstream) handleItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, ItemPrefix), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)

	m.mu.Lock()
	m.ItemCount++
	m.LastAuthHeader = r.Header.Get("Authorization")
	if err == nil {
		m.ItemRequests = append(m.ItemRequests, id)
	}
	resp, exists := m.items[id]
	m.mu.Unlock()

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"missing bearer token"}`))
		return
	}
	if !exists {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"item not found"}`))
		return
	}

	writeMock(w, resp)
}

func writeMock(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// ItemJSON renders a single item body.
func ItemJSON(id int64, number, name string, price float64) string {
	return fmt.Sprintf(`{"id":%d,"itemNumber":%q,"name":%q,"description":"","price":%v,"itemType":{"name":"Item"}}`,
		id, number, name, price)
}

// NewRateLimitedResponse creates a 429 response with a Retry-After hint.
func NewRateLimitedResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"too many requests"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
