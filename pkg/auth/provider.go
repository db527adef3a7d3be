// Package auth obtains and caches the upstream access token using the OAuth2
// client-credentials exchange.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// RefreshBuffer is subtracted from the token lifetime before reuse.
	RefreshBuffer = 60 * time.Second

	// DefaultLifetime applies when the token endpoint omits expires_in.
	DefaultLifetime = 86400 * time.Second
)

var tokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quote_token_refreshes_total",
	Help: "Total upstream token exchanges by result",
}, []string{"result"})

// Credential is an upstream access token and the time it stops being reused.
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

// Config holds the token exchange settings.
type Config struct {
	// TokenURL is the upstream token endpoint.
	TokenURL string

	// ClientID and ClientSecret are sent as HTTP Basic credentials.
	ClientID     string
	ClientSecret string

	// HTTPClient is used for the exchange (default: 30s timeout).
	HTTPClient *http.Client
}

// tokenResponse is the token endpoint payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   *int64 `json:"expires_in"`
}

// Provider caches one Credential and refreshes it when it is about to
// expire. Concurrent callers that need a refresh share a single exchange.
type Provider struct {
	cfg    Config
	mu     sync.RWMutex
	cred   *Credential
	group  singleflight.Group
	now    func() time.Time
	logger zerolog.Logger
}

// NewProvider creates a token provider.
func NewProvider(cfg Config, logger zerolog.Logger) (*Provider, error) {
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("token url is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client id and secret are required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Provider{
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}, nil
}

// SetClock replaces the time source (for testing).
func (p *Provider) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// Acquire returns the cached credential while it is still fresh, otherwise
// exchanges the client credentials for a new one.
func (p *Provider) Acquire(ctx context.Context) (Credential, error) {
	if cred, ok := p.cached(); ok {
		return cred, nil
	}

	v, err, shared := p.group.Do("token", func() (any, error) {
		// Another caller may have refreshed while we waited for the group.
		if cred, ok := p.cached(); ok {
			return cred, nil
		}
		return p.refresh(ctx)
	})
	if err != nil {
		return Credential{}, err
	}
	if shared {
		p.logger.Debug().Msg("Joined in-flight token refresh")
	}
	return v.(Credential), nil
}

// Invalidate drops the cached credential so the next Acquire re-authenticates.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cred = nil
}

func (p *Provider) cached() (Credential, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.cred == nil {
		return Credential{}, false
	}
	if !p.now().Before(p.cred.ExpiresAt.Add(-RefreshBuffer)) {
		return Credential{}, false
	}
	return *p.cred, true
}

func (p *Provider) refresh(ctx context.Context) (Credential, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, &AuthError{Message: "create token request", Err: err}
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		tokenRefreshesTotal.WithLabelValues("network_error").Inc()
		p.logger.Error().Err(err).Msg("Token exchange failed")
		return Credential{}, &AuthError{Message: "token exchange", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		tokenRefreshesTotal.WithLabelValues("network_error").Inc()
		return Credential{}, &AuthError{StatusCode: resp.StatusCode, Message: "read token response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		tokenRefreshesTotal.WithLabelValues("rejected").Inc()
		p.logger.Error().
			Int("status", resp.StatusCode).
			Msg("Token endpoint rejected client credentials")
		return Credential{}, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		tokenRefreshesTotal.WithLabelValues("invalid").Inc()
		return Credential{}, &AuthError{StatusCode: resp.StatusCode, Message: "decode token response", Err: err}
	}
	if tr.AccessToken == "" {
		tokenRefreshesTotal.WithLabelValues("invalid").Inc()
		return Credential{}, &AuthError{StatusCode: resp.StatusCode, Message: "token response has no access_token"}
	}

	lifetime := DefaultLifetime
	if tr.ExpiresIn != nil && *tr.ExpiresIn > 0 {
		lifetime = time.Duration(*tr.ExpiresIn) * time.Second
	}

	p.mu.Lock()
	cred := Credential{
		Value:     tr.AccessToken,
		ExpiresAt: p.now().Add(lifetime - RefreshBuffer),
	}
	p.cred = &cred
	p.mu.Unlock()

	tokenRefreshesTotal.WithLabelValues("ok").Inc()
	p.logger.Info().
		Time("expires_at", cred.ExpiresAt).
		Dur("lifetime", lifetime).
		Msg("Upstream token refreshed")

	return cred, nil
}
