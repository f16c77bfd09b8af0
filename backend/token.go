package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

/* Bearer tokens for the content/user store
 * The store rotates tokens; the client asks a TokenSource on every request
 * and the source decides when to refresh
 */

// TokenSource supplies a valid bearer token for the backend store
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for non-expiring tokens
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("static token is empty")
	}
	return string(t), nil
}

// refreshSkew renews tokens this long before their reported expiry
const refreshSkew = time.Minute

/* RefreshingTokenSource exchanges an API key for short-lived bearer tokens
 * and caches them until close to expiry. Safe for concurrent use.
 */
type RefreshingTokenSource struct {
	authURL    string
	apiKey     string
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

// NewRefreshingTokenSource creates a source that POSTs the API key to
// authURL and expects {"token": "...", "expires_in": seconds}
func NewRefreshingTokenSource(authURL, apiKey string, timeout time.Duration) *RefreshingTokenSource {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RefreshingTokenSource{
		authURL:    authURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Token returns the cached token, refreshing it when near expiry
func (s *RefreshingTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(refreshSkew).Before(s.expiresAt) {
		return s.token, nil
	}

	token, expiresIn, err := s.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("refreshing backend token: %w", err)
	}

	s.token = token
	s.expiresAt = s.now().Add(expiresIn)
	return s.token, nil
}

func (s *RefreshingTokenSource) refresh(ctx context.Context) (string, time.Duration, error) {
	payload, err := json.Marshal(map[string]string{"key": s.apiKey})
	if err != nil {
		return "", 0, fmt.Errorf("marshaling auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("building auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("reading auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("backend auth: status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", 0, fmt.Errorf("decoding auth response: %w", err)
	}
	if parsed.Token == "" {
		return "", 0, fmt.Errorf("backend auth returned an empty token")
	}
	if parsed.ExpiresIn <= 0 {
		parsed.ExpiresIn = 900
	}

	return parsed.Token, time.Duration(parsed.ExpiresIn) * time.Second, nil
}
