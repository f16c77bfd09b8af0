package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

/* REST client for the headless content/user store
 * The engine depends only on find-by-filter, create and partial update;
 * collections are addressed by name under /items/{collection}
 */

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a backend store client
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Find returns the documents in collection matching all filter fields exactly
func (c *Client) Find(ctx context.Context, collection string, filter map[string]string) ([]map[string]any, error) {
	query := url.Values{}
	for field, value := range filter {
		query.Set(fmt.Sprintf("filter[%s]", field), value)
	}

	endpoint := fmt.Sprintf("%s/items/%s", c.baseURL, url.PathEscape(collection))
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding find response: %w", err)
	}
	return parsed.Data, nil
}

// Create inserts a document and returns the stored representation
func (c *Client) Create(ctx context.Context, collection string, doc map[string]any) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/items/%s", c.baseURL, url.PathEscape(collection))

	body, err := c.do(ctx, http.MethodPost, endpoint, doc)
	if err != nil {
		return nil, err
	}
	return parseItem(body)
}

// Update applies a partial update to one document and returns the result
func (c *Client) Update(ctx context.Context, collection, id string, patch map[string]any) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/items/%s/%s", c.baseURL, url.PathEscape(collection), url.PathEscape(id))

	body, err := c.do(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return nil, err
	}
	return parseItem(body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building backend request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting backend token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Status code stays in the message for the error classifier
		return nil, fmt.Errorf("backend %s %s: status %d: %s", method, endpoint, resp.StatusCode, truncate(body, 256))
	}

	return body, nil
}

func parseItem(body []byte) (map[string]any, error) {
	var parsed struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding item response: %w", err)
	}
	return parsed.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
