// Package youtube resolves trailer links through the YouTube Data API.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
)

const searchURL = "https://www.googleapis.com/youtube/v3/search"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client searches YouTube for trailers. A client with an empty API key is
// valid and always reports no trailer, which disables the feature silently.
type Client struct {
	apiKey  string
	client  HTTPClient
	timeout time.Duration
}

// New creates a Client. An empty apiKey disables lookups; a nil client
// falls back to http.DefaultClient.
func New(apiKey string, client HTTPClient) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		apiKey:  apiKey,
		client:  client,
		timeout: 15 * time.Second,
	}
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

// TrailerURL searches for a trailer by title and year. It returns an empty
// string when the feature is disabled or no result was found.
func (c *Client) TrailerURL(ctx context.Context, title string, year int) (string, error) {
	if !c.Enabled() || title == "" {
		return "", nil
	}

	query := title + " trailer"
	if year > 0 {
		query = fmt.Sprintf("%s %d trailer", title, year)
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", "1")
	q.Set("q", query)
	q.Set("key", c.apiKey)

	var res searchResponse
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, searchURL+"?"+q.Encode(), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("http get: %w", err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read body: %w", err))
		}
		if err := json.Unmarshal(body, &res); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("trailer search: %w", err)
	}

	if len(res.Items) == 0 || res.Items[0].ID.VideoID == "" {
		return "", nil
	}
	return "https://www.youtube.com/watch?v=" + res.Items[0].ID.VideoID, nil
}
