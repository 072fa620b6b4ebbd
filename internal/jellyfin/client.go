// Package jellyfin is the read-only client for the media server: latest
// items, per-item detail, library listing and poster URLs.
package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Makar-aka/jellysay/internal/model"
)

const detailFields = "DateCreated,Overview,Genres,PremiereDate"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Library is a Jellyfin media folder the poller can be restricted to.
type Library struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Client queries a Jellyfin server using an API key credential.
type Client struct {
	baseURL string
	apiKey  string
	client  HTTPClient
	timeout time.Duration
}

// New creates a Client for the given server base URL and API key. A nil
// client falls back to http.DefaultClient.
func New(baseURL, apiKey string, client HTTPClient) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		timeout: 30 * time.Second,
	}
}

type itemsEnvelope struct {
	Items []apiItem `json:"Items"`
}

type apiItem struct {
	ID             string   `json:"Id"`
	Name           string   `json:"Name"`
	Type           string   `json:"Type"`
	Overview       string   `json:"Overview"`
	ProductionYear int      `json:"ProductionYear"`
	Genres         []string `json:"Genres"`
	DateCreated    string   `json:"DateCreated"`
	PremiereDate   string   `json:"PremiereDate"`
	SeriesName     string   `json:"SeriesName"`
	SeriesID       string   `json:"SeriesId"`
	SeasonID       string   `json:"SeasonId"`
	SeasonNumber   int      `json:"ParentIndexNumber"`
	EpisodeNumber  int      `json:"IndexNumber"`
}

func (a apiItem) toModel() model.MediaItem {
	return model.MediaItem{
		ID:             a.ID,
		Type:           model.ItemType(a.Type),
		Name:           a.Name,
		Overview:       a.Overview,
		ProductionYear: a.ProductionYear,
		Genres:         a.Genres,
		DateCreated:    a.DateCreated,
		PremiereDate:   a.PremiereDate,
		SeriesName:     a.SeriesName,
		SeriesID:       a.SeriesID,
		SeasonID:       a.SeasonID,
		SeasonNumber:   a.SeasonNumber,
		EpisodeNumber:  a.EpisodeNumber,
	}
}

// LatestItems lists the most recently added items, newest first. When
// libraryIDs is non-empty the listing is restricted to those media folders.
func (c *Client) LatestItems(ctx context.Context, libraryIDs []string, limit int) ([]model.MediaItem, error) {
	if len(libraryIDs) == 0 {
		return c.queryItems(ctx, "", limit)
	}

	var items []model.MediaItem
	for _, lib := range libraryIDs {
		part, err := c.queryItems(ctx, lib, limit)
		if err != nil {
			return nil, err
		}
		items = append(items, part...)
	}
	return items, nil
}

func (c *Client) queryItems(ctx context.Context, parentID string, limit int) ([]model.MediaItem, error) {
	q := url.Values{}
	q.Set("Recursive", "true")
	q.Set("SortBy", "DateCreated")
	q.Set("SortOrder", "Descending")
	q.Set("Limit", fmt.Sprint(limit))
	q.Set("Fields", detailFields)
	if parentID != "" {
		q.Set("ParentId", parentID)
	}

	var env itemsEnvelope
	if err := c.getJSON(ctx, "/emby/Items?"+q.Encode(), &env); err != nil {
		return nil, fmt.Errorf("latest items: %w", err)
	}

	items := make([]model.MediaItem, 0, len(env.Items))
	for _, a := range env.Items {
		items = append(items, a.toModel())
	}
	return items, nil
}

// ItemByID fetches the full detail record for a single item.
func (c *Client) ItemByID(ctx context.Context, id string) (*model.MediaItem, error) {
	q := url.Values{}
	q.Set("Recursive", "true")
	q.Set("Fields", detailFields)
	q.Set("Ids", id)

	var env itemsEnvelope
	if err := c.getJSON(ctx, "/emby/Items?"+q.Encode(), &env); err != nil {
		return nil, fmt.Errorf("item detail: %w", err)
	}
	if len(env.Items) == 0 {
		return nil, fmt.Errorf("item %s not found", id)
	}
	item := env.Items[0].toModel()
	return &item, nil
}

// MediaFolders lists the server's top-level libraries.
func (c *Client) MediaFolders(ctx context.Context) ([]Library, error) {
	var env struct {
		Items []Library `json:"Items"`
	}
	if err := c.getJSON(ctx, "/Library/MediaFolders", &env); err != nil {
		return nil, fmt.Errorf("media folders: %w", err)
	}
	return env.Items, nil
}

// PosterURL returns the primary-image URL for an item. Resolution and
// download happen in the delivery layer.
func (c *Client) PosterURL(itemID string) string {
	return fmt.Sprintf("%s/Items/%s/Images/Primary?maxWidth=600&quality=90&X-Emby-Token=%s",
		c.baseURL, itemID, c.apiKey)
}

// getJSON performs a GET with a bounded timeout and a small retry budget for
// transient failures (connection errors, 429, 5xx).
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Emby-Token", c.apiKey)

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

		body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read body: %w", err))
		}
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
