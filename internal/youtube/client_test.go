package youtube

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/h2non/gock"
)

func newTestClient(t *testing.T, apiKey string) *Client {
	t.Helper()
	hc := &http.Client{}
	gock.InterceptClient(hc)
	t.Cleanup(gock.Off)
	return New(apiKey, hc)
}

func TestTrailerURL(t *testing.T) {
	c := newTestClient(t, "yt-key")

	gock.New("https://www.googleapis.com").
		Get("/youtube/v3/search").
		MatchParam("q", "Inception 2010 trailer").
		MatchParam("key", "yt-key").
		Reply(200).
		JSON(map[string]any{
			"items": []map[string]any{
				{"id": map[string]any{"videoId": "YoHD9XEInc0"}},
			},
		})

	got, err := c.TrailerURL(context.Background(), "Inception", 2010)
	if err != nil {
		t.Fatalf("trailer url: %v", err)
	}
	if diff := cmp.Diff("https://www.youtube.com/watch?v=YoHD9XEInc0", got); diff != "" {
		t.Errorf("url mismatch (-want +got):\n%s", diff)
	}
}

func TestTrailerURLNoResults(t *testing.T) {
	c := newTestClient(t, "yt-key")

	gock.New("https://www.googleapis.com").
		Get("/youtube/v3/search").
		Reply(200).
		JSON(map[string]any{"items": []any{}})

	got, err := c.TrailerURL(context.Background(), "Obscure Film", 1931)
	if err != nil {
		t.Fatalf("trailer url: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty URL for no results, got %q", got)
	}
}

func TestTrailerURLDisabledWithoutKey(t *testing.T) {
	c := New("", http.DefaultClient)

	if c.Enabled() {
		t.Error("client without key must report disabled")
	}

	// No HTTP mock installed: a request would fail, so returning empty
	// proves the lookup was skipped entirely.
	got, err := c.TrailerURL(context.Background(), "Inception", 2010)
	if err != nil {
		t.Fatalf("trailer url: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty URL when disabled, got %q", got)
	}
}

func TestTrailerURLRetriesServerError(t *testing.T) {
	c := newTestClient(t, "yt-key")

	gock.New("https://www.googleapis.com").
		Get("/youtube/v3/search").
		Reply(503)
	gock.New("https://www.googleapis.com").
		Get("/youtube/v3/search").
		Reply(200).
		JSON(map[string]any{
			"items": []map[string]any{
				{"id": map[string]any{"videoId": "abc"}},
			},
		})

	got, err := c.TrailerURL(context.Background(), "Dune", 2021)
	if err != nil {
		t.Fatalf("trailer url after retry: %v", err)
	}
	if diff := cmp.Diff("https://www.youtube.com/watch?v=abc", got); diff != "" {
		t.Errorf("url mismatch (-want +got):\n%s", diff)
	}
}
