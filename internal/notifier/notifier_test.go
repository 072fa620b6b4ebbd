package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Makar-aka/jellysay/internal/eligibility"
	"github.com/Makar-aka/jellysay/internal/message"
	"github.com/Makar-aka/jellysay/internal/model"
	"github.com/Makar-aka/jellysay/internal/storage"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func recentTS(age time.Duration) string {
	return testNow.Add(-age).Format("2006-01-02T15:04:05Z")
}

type sentNotification struct {
	PosterURL string
	Text      string
}

type mockSender struct {
	sent     []sentNotification
	failures int
}

func (m *mockSender) Send(_ context.Context, posterURL, text string) bool {
	if m.failures > 0 {
		m.failures--
		return false
	}
	m.sent = append(m.sent, sentNotification{PosterURL: posterURL, Text: text})
	return true
}

type mockMedia struct {
	seasons map[string]model.MediaItem
}

func (m *mockMedia) PosterURL(itemID string) string {
	return "http://jf/Items/" + itemID + "/Images/Primary"
}

func (m *mockMedia) ItemByID(_ context.Context, id string) (*model.MediaItem, error) {
	if s, ok := m.seasons[id]; ok {
		return &s, nil
	}
	return nil, errors.New("not found")
}

type mockTrailers struct {
	urls map[string]string
}

func (m *mockTrailers) TrailerURL(_ context.Context, title string, _ int) (string, error) {
	return m.urls[title], nil
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestNotifier(t *testing.T, store storage.Storage, sender Sender, media MediaSource) *Notifier {
	t.Helper()
	filter := eligibility.NewWithClock(func() time.Time { return testNow })
	composer := message.NewComposer(message.ModeMarkdown)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := Options{
		EpisodeWindow: 72 * time.Hour,
		SeasonWindow:  72 * time.Hour,
		MaxEntries:    1000,
	}
	return New(store, filter, composer, sender, &mockTrailers{}, media, log, opts)
}

func TestProcessGroupsEpisodesIntoOneMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{}
	n := newTestNotifier(t, store, sender, &mockMedia{})

	var items []model.MediaItem
	for _, num := range []int{3, 4, 5} {
		items = append(items, model.MediaItem{
			ID:            fmt.Sprintf("ep-%d", num),
			Type:          model.TypeEpisode,
			SeriesName:    "X",
			SeasonNumber:  2,
			EpisodeNumber: num,
			PremiereDate:  recentTS(time.Hour),
		})
	}

	report := n.Process(ctx, items)

	if diff := cmp.Diff(Report{Processed: 3, Sent: 1}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Text, "Episodes 3,4,5") {
		t.Errorf("expected grouped episode list, got:\n%s", sender.sent[0].Text)
	}

	// Three individual dedup keys are committed.
	count, err := store.CountNotified(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if diff := cmp.Diff(3, count); diff != "" {
		t.Errorf("dedup entry count mismatch (-want +got):\n%s", diff)
	}
	for _, num := range []int{3, 4, 5} {
		notified, err := store.IsNotified(ctx, model.EpisodeKey("X", 2, num))
		if err != nil {
			t.Fatalf("is notified: %v", err)
		}
		if !notified {
			t.Errorf("expected episode %d to be committed", num)
		}
	}
}

func TestProcessPartialOverlapDoesNotRenotify(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{}
	n := newTestNotifier(t, store, sender, &mockMedia{})

	if err := store.MarkNotified(ctx, model.NotifiedItem{Key: model.EpisodeKey("X", 2, 5)}); err != nil {
		t.Fatalf("seed notified: %v", err)
	}

	items := []model.MediaItem{
		{Type: model.TypeEpisode, SeriesName: "X", SeasonNumber: 2, EpisodeNumber: 5, PremiereDate: recentTS(time.Hour)},
		{Type: model.TypeEpisode, SeriesName: "X", SeasonNumber: 2, EpisodeNumber: 6, PremiereDate: recentTS(time.Hour)},
	}
	report := n.Process(ctx, items)

	if report.Sent != 1 {
		t.Fatalf("expected 1 message, got %d", report.Sent)
	}
	text := sender.sent[0].Text
	if !strings.Contains(text, "Episode 06") {
		t.Errorf("expected only episode 6, got:\n%s", text)
	}
	if strings.Contains(text, "5") && strings.Contains(text, "Episodes") {
		t.Errorf("episode 5 must not be re-announced:\n%s", text)
	}
}

func TestProcessMovieCommitsAfterSend(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{}
	n := newTestNotifier(t, store, sender, &mockMedia{})

	item := model.MediaItem{
		ID:             "m-1",
		Type:           model.TypeMovie,
		Name:           "Dune",
		ProductionYear: 2021,
		DateCreated:    recentTS(2 * time.Hour),
	}
	report := n.Process(ctx, []model.MediaItem{item})

	if diff := cmp.Diff(Report{Processed: 1, Sent: 1}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if sender.sent[0].PosterURL == "" {
		t.Error("expected poster URL to be resolved for the item")
	}

	notified, err := store.IsNotified(ctx, "Movie:Dune:2021")
	if err != nil {
		t.Fatalf("is notified: %v", err)
	}
	if !notified {
		t.Error("expected movie key to be committed")
	}
}

func TestProcessSendFailureLeavesUncommitted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{failures: 1}
	n := newTestNotifier(t, store, sender, &mockMedia{})

	item := model.MediaItem{
		Type: model.TypeMovie, Name: "Dune", ProductionYear: 2021,
		DateCreated: recentTS(time.Hour),
	}

	report := n.Process(ctx, []model.MediaItem{item})
	if report.Sent != 0 {
		t.Fatalf("expected no sends on failure, got %d", report.Sent)
	}
	notified, err := store.IsNotified(ctx, "Movie:Dune:2021")
	if err != nil {
		t.Fatalf("is notified: %v", err)
	}
	if notified {
		t.Fatal("failed delivery must not commit the dedup key")
	}

	// The next cycle retries and succeeds.
	report = n.Process(ctx, []model.MediaItem{item})
	if report.Sent != 1 {
		t.Fatalf("expected retry to send, got %d", report.Sent)
	}
}

func TestProcessSkipsIneligibleAndUnsupported(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{}
	n := newTestNotifier(t, store, sender, &mockMedia{})

	items := []model.MediaItem{
		{Type: model.TypeMovie, Name: "Old", DateCreated: recentTS(100 * 24 * time.Hour)},
		{Type: model.ItemType("Audio"), Name: "Podcast", DateCreated: recentTS(time.Hour)},
		{Type: model.TypeMovie, Name: "NoDate"},
	}
	report := n.Process(ctx, items)

	if diff := cmp.Diff(Report{Processed: 3, Skipped: 3}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no sends, got %d", len(sender.sent))
	}
}

func TestProcessWebhookIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{}
	n := newTestNotifier(t, store, sender, &mockMedia{})

	item := model.MediaItem{
		ID: "m-9", Type: model.TypeMovie, Name: "Inception", ProductionYear: 2010,
		DateCreated: recentTS(time.Hour),
	}

	if got := n.ProcessWebhook(ctx, item); got != OutcomeSent {
		t.Fatalf("first webhook outcome = %q, want %q", got, OutcomeSent)
	}
	if got := n.ProcessWebhook(ctx, item); got != OutcomeAlreadyNotified {
		t.Fatalf("second webhook outcome = %q, want %q", got, OutcomeAlreadyNotified)
	}
	if len(sender.sent) != 1 {
		t.Errorf("expected exactly one delivery, got %d", len(sender.sent))
	}
}

func TestProcessWebhookSeasonSuppression(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{}
	media := &mockMedia{seasons: map[string]model.MediaItem{
		"season-2": {
			ID: "season-2", Type: model.TypeSeason,
			DateCreated: recentTS(time.Hour),
		},
	}}
	n := newTestNotifier(t, store, sender, media)

	ep := model.MediaItem{
		ID: "ep-1", Type: model.TypeEpisode,
		SeriesName: "X", SeasonNumber: 2, EpisodeNumber: 1, SeasonID: "season-2",
		PremiereDate: recentTS(time.Hour),
	}

	if got := n.ProcessWebhook(ctx, ep); got != OutcomeSuppressed {
		t.Fatalf("outcome = %q, want %q", got, OutcomeSuppressed)
	}
	if len(sender.sent) != 0 {
		t.Error("suppressed episode must not be delivered")
	}

	// An old season does not suppress.
	media.seasons["season-2"] = model.MediaItem{
		ID: "season-2", Type: model.TypeSeason,
		DateCreated: recentTS(10 * 24 * time.Hour),
	}
	if got := n.ProcessWebhook(ctx, ep); got != OutcomeSent {
		t.Fatalf("outcome = %q, want %q", got, OutcomeSent)
	}
}

func TestProcessWebhookSeasonLookupFailureDoesNotSuppress(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{}
	n := newTestNotifier(t, store, sender, &mockMedia{})

	ep := model.MediaItem{
		Type: model.TypeEpisode, SeriesName: "X", SeasonNumber: 1, EpisodeNumber: 2,
		SeasonID: "missing-season", PremiereDate: recentTS(time.Hour),
	}
	if got := n.ProcessWebhook(ctx, ep); got != OutcomeSent {
		t.Fatalf("outcome = %q, want %q", got, OutcomeSent)
	}
}

func TestProcessWebhookUnsupportedType(t *testing.T) {
	ctx := context.Background()
	n := newTestNotifier(t, newTestStore(t), &mockSender{}, &mockMedia{})

	if got := n.ProcessWebhook(ctx, model.MediaItem{Type: "Playlist", Name: "Mix"}); got != OutcomeUnsupported {
		t.Fatalf("outcome = %q, want %q", got, OutcomeUnsupported)
	}
}

// failingStore wraps a working store but errors on existence checks.
type failingStore struct {
	storage.Storage
}

func (f *failingStore) IsNotified(context.Context, string) (bool, error) {
	return false, errors.New("disk gone")
}

func TestDedupCheckFailsOpen(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Storage: newTestStore(t)}
	sender := &mockSender{}
	n := newTestNotifier(t, store, sender, &mockMedia{})

	item := model.MediaItem{
		Type: model.TypeMovie, Name: "Dune", ProductionYear: 2021,
		DateCreated: recentTS(time.Hour),
	}
	report := n.Process(ctx, []model.MediaItem{item})
	if report.Sent != 1 {
		t.Fatalf("store outage must not block notification, sent = %d", report.Sent)
	}
}

func TestTrailerLinkIncludedWhenFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sender := &mockSender{}
	filter := eligibility.NewWithClock(func() time.Time { return testNow })
	composer := message.NewComposer(message.ModeMarkdown)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	trailers := &mockTrailers{urls: map[string]string{"Dune": "https://www.youtube.com/watch?v=n9xhJrPXop4"}}
	n := New(store, filter, composer, sender, trailers, &mockMedia{}, log, Options{
		EpisodeWindow: 72 * time.Hour, SeasonWindow: 72 * time.Hour, MaxEntries: 100,
	})

	item := model.MediaItem{
		Type: model.TypeMovie, Name: "Dune", ProductionYear: 2021,
		DateCreated: recentTS(time.Hour),
	}
	n.Process(ctx, []model.MediaItem{item})

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Text, "https://www.youtube.com/watch?v=n9xhJrPXop4") {
		t.Errorf("expected trailer link in message:\n%s", sender.sent[0].Text)
	}
}
