// Package notifier ties the pipeline together: it filters candidate items
// against the dedup store and the eligibility window, groups episodes,
// composes messages and commits dedup keys after confirmed delivery.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/Makar-aka/jellysay/internal/eligibility"
	"github.com/Makar-aka/jellysay/internal/message"
	"github.com/Makar-aka/jellysay/internal/model"
	"github.com/Makar-aka/jellysay/internal/storage"
)

// Sender delivers a composed notification. It reports success only when the
// message (or a fallback form of it) reached the chat.
type Sender interface {
	Send(ctx context.Context, posterURL, text string) bool
}

// TrailerFinder resolves an optional trailer link for a title.
type TrailerFinder interface {
	TrailerURL(ctx context.Context, title string, year int) (string, error)
}

// MediaSource is the subset of the Jellyfin client the notifier needs:
// poster resolution and season detail lookups for suppression checks.
type MediaSource interface {
	PosterURL(itemID string) string
	ItemByID(ctx context.Context, id string) (*model.MediaItem, error)
}

// Outcome classifies the result of processing one webhook candidate.
type Outcome string

// Webhook processing outcomes.
const (
	OutcomeSent            Outcome = "sent"
	OutcomeAlreadyNotified Outcome = "already notified"
	OutcomeNotEligible     Outcome = "not eligible"
	OutcomeSuppressed      Outcome = "suppressed by recent season"
	OutcomeUnsupported     Outcome = "unsupported item type"
	OutcomeFailed          Outcome = "delivery failed"
)

// Report summarizes one orchestration cycle.
type Report struct {
	Processed int
	Sent      int
	Skipped   int
}

// Options carries the tunable windows and dedup capacity.
type Options struct {
	EpisodeWindow time.Duration
	SeasonWindow  time.Duration
	MaxEntries    int
}

// Notifier runs the per-cycle notification pipeline.
type Notifier struct {
	store    storage.Storage
	filter   *eligibility.Filter
	composer *message.Composer
	sender   Sender
	trailers TrailerFinder
	media    MediaSource
	log      *slog.Logger
	opts     Options
}

// New creates a Notifier.
func New(store storage.Storage, filter *eligibility.Filter, composer *message.Composer,
	sender Sender, trailers TrailerFinder, media MediaSource, log *slog.Logger, opts Options) *Notifier {
	return &Notifier{
		store:    store,
		filter:   filter,
		composer: composer,
		sender:   sender,
		trailers: trailers,
		media:    media,
		log:      log,
		opts:     opts,
	}
}

// Process runs one poll-driven cycle over a batch of candidates: dedup and
// eligibility filtering, episode grouping, composing, throttled sending and
// dedup commits. A failure on one candidate never aborts the rest.
func (n *Notifier) Process(ctx context.Context, items []model.MediaItem) Report {
	var report Report
	var episodes []model.MediaItem

	for _, item := range items {
		if ctx.Err() != nil {
			return report
		}
		report.Processed++

		if !model.Supported(item.Type) {
			report.Skipped++
			continue
		}
		if n.alreadyNotified(ctx, item.Key()) {
			report.Skipped++
			continue
		}
		if !n.filter.Eligible(item, n.opts.EpisodeWindow) {
			report.Skipped++
			continue
		}

		if item.Type == model.TypeEpisode {
			episodes = append(episodes, item)
			continue
		}

		if n.sendItem(ctx, item) {
			report.Sent++
		} else {
			report.Skipped++
		}
	}

	for _, g := range GroupEpisodes(episodes) {
		if ctx.Err() != nil {
			return report
		}
		if n.sendGroup(ctx, g) {
			report.Sent++
		} else {
			report.Skipped++
		}
	}

	return report
}

// ProcessWebhook handles a single webhook-pushed candidate. Unlike the poll
// path it also applies the season-recency suppression rule for episodes.
func (n *Notifier) ProcessWebhook(ctx context.Context, item model.MediaItem) Outcome {
	if !model.Supported(item.Type) {
		return OutcomeUnsupported
	}
	if n.alreadyNotified(ctx, item.Key()) {
		return OutcomeAlreadyNotified
	}
	if !n.filter.Eligible(item, n.opts.EpisodeWindow) {
		return OutcomeNotEligible
	}
	if item.Type == model.TypeEpisode && n.seasonSuppressed(ctx, item) {
		return OutcomeSuppressed
	}

	if n.sendItem(ctx, item) {
		return OutcomeSent
	}
	return OutcomeFailed
}

// alreadyNotified fails open: a store error counts as "not yet notified" so
// a transient outage cannot permanently block announcements.
func (n *Notifier) alreadyNotified(ctx context.Context, key string) bool {
	notified, err := n.store.IsNotified(ctx, key)
	if err != nil {
		n.log.Error("dedup check failed, assuming not notified", "key", key, "error", err)
		return false
	}
	return notified
}

// seasonSuppressed checks whether the episode's parent season was itself
// added recently; the season announcement then covers the episode. The check
// consults only the season's creation time, not whether the season
// notification actually went out.
func (n *Notifier) seasonSuppressed(ctx context.Context, item model.MediaItem) bool {
	if item.SeasonID == "" || n.media == nil {
		return false
	}
	season, err := n.media.ItemByID(ctx, item.SeasonID)
	if err != nil {
		n.log.Warn("season lookup failed, not suppressing", "season_id", item.SeasonID, "error", err)
		return false
	}
	return n.filter.SeasonRecentlyAdded(season.DateCreated, n.opts.SeasonWindow)
}

func (n *Notifier) sendItem(ctx context.Context, item model.MediaItem) bool {
	trailerURL := n.lookupTrailer(ctx, item.Name, item.ProductionYear, item)
	notif := n.composer.ComposeItem(item, trailerURL)

	keys := []model.NotifiedItem{{
		Key:         item.Key(),
		DisplayName: item.DisplayName(),
		ItemType:    string(item.Type),
	}}
	return n.deliver(ctx, notif, keys)
}

func (n *Notifier) sendGroup(ctx context.Context, g model.EpisodeGroup) bool {
	trailerURL := n.lookupTrailer(ctx, g.SeriesName, g.Sample.ProductionYear, g.Sample)
	notif := n.composer.ComposeGroup(g, trailerURL)

	keys := make([]model.NotifiedItem, 0, len(g.Episodes))
	for _, key := range g.Keys() {
		keys = append(keys, model.NotifiedItem{
			Key:         key,
			DisplayName: g.SeriesName,
			ItemType:    string(model.TypeEpisode),
		})
	}
	return n.deliver(ctx, notif, keys)
}

// deliver sends one composed message and, only on confirmed delivery,
// commits the dedup keys. An uncommitted item is retried next cycle.
func (n *Notifier) deliver(ctx context.Context, notif message.Notification, keys []model.NotifiedItem) bool {
	posterURL := ""
	if notif.PosterItemID != "" && n.media != nil {
		posterURL = n.media.PosterURL(notif.PosterItemID)
	}

	if !n.sender.Send(ctx, posterURL, notif.Text) {
		n.log.Error("delivery failed, leaving uncommitted", "keys", len(keys))
		return false
	}

	now := time.Now().UTC()
	for _, item := range keys {
		item.SentAt = now
		if err := n.store.MarkNotified(ctx, item); err != nil {
			n.log.Error("commit dedup key", "key", item.Key, "error", err)
			continue
		}
		if err := n.store.EvictOldest(ctx, n.opts.MaxEntries); err != nil {
			n.log.Error("evict oldest", "error", err)
		}
	}
	return true
}

// lookupTrailer resolves a trailer link for episodes and groups using the
// series name. Lookup failures are logged and ignored; absence is silent.
func (n *Notifier) lookupTrailer(ctx context.Context, title string, year int, sample model.MediaItem) string {
	if n.trailers == nil {
		return ""
	}
	if sample.Type == model.TypeEpisode && sample.SeriesName != "" {
		title = sample.SeriesName
	}
	url, err := n.trailers.TrailerURL(ctx, title, year)
	if err != nil {
		n.log.Warn("trailer lookup failed", "title", title, "error", err)
		return ""
	}
	return url
}
