// Package eligibility decides whether an observed media item is new enough
// to announce.
package eligibility

import (
	"fmt"
	"time"

	"github.com/Makar-aka/jellysay/internal/model"
)

// Jellyfin emits timestamps in a few ISO-8601 shapes: with or without the
// 7-digit fractional seconds, with or without the trailing Z.
var timeLayouts = []string{
	"2006-01-02T15:04:05.0000000Z",
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseItemTime parses a Jellyfin item timestamp, trying each known variant.
func ParseItemTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Filter checks item recency against a configurable window.
type Filter struct {
	now func() time.Time
}

// New creates a Filter using the wall clock.
func New() *Filter {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Filter with an injected clock (useful for testing).
func NewWithClock(now func() time.Time) *Filter {
	return &Filter{now: now}
}

// Eligible reports whether the item's premiere/creation timestamp falls
// within the window. The bound is closed: an item aged exactly window is
// still eligible. A missing or unparseable timestamp is not eligible.
func (f *Filter) Eligible(item model.MediaItem, window time.Duration) bool {
	ts := item.DateCreated
	if item.Type == model.TypeEpisode && item.PremiereDate != "" {
		ts = item.PremiereDate
	}
	return f.withinWindow(ts, window)
}

// SeasonRecentlyAdded reports whether a season's creation timestamp falls
// within the "season added" window. Used to suppress per-episode
// notifications right after a whole season was bulk-imported: the season
// announcement already covers them.
func (f *Filter) SeasonRecentlyAdded(seasonCreated string, window time.Duration) bool {
	return f.withinWindow(seasonCreated, window)
}

func (f *Filter) withinWindow(ts string, window time.Duration) bool {
	if ts == "" {
		return false
	}
	t, err := ParseItemTime(ts)
	if err != nil {
		return false
	}
	return f.now().UTC().Sub(t) <= window
}
