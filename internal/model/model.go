// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ItemType identifies the kind of a Jellyfin media item.
type ItemType string

// Supported item types.
const (
	TypeMovie   ItemType = "Movie"
	TypeSeries  ItemType = "Series"
	TypeSeason  ItemType = "Season"
	TypeEpisode ItemType = "Episode"
	TypeVideo   ItemType = "Video"
)

// Supported reports whether t is an item type we announce.
func Supported(t ItemType) bool {
	switch t {
	case TypeMovie, TypeSeries, TypeSeason, TypeEpisode, TypeVideo:
		return true
	}
	return false
}

// MediaItem is a candidate media object observed on the Jellyfin server,
// either pushed by the webhook plugin or pulled by the poller. It is
// ephemeral; only its derived dedup key is ever persisted.
type MediaItem struct {
	ID             string
	Type           ItemType
	Name           string
	Overview       string
	ProductionYear int
	Genres         []string
	DateCreated    string
	PremiereDate   string

	// Episode-only fields.
	SeriesName    string
	SeasonNumber  int
	EpisodeNumber int
	SeriesID      string
	SeasonID      string
}

// Key derives the deterministic dedup key for the item. Two observations of
// the same logical item always produce the same key regardless of which
// optional fields were present.
func (m MediaItem) Key() string {
	if m.Type == TypeEpisode {
		return EpisodeKey(m.SeriesName, m.SeasonNumber, m.EpisodeNumber)
	}
	return fmt.Sprintf("%s:%s:%d", m.Type, strings.TrimSpace(m.Name), m.ProductionYear)
}

// DisplayName returns a human-readable identity for listings and logs.
func (m MediaItem) DisplayName() string {
	if m.Type == TypeEpisode {
		return fmt.Sprintf("%s S%02dE%02d", m.SeriesName, m.SeasonNumber, m.EpisodeNumber)
	}
	if m.ProductionYear > 0 {
		return fmt.Sprintf("%s (%d)", m.Name, m.ProductionYear)
	}
	return m.Name
}

// EpisodeKey derives the dedup key for a single episode of a series season.
func EpisodeKey(seriesName string, season, episode int) string {
	return fmt.Sprintf("%s:%s:S%02dE%02d", TypeEpisode, strings.TrimSpace(seriesName), season, episode)
}

// EpisodeGroup batches the episodes of one series season that were observed
// in a single cycle, rendered as one outgoing message. Episodes holds the
// ascending deduplicated episode numbers; Sample carries shared metadata
// (overview, genres, year, poster) from one member of the group.
type EpisodeGroup struct {
	SeriesName   string
	SeasonNumber int
	Episodes     []int
	Sample       MediaItem
}

// Keys returns the per-episode dedup keys committed after a successful send.
func (g EpisodeGroup) Keys() []string {
	keys := make([]string, 0, len(g.Episodes))
	for _, ep := range g.Episodes {
		keys = append(keys, EpisodeKey(g.SeriesName, g.SeasonNumber, ep))
	}
	return keys
}

// NotifiedItem records an announcement that was already delivered.
type NotifiedItem struct {
	Key         string
	DisplayName string
	ItemType    string
	SentAt      time.Time
}
