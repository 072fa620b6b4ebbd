// Package message renders media items and episode groups into Telegram
// notification text. Composition is a pure function of the input metadata;
// poster download and delivery belong to the telegram package.
package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Makar-aka/jellysay/internal/model"
)

// ParseMode selects the Telegram markup dialect the composer escapes for.
type ParseMode string

// Supported parse modes.
const (
	ModeMarkdown ParseMode = "Markdown"
	ModeHTML     ParseMode = "HTML"
)

const genrePlaceholder = "—"

// Notification is a composed outgoing message. PosterItemID is the Jellyfin
// item whose primary image should accompany the text; empty means text-only.
type Notification struct {
	Text         string
	PosterItemID string
}

// Composer renders notifications in one configured parse mode. Escaping
// rules follow the mode and are never mixed.
type Composer struct {
	mode ParseMode
}

// NewComposer creates a Composer for the given parse mode.
func NewComposer(mode ParseMode) *Composer {
	return &Composer{mode: mode}
}

// Mode returns the configured parse mode.
func (c *Composer) Mode() ParseMode {
	return c.mode
}

// ComposeItem renders a single media item. trailerURL may be empty, in which
// case no trailer line is emitted.
func (c *Composer) ComposeItem(item model.MediaItem, trailerURL string) Notification {
	var b strings.Builder

	switch item.Type {
	case model.TypeMovie:
		c.label(&b, "🎬", "New movie")
	case model.TypeSeries:
		c.label(&b, "📺", "New series")
	case model.TypeSeason:
		c.label(&b, "📺", "New season")
	case model.TypeEpisode:
		c.label(&b, "📺", "New episode")
	default:
		c.label(&b, "🎞", "New video")
	}

	if item.Type == model.TypeEpisode {
		c.bold(&b, item.SeriesName)
		b.WriteString("\n")
		fmt.Fprintf(&b, "Season %d, Episode %02d\n", item.SeasonNumber, item.EpisodeNumber)
		if item.Name != "" {
			b.WriteString(c.escape(item.Name))
			b.WriteString("\n")
		}
	} else {
		title := item.Name
		if item.Type == model.TypeSeason && item.SeriesName != "" {
			title = item.SeriesName + " " + item.Name
		}
		c.bold(&b, title)
		if item.ProductionYear > 0 {
			fmt.Fprintf(&b, " (%d)", item.ProductionYear)
		}
		b.WriteString("\n")
	}

	c.details(&b, item.Genres, item.DateCreated, item.Overview, trailerURL)

	return Notification{Text: b.String(), PosterItemID: item.ID}
}

// ComposeGroup renders a batch of same-season episodes as one message with a
// comma-joined episode list.
func (c *Composer) ComposeGroup(g model.EpisodeGroup, trailerURL string) Notification {
	if len(g.Episodes) == 1 {
		item := g.Sample
		item.SeriesName = g.SeriesName
		item.SeasonNumber = g.SeasonNumber
		item.EpisodeNumber = g.Episodes[0]
		return c.ComposeItem(item, trailerURL)
	}

	var b strings.Builder
	c.label(&b, "📺", "New episodes")
	c.bold(&b, g.SeriesName)
	b.WriteString("\n")

	nums := make([]string, 0, len(g.Episodes))
	for _, ep := range g.Episodes {
		nums = append(nums, strconv.Itoa(ep))
	}
	fmt.Fprintf(&b, "Season %d, Episodes %s\n", g.SeasonNumber, strings.Join(nums, ","))

	s := g.Sample
	c.details(&b, s.Genres, s.DateCreated, s.Overview, trailerURL)

	return Notification{Text: b.String(), PosterItemID: g.Sample.ID}
}

func (c *Composer) details(b *strings.Builder, genres []string, created, overview, trailerURL string) {
	genreList := genrePlaceholder
	if len(genres) > 0 {
		genreList = c.escape(strings.Join(genres, ", "))
	}
	fmt.Fprintf(b, "Genres: %s\n", genreList)

	if d := datePortion(created); d != "" {
		fmt.Fprintf(b, "Added: %s\n", d)
	}

	if overview != "" {
		b.WriteString("\n")
		b.WriteString(c.escape(overview))
		b.WriteString("\n")
	}

	if trailerURL != "" {
		b.WriteString("\n")
		if c.mode == ModeHTML {
			fmt.Fprintf(b, "<a href=%q>Trailer</a>", trailerURL)
		} else {
			fmt.Fprintf(b, "[Trailer](%s)", trailerURL)
		}
		b.WriteString("\n")
	}
}

func (c *Composer) label(b *strings.Builder, emoji, text string) {
	b.WriteString(emoji)
	b.WriteString(" ")
	c.bold(b, text)
	b.WriteString("\n\n")
}

func (c *Composer) bold(b *strings.Builder, text string) {
	if c.mode == ModeHTML {
		b.WriteString("<b>")
		b.WriteString(c.escape(text))
		b.WriteString("</b>")
		return
	}
	b.WriteString("*")
	b.WriteString(c.escape(text))
	b.WriteString("*")
}

func (c *Composer) escape(s string) string {
	if c.mode == ModeHTML {
		return EscapeHTML(s)
	}
	return EscapeMarkdown(s)
}

// datePortion strips the time component from an ISO-8601 timestamp.
func datePortion(ts string) string {
	if ts == "" {
		return ""
	}
	return strings.SplitN(ts, "T", 2)[0]
}
