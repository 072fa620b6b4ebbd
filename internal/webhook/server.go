// Package webhook receives Jellyfin webhook-plugin pushes and turns them
// into notification candidates.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Makar-aka/jellysay/internal/model"
	"github.com/Makar-aka/jellysay/internal/notifier"
)

// Notifier processes a single webhook candidate.
type Notifier interface {
	ProcessWebhook(ctx context.Context, item model.MediaItem) notifier.Outcome
}

// ItemSource fetches full item detail to enrich sparse webhook payloads.
type ItemSource interface {
	ItemByID(ctx context.Context, id string) (*model.MediaItem, error)
}

// Payload is the Jellyfin webhook plugin JSON body. The plugin emits both
// numeric and zero-padded string variants of the season/episode numbers
// depending on template configuration; both are accepted.
type Payload struct {
	ItemType   string `json:"ItemType"`
	Name       string `json:"Name"`
	Year       int    `json:"Year"`
	ItemID     string `json:"ItemId"`
	Overview   string `json:"Overview"`
	SeriesName string `json:"SeriesName"`
	SeriesID   string `json:"SeriesId"`
	SeasonID   string `json:"SeasonId"`

	SeasonNumber    int    `json:"SeasonNumber"`
	EpisodeNumber   int    `json:"EpisodeNumber"`
	SeasonNumber00  string `json:"SeasonNumber00"`
	EpisodeNumber00 string `json:"EpisodeNumber00"`

	PremiereDate string `json:"PremiereDate"`
	DateCreated  string `json:"DateCreated"`
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Server is the inbound webhook listener.
type Server struct {
	notifier Notifier
	items    ItemSource
	log      *slog.Logger
}

// NewServer creates a Server. items may be nil, in which case payloads are
// processed without detail enrichment.
func NewServer(n Notifier, items ItemSource, log *slog.Logger) *Server {
	return &Server{notifier: n, items: items, log: log}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/webhook", s.handleWebhook)
	r.Get("/health", s.handleHealth)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var p Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "invalid JSON payload"})
		return
	}

	item, err := p.toItem()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: err.Error()})
		return
	}

	s.log.Info("webhook received", "type", item.Type, "name", item.DisplayName())

	item = s.enrich(r.Context(), item)

	outcome := s.notifier.ProcessWebhook(r.Context(), item)
	switch outcome {
	case notifier.OutcomeSent:
		writeJSON(w, http.StatusOK, response{Status: "ok", Message: "notification sent"})
	case notifier.OutcomeFailed:
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: string(outcome)})
	default:
		writeJSON(w, http.StatusOK, response{Status: "ok", Message: string(outcome)})
	}
}

// enrich replaces the sparse payload with the server's full detail record
// when possible. A failed lookup falls back to the payload as-is.
func (s *Server) enrich(ctx context.Context, item model.MediaItem) model.MediaItem {
	if s.items == nil || item.ID == "" {
		return item
	}
	detail, err := s.items.ItemByID(ctx, item.ID)
	if err != nil {
		s.log.Warn("item detail lookup failed, using payload", "item_id", item.ID, "error", err)
		return item
	}

	merged := *detail
	if merged.Name == "" {
		merged.Name = item.Name
	}
	if merged.SeriesName == "" {
		merged.SeriesName = item.SeriesName
	}
	if merged.SeasonNumber == 0 {
		merged.SeasonNumber = item.SeasonNumber
	}
	if merged.EpisodeNumber == 0 {
		merged.EpisodeNumber = item.EpisodeNumber
	}
	if merged.SeasonID == "" {
		merged.SeasonID = item.SeasonID
	}
	if merged.ProductionYear == 0 {
		merged.ProductionYear = item.ProductionYear
	}
	return merged
}

func (p Payload) toItem() (model.MediaItem, error) {
	itemType := model.ItemType(strings.TrimSpace(p.ItemType))
	if itemType == "" {
		return model.MediaItem{}, fmt.Errorf("ItemType is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return model.MediaItem{}, fmt.Errorf("Name is required")
	}

	season := p.SeasonNumber
	if season == 0 && p.SeasonNumber00 != "" {
		season, _ = strconv.Atoi(strings.TrimLeft(p.SeasonNumber00, "0 "))
	}
	episode := p.EpisodeNumber
	if episode == 0 && p.EpisodeNumber00 != "" {
		episode, _ = strconv.Atoi(strings.TrimLeft(p.EpisodeNumber00, "0 "))
	}

	if itemType == model.TypeEpisode && strings.TrimSpace(p.SeriesName) == "" {
		return model.MediaItem{}, fmt.Errorf("SeriesName is required for episodes")
	}

	return model.MediaItem{
		ID:             p.ItemID,
		Type:           itemType,
		Name:           strings.TrimSpace(p.Name),
		Overview:       p.Overview,
		ProductionYear: p.Year,
		SeriesName:     strings.TrimSpace(p.SeriesName),
		SeriesID:       p.SeriesID,
		SeasonID:       p.SeasonID,
		SeasonNumber:   season,
		EpisodeNumber:  episode,
		PremiereDate:   p.PremiereDate,
		DateCreated:    p.DateCreated,
	}, nil
}

func writeJSON(w http.ResponseWriter, code int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
