// Package telegram delivers composed notifications to the configured chat.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Makar-aka/jellysay/internal/throttle"
)

// API is the subset of the bot API used for delivery.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// HTTPClient is the interface for downloading poster images.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sender pushes notifications to a single destination chat, pacing every
// send through the shared throttler.
type Sender struct {
	api      API
	chatID   int64
	mode     string
	throttle *throttle.Throttler
	http     HTTPClient
	log      *slog.Logger
	timeout  time.Duration
}

// NewSender creates a Sender for the given chat and parse mode. A nil
// httpClient falls back to http.DefaultClient.
func NewSender(api API, chatID int64, parseMode string, th *throttle.Throttler, httpClient HTTPClient, log *slog.Logger) *Sender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Sender{
		api:      api,
		chatID:   chatID,
		mode:     parseMode,
		throttle: th,
		http:     httpClient,
		log:      log,
		timeout:  30 * time.Second,
	}
}

// Send delivers one notification. When posterURL is non-empty the poster is
// downloaded and sent as a photo with the text as caption; on poster or
// photo failure it falls back to a plain text message. Returns false only
// when every attempted fallback failed too.
func (s *Sender) Send(ctx context.Context, posterURL, text string) bool {
	if err := s.throttle.Acquire(ctx); err != nil {
		s.log.Error("throttle wait", "error", err)
		return false
	}

	if posterURL != "" {
		poster, err := s.fetchPoster(ctx, posterURL)
		if err != nil {
			s.log.Warn("poster fetch failed, sending text only", "error", err)
			return s.sendText(text)
		}

		photo := tgbotapi.NewPhoto(s.chatID, tgbotapi.FileBytes{Name: "poster.jpg", Bytes: poster})
		photo.Caption = text
		photo.ParseMode = s.mode
		if _, err := s.api.Send(photo); err != nil {
			s.log.Error("send photo failed, sending text only", "error", err)
			return s.sendText(text)
		}
		return true
	}

	return s.sendText(text)
}

func (s *Sender) sendText(text string) bool {
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = s.mode
	msg.DisableWebPagePreview = true
	if _, err := s.api.Send(msg); err != nil {
		s.log.Error("send message", "chat_id", s.chatID, "error", err)
		return false
	}
	return true
}

func (s *Sender) fetchPoster(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
