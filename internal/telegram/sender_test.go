package telegram

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Makar-aka/jellysay/internal/throttle"
)

type mockAPI struct {
	sent     []tgbotapi.Chattable
	failures int
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.failures > 0 {
		m.failures--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

type mockHTTP struct {
	body       string
	statusCode int
	err        error
}

func (m *mockHTTP) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestSender(api API, hc HTTPClient) *Sender {
	th := throttle.NewWithClock(0, 0, time.Now, noSleep)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSender(api, 42, "Markdown", th, hc, log)
}

func TestSendTextOnly(t *testing.T) {
	api := &mockAPI{}
	s := newTestSender(api, &mockHTTP{statusCode: 200})

	if !s.Send(context.Background(), "", "hello") {
		t.Fatal("expected text send to succeed")
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig, got %T", api.sent[0])
	}
	if msg.Text != "hello" || msg.ParseMode != "Markdown" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestSendPhotoWithCaption(t *testing.T) {
	api := &mockAPI{}
	s := newTestSender(api, &mockHTTP{statusCode: 200, body: "jpeg-bytes"})

	if !s.Send(context.Background(), "http://jf/poster.jpg", "caption text") {
		t.Fatal("expected photo send to succeed")
	}
	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("expected PhotoConfig, got %T", api.sent[0])
	}
	if photo.Caption != "caption text" {
		t.Errorf("caption = %q", photo.Caption)
	}
}

func TestSendFallsBackOnPosterFetchFailure(t *testing.T) {
	api := &mockAPI{}
	s := newTestSender(api, &mockHTTP{statusCode: 404})

	if !s.Send(context.Background(), "http://jf/poster.jpg", "caption") {
		t.Fatal("expected fallback text send to succeed")
	}
	if _, ok := api.sent[0].(tgbotapi.MessageConfig); !ok {
		t.Fatalf("expected text fallback, got %T", api.sent[0])
	}
}

func TestSendFallsBackOnPhotoSendFailure(t *testing.T) {
	api := &mockAPI{failures: 1}
	s := newTestSender(api, &mockHTTP{statusCode: 200, body: "jpeg"})

	if !s.Send(context.Background(), "http://jf/poster.jpg", "caption") {
		t.Fatal("expected fallback text send to succeed")
	}
	if _, ok := api.sent[0].(tgbotapi.MessageConfig); !ok {
		t.Fatalf("expected text fallback, got %T", api.sent[0])
	}
}

func TestSendFalseWhenAllFallbacksFail(t *testing.T) {
	api := &mockAPI{failures: 2}
	s := newTestSender(api, &mockHTTP{statusCode: 200, body: "jpeg"})

	if s.Send(context.Background(), "http://jf/poster.jpg", "caption") {
		t.Fatal("expected send to report failure when photo and text both fail")
	}
}
