package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Makar-aka/jellysay/internal/bot"
	"github.com/Makar-aka/jellysay/internal/config"
	"github.com/Makar-aka/jellysay/internal/eligibility"
	"github.com/Makar-aka/jellysay/internal/jellyfin"
	"github.com/Makar-aka/jellysay/internal/message"
	"github.com/Makar-aka/jellysay/internal/notifier"
	"github.com/Makar-aka/jellysay/internal/scheduler"
	"github.com/Makar-aka/jellysay/internal/storage"
	"github.com/Makar-aka/jellysay/internal/telegram"
	"github.com/Makar-aka/jellysay/internal/throttle"
	"github.com/Makar-aka/jellysay/internal/webhook"
	"github.com/Makar-aka/jellysay/internal/youtube"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	jf := jellyfin.New(cfg.JellyfinBaseURL, cfg.JellyfinAPIKey, nil)
	yt := youtube.New(cfg.YouTubeAPIKey, nil)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Error("create telegram api", "error", err)
		os.Exit(1)
	}

	th := throttle.New(cfg.NotificationGap, cfg.MessagesPerMin)
	sender := telegram.NewSender(api, cfg.TelegramChatID, cfg.ParseMode, th, nil, log)

	composer := message.NewComposer(message.ParseMode(cfg.ParseMode))
	n := notifier.New(store, eligibility.New(), composer, sender, yt, jf, log, notifier.Options{
		EpisodeWindow: cfg.EpisodeWindow,
		SeasonWindow:  cfg.SeasonWindow,
		MaxEntries:    cfg.MaxNotifiedItems,
	})

	sched := scheduler.New(jf, n, store, log, cfg.PollInterval)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           webhook.NewServer(n, jf, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info("webhook listener starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("webhook listener", "error", err)
			cancel()
		}
	}()

	go sched.Run(ctx)

	log.Info("jellysay started", "chat_id", cfg.TelegramChatID)

	b := bot.NewWithAPI(api, store, sched, jf, cfg.TelegramAdminID, log)
	b.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("webhook shutdown", "error", err)
	}

	log.Info("jellysay stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
