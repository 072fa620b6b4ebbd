// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	TelegramChatID   int64
	TelegramAdminID  int64
	JellyfinBaseURL  string
	JellyfinAPIKey   string
	YouTubeAPIKey    string

	EpisodeWindow    time.Duration
	SeasonWindow     time.Duration
	NotificationGap  time.Duration
	MessagesPerMin   int
	MaxNotifiedItems int
	PollInterval     time.Duration

	ListenAddr   string
	ParseMode    string
	DatabasePath string
	LogLevel     string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	chatID, err := requiredInt64("TELEGRAM_CHAT_ID")
	if err != nil {
		return nil, err
	}

	baseURL := os.Getenv("JELLYFIN_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("JELLYFIN_BASE_URL is required")
	}

	apiKey := os.Getenv("JELLYFIN_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("JELLYFIN_API_KEY is required")
	}

	adminID, err := optionalInt64("TELEGRAM_ADMIN_ID", chatID)
	if err != nil {
		return nil, err
	}

	episodeDays, err := optionalInt("EPISODE_PREMIERED_WITHIN_X_DAYS", 3)
	if err != nil {
		return nil, err
	}
	seasonDays, err := optionalInt("SEASON_ADDED_WITHIN_X_DAYS", 3)
	if err != nil {
		return nil, err
	}
	pauseSecs, err := optionalInt("NOTIFICATION_PAUSE", 5)
	if err != nil {
		return nil, err
	}
	perMinute, err := optionalInt("MESSAGES_PER_MINUTE", 20)
	if err != nil {
		return nil, err
	}
	maxItems, err := optionalInt("MAX_NOTIFIED_ITEMS", 1000)
	if err != nil {
		return nil, err
	}
	pollMinutes, err := optionalInt("POLL_INTERVAL_MINUTES", 30)
	if err != nil {
		return nil, err
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":3535"
	}

	parseMode := os.Getenv("PARSE_MODE")
	if parseMode == "" {
		parseMode = "Markdown"
	}
	if parseMode != "Markdown" && parseMode != "HTML" {
		return nil, fmt.Errorf("PARSE_MODE must be Markdown or HTML, got %q", parseMode)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/jellysay.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		TelegramBotToken: token,
		TelegramChatID:   chatID,
		TelegramAdminID:  adminID,
		JellyfinBaseURL:  baseURL,
		JellyfinAPIKey:   apiKey,
		YouTubeAPIKey:    os.Getenv("YOUTUBE_API_KEY"),
		EpisodeWindow:    time.Duration(episodeDays) * 24 * time.Hour,
		SeasonWindow:     time.Duration(seasonDays) * 24 * time.Hour,
		NotificationGap:  time.Duration(pauseSecs) * time.Second,
		MessagesPerMin:   perMinute,
		MaxNotifiedItems: maxItems,
		PollInterval:     time.Duration(pollMinutes) * time.Minute,
		ListenAddr:       listenAddr,
		ParseMode:        parseMode,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
	}, nil
}

func requiredInt64(key string) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func optionalInt64(key string, def int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func optionalInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, v)
	}
	return v, nil
}
