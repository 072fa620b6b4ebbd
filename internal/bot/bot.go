package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Makar-aka/jellysay/internal/jellyfin"
	"github.com/Makar-aka/jellysay/internal/notifier"
	"github.com/Makar-aka/jellysay/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Checker triggers an immediate poll cycle.
type Checker interface {
	CheckNow(ctx context.Context) notifier.Report
}

// LibraryLister lists the media server's libraries for the picker.
type LibraryLister interface {
	MediaFolders(ctx context.Context) ([]jellyfin.Library, error)
}

// Bot is the operator command shell. Every command is gated to the single
// configured admin identity in a private chat.
type Bot struct {
	api       telegramAPI
	store     storage.Storage
	checker   Checker
	libraries LibraryLister
	adminID   int64
	log       *slog.Logger
}

// New creates a Bot with the given Telegram token.
func New(token string, store storage.Storage, checker Checker, libraries LibraryLister, adminID int64, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return NewWithAPI(api, store, checker, libraries, adminID, log), nil
}

// NewWithAPI creates a Bot on an existing API client, letting the command
// loop share the connection the notification sender uses.
func NewWithAPI(api *tgbotapi.BotAPI, store storage.Storage, checker Checker, libraries LibraryLister, adminID int64, log *slog.Logger) *Bot {
	return &Bot{
		api:       api,
		store:     store,
		checker:   checker,
		libraries: libraries,
		adminID:   adminID,
		log:       log,
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if update.CallbackQuery.From.ID == b.adminID {
					b.handleCallback(ctx, update.CallbackQuery)
				}
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.authorized(update.Message.From.ID, update.Message.Chat) {
				b.log.Warn("unauthorized command", "user_id", update.Message.From.ID)
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// authorized allows only the configured operator in a private chat.
func (b *Bot) authorized(userID int64, chat *tgbotapi.Chat) bool {
	if userID != b.adminID {
		return false
	}
	return chat != nil && chat.IsPrivate()
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdCheck:
		b.handleCheck(ctx, chatID)
	case cmdReset:
		b.handleReset(chatID)
	case "stats":
		b.handleStats(ctx, chatID)
	case "list":
		b.handleList(ctx, chatID, args)
	case cmdLibraries:
		b.handleLibraries(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
