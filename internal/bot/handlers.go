package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdCheck     = "check"
	cmdReset     = "reset"
	cmdLibraries = "libraries"

	listPageSize = 10
)

const helpText = `Commands:
/check - poll the server for new media now
/stats - notification history size
/list [page] - recent notifications
/libraries - choose which libraries to watch
/reset - clear the notification history
/help - this message`

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, "Jellysay is watching your Jellyfin server.\n\n"+helpText)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, helpText)
}

func (b *Bot) handleCheck(ctx context.Context, chatID int64) {
	b.reply(chatID, "Checking for new media...")
	report := b.checker.CheckNow(ctx)
	b.reply(chatID, formatReport(report))
}

// handleReset asks for confirmation before clearing the history; the
// destructive path runs from the callback handler.
func (b *Bot) handleReset(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Clear the entire notification history? Every item becomes eligible for re-notification.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, clear it", callbackResetConfirm),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackResetCancel),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send reset prompt", "error", err)
	}
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	count, err := b.store.CountNotified(ctx)
	if err != nil {
		b.log.Error("count notified", "error", err)
		b.reply(chatID, "Could not read the notification history.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Notification history: %d items.", count))
}

func (b *Bot) handleList(ctx context.Context, chatID int64, args string) {
	page := parsePage(args)
	items, err := b.store.ListNotified(ctx, listPageSize, (page-1)*listPageSize)
	if err != nil {
		b.log.Error("list notified", "error", err)
		b.reply(chatID, "Could not read the notification history.")
		return
	}
	b.reply(chatID, formatNotifiedList(items, page))
}

func (b *Bot) handleLibraries(ctx context.Context, chatID int64) {
	if b.libraries == nil {
		b.reply(chatID, "Library selection is not available.")
		return
	}
	folders, err := b.libraries.MediaFolders(ctx)
	if err != nil {
		b.log.Error("list media folders", "error", err)
		b.reply(chatID, "Could not list libraries from the server.")
		return
	}
	selected, err := b.store.SelectedLibraries(ctx)
	if err != nil {
		b.log.Error("load selected libraries", "error", err)
		selected = nil
	}

	msg := tgbotapi.NewMessage(chatID, formatLibraryPrompt(selected))
	msg.ReplyMarkup = libraryKeyboard(folders, selected)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send library picker", "error", err)
	}
}
