package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Makar-aka/jellysay/internal/jellyfin"
)

const (
	callbackResetConfirm = "reset:confirm"
	callbackResetCancel  = "reset:cancel"
	callbackLibPrefix    = "lib:"
	callbackLibClear     = "lib:clear"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.log.Debug("ack callback", "error", err)
		}
	}()

	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case data == callbackResetConfirm:
		b.resetHistory(ctx, chatID)
	case data == callbackResetCancel:
		b.reply(chatID, "Reset cancelled.")
	case data == callbackLibClear:
		b.setLibraries(ctx, chatID, cb.Message.MessageID, nil)
	case strings.HasPrefix(data, callbackLibPrefix):
		b.toggleLibrary(ctx, chatID, cb.Message.MessageID, strings.TrimPrefix(data, callbackLibPrefix))
	}
}

func (b *Bot) resetHistory(ctx context.Context, chatID int64) {
	if err := b.store.PurgeNotified(ctx); err != nil {
		b.log.Error("purge notified", "error", err)
		b.reply(chatID, "Reset failed, history unchanged.")
		return
	}
	b.log.Info("notification history cleared", "chat_id", chatID)
	b.reply(chatID, "Notification history cleared.")
}

// toggleLibrary flips one library in the persisted restriction and redraws
// the picker keyboard in place.
func (b *Bot) toggleLibrary(ctx context.Context, chatID int64, messageID int, libID string) {
	selected, err := b.store.SelectedLibraries(ctx)
	if err != nil {
		b.log.Error("load selected libraries", "error", err)
		return
	}

	next := make([]string, 0, len(selected)+1)
	found := false
	for _, id := range selected {
		if id == libID {
			found = true
			continue
		}
		next = append(next, id)
	}
	if !found {
		next = append(next, libID)
	}

	b.setLibraries(ctx, chatID, messageID, next)
}

func (b *Bot) setLibraries(ctx context.Context, chatID int64, messageID int, libIDs []string) {
	if err := b.store.SetSelectedLibraries(ctx, libIDs); err != nil {
		b.log.Error("save selected libraries", "error", err)
		b.reply(chatID, "Could not save the library selection.")
		return
	}

	folders, err := b.libraries.MediaFolders(ctx)
	if err != nil {
		b.log.Error("list media folders", "error", err)
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		formatLibraryPrompt(libIDs), libraryKeyboard(folders, libIDs))
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("edit library picker", "error", err)
	}
}

// libraryKeyboard marks watched libraries with a check mark. The clear row
// returns the bot to watching every library.
func libraryKeyboard(folders []jellyfin.Library, selected []string) tgbotapi.InlineKeyboardMarkup {
	selectedSet := make(map[string]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(folders)+1)
	for _, f := range folders {
		label := f.Name
		if selectedSet[f.ID] {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackLibPrefix+f.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Watch all libraries", callbackLibClear),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
