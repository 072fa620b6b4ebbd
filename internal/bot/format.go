package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Makar-aka/jellysay/internal/model"
	"github.com/Makar-aka/jellysay/internal/notifier"
)

func formatReport(r notifier.Report) string {
	if r.Processed == 0 {
		return "No new media found."
	}
	return fmt.Sprintf("Checked %d items: %d notified, %d skipped.", r.Processed, r.Sent, r.Skipped)
}

func formatNotifiedList(items []model.NotifiedItem, page int) string {
	if len(items) == 0 {
		if page > 1 {
			return fmt.Sprintf("No items on page %d.", page)
		}
		return "Notification history is empty."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent notifications (page %d):\n", page)
	for _, item := range items {
		fmt.Fprintf(&sb, "• %s — %s\n", item.DisplayName, item.SentAt.Format("2006-01-02 15:04"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLibraryPrompt(selected []string) string {
	if len(selected) == 0 {
		return "Watching all libraries. Tap a library to restrict notifications to it."
	}
	return fmt.Sprintf("Watching %d selected libraries. Tap to toggle.", len(selected))
}

// parsePage treats anything unparseable or non-positive as page one.
func parsePage(arg string) int {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 1
	}
	page, err := strconv.Atoi(arg)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
