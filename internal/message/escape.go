package message

import "strings"

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	"`", "\\`",
)

var htmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// EscapeMarkdown backslash-escapes the characters that are markup in
// Telegram's Markdown dialect. The backslash itself is escaped first so the
// output round-trips byte-identical in the rendered message.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// EscapeHTML entity-escapes text for Telegram's HTML parse mode.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
