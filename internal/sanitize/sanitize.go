// Package sanitize normalizes untrusted client text before it is stored or
// fanned out to other clients.
package sanitize

import "strings"

const maxNicknameLen = 24

var textEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Text trims, collapses whitespace runs to single spaces, truncates to
// maxLen runes, and escapes markup-sensitive characters. Returns "" for
// input that is empty after normalization.
func Text(raw string, maxLen int) string {
	s := collapseWhitespace(strings.TrimSpace(raw))
	s = truncate(s, maxLen)
	return textEscaper.Replace(s)
}

// Nickname trims, strips markup and path characters, collapses whitespace,
// and truncates to 24 runes. Results shorter than 2 runes are invalid and
// reported as "".
func Nickname(raw string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '/', '\\', '`':
			return -1
		}
		return r
	}, raw)

	s = collapseWhitespace(strings.TrimSpace(s))
	s = truncate(s, maxNicknameLen)

	if len([]rune(s)) < 2 {
		return ""
	}
	return s
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
