package contextutils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUserTextRunes caps any single caller-supplied string before it reaches a prompt
const MaxUserTextRunes = 500

// MaskAPIKey masks an API key for logging purposes to prevent exposure.
// Returns a masked version that shows only first 4 and last 4 characters.
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "[EMPTY]"
	}

	if len(apiKey) <= 8 {
		return strings.Repeat("*", len(apiKey))
	}

	return apiKey[:4] + strings.Repeat("*", len(apiKey)-8) + apiKey[len(apiKey)-4:]
}

// MaskBearer reduces an Authorization header to something safe to log
func MaskBearer(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return MaskAPIKey(header)
	}
	return scheme + " " + MaskAPIKey(strings.TrimSpace(token))
}

// SanitizeUserText trims s, removes control characters (newlines and tabs become
// single spaces) and truncates the result to maxRunes runes.
func SanitizeUserText(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = MaxUserTextRunes
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range strings.TrimSpace(s) {
		if r == utf8.RuneError {
			continue
		}
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		} else if unicode.IsControl(r) {
			continue
		}
		if r == ' ' {
			if lastSpace {
				continue
			}
			lastSpace = true
		} else {
			lastSpace = false
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(out) > maxRunes {
		out = strings.TrimSpace(string([]rune(out)[:maxRunes]))
	}
	return out
}
