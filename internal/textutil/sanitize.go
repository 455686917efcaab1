package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeToken turns value into a lowercase ASCII token for directory
// names. Accents are folded ("Mölle" becomes "molle"), ASCII letters, digits,
// '-' and '_' are kept and every other rune becomes '_'. Empty results yield
// "unknown".
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if folded, _, err := transform.String(foldMarks(), value); err == nil {
		value = folded
	}
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		default:
			return '_'
		}
	}, value)
	token = strings.Trim(token, "_-")
	if token == "" {
		return "unknown"
	}
	return token
}

func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
