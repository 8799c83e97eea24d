package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 80

// Slugify lowercases s, drops accents and joins words with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := []rune(strings.TrimRight(b.String(), "-"))
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return strings.TrimRight(string(slug), "-")
}
