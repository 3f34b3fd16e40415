package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold normalizes text for comparison: Unicode NFKD decomposition with
// combining marks stripped (so "José" and "Jose" compare equal), lower-cased,
// punctuation replaced by spaces. OCR output and claimed values go through
// the same fold so diacritic and punctuation differences never block a match.
func Fold(s string) string {
	if s == "" {
		return s
	}

	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining marks left behind by the decomposition
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// cleanIdentifier normalizes roll numbers and similar identifiers: NFKD
// fold, lower-case, and whitespace/hyphen/underscore removed. Other
// punctuation stays put so "1.01" cannot collapse into "101".
func cleanIdentifier(s string) string {
	if s == "" {
		return s
	}

	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsSpace(r) || r == '-' || r == '_':
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
