package fixes

import (
	"regexp"
	"strings"

	"gitlab.com/wikibot/awb/domain"
)

// UnicodeNormalization cleans up a handful of Unicode oddities that creep
// into wikitext from copy-pasted sources: stray non-breaking spaces,
// inconsistent dash usage in numeric ranges, and curly quotes inside
// template parameters.
type UnicodeNormalization struct{}

func (*UnicodeNormalization) ID() string          { return "unicode_normalization" }
func (*UnicodeNormalization) DisplayName() string { return "Unicode normalization" }
func (*UnicodeNormalization) Category() string    { return "typography" }
func (*UnicodeNormalization) Description() string {
	return "Normalizes non-breaking spaces, numeric dashes, and curly quotes in templates."
}
func (*UnicodeNormalization) Classification() domain.FixClassification {
	return domain.ClassificationStyleSensitive
}
func (*UnicodeNormalization) MinTier() int { return 2 }

const noBreakSpaceExempt = ";:!?»"

func (*UnicodeNormalization) Apply(text string, _ domain.FixContext) string {
	out := stripStrayNoBreakSpaces(text)
	out = normalizeNumericDashes(out)
	out = straightenCurlyQuotesInTemplates(out)
	return out
}

func stripStrayNoBreakSpaces(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r == ' ' {
			if i+1 < len(runes) && strings.ContainsRune(noBreakSpaceExempt, runes[i+1]) {
				b.WriteRune(r)
				continue
			}
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// numericDashRe matches an en-dash or em-dash between two digits, with
// optional surrounding whitespace collapsed away. The ASCII hyphen is
// deliberately excluded: it is the ordinary punctuation character in dates
// (2020-01-15), ISBNs (0-13), IP octets, and plain subtraction, none of
// which should become a numeric-range dash.
var numericDashRe = regexp.MustCompile(`(\d)\s*[–—]\s*(\d)`)

func normalizeNumericDashes(s string) string {
	return numericDashRe.ReplaceAllString(s, "$1–$2")
}

func straightenCurlyQuotesInTemplates(s string) string {
	var b strings.Builder
	depth := 0
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '{':
			depth++
			b.WriteRune(r)
		case '}':
			if depth > 0 {
				depth--
			}
			b.WriteRune(r)
		case '‘', '’':
			if depth > 0 {
				b.WriteByte('\'')
			} else {
				b.WriteRune(r)
			}
		case '“', '”':
			if depth > 0 {
				b.WriteByte('"')
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
