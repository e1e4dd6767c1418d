package fixes

import (
	"strings"

	"gitlab.com/wikibot/awb/domain"
)

// TrailingWhitespace right-trims every line while preserving whether the
// text as a whole ends in a trailing newline.
type TrailingWhitespace struct{}

func (*TrailingWhitespace) ID() string          { return "trailing_whitespace" }
func (*TrailingWhitespace) DisplayName() string { return "Trailing whitespace" }
func (*TrailingWhitespace) Category() string    { return "whitespace" }
func (*TrailingWhitespace) Description() string {
	return "Right-trims every line without touching blank-line structure."
}
func (*TrailingWhitespace) Classification() domain.FixClassification {
	return domain.ClassificationCosmetic
}
func (*TrailingWhitespace) MinTier() int { return 0 }

func (*TrailingWhitespace) Apply(text string, _ domain.FixContext) string {
	if text == "" {
		return text
	}
	hadTrailingNewline := strings.HasSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out := strings.Join(lines, "\n")
	if !hadTrailingNewline && strings.HasSuffix(out, "\n") {
		out = strings.TrimSuffix(out, "\n")
	}
	return out
}
