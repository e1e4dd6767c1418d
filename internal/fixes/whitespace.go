package fixes

import (
	"strings"

	"gitlab.com/wikibot/awb/domain"
)

// WhitespaceCleanup normalizes line endings, trims trailing whitespace per
// line, collapses runs of blank lines to at most two, and ensures exactly
// one trailing newline.
type WhitespaceCleanup struct{}

func (*WhitespaceCleanup) ID() string          { return "whitespace_cleanup" }
func (*WhitespaceCleanup) DisplayName() string { return "Whitespace cleanup" }
func (*WhitespaceCleanup) Category() string    { return "whitespace" }
func (*WhitespaceCleanup) Description() string {
	return "Normalizes line endings, trims trailing whitespace, and caps blank-line runs."
}
func (*WhitespaceCleanup) Classification() domain.FixClassification {
	return domain.ClassificationCosmetic
}
func (*WhitespaceCleanup) MinTier() int { return 0 }

func (*WhitespaceCleanup) Apply(text string, _ domain.FixContext) string {
	if text == "" {
		return text
	}

	// CRLF/CR -> LF. Byte-level replace is UTF-8 safe: '\r' and '\n' are
	// both single-byte ASCII characters that never appear as part of a
	// multi-byte rune.
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	var out []string
	blankRun := 0
	for _, line := range lines {
		if line == "" {
			blankRun++
			if blankRun <= 2 {
				out = append(out, line)
			}
			continue
		}
		blankRun = 0
		out = append(out, line)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n") + "\n"
}
