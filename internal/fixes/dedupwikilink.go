package fixes

import (
	"regexp"
	"strings"

	"gitlab.com/wikibot/awb/domain"
)

var (
	wikilinkRe    = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]*))?\]\]`)
	sectionHeadRe = regexp.MustCompile(`(?m)^={2,6}\s`)
)

// DuplicateWikilinkRemoval keeps the first occurrence of a link target
// within each section (delimited by headings) as a link, and turns later
// occurrences of the same target into plain display text.
type DuplicateWikilinkRemoval struct{}

func (*DuplicateWikilinkRemoval) ID() string          { return "duplicate_wikilink_removal" }
func (*DuplicateWikilinkRemoval) DisplayName() string { return "Duplicate wikilink removal" }
func (*DuplicateWikilinkRemoval) Category() string    { return "markup" }
func (*DuplicateWikilinkRemoval) Description() string {
	return "Unlinks repeated wikilink targets within the same section."
}
func (*DuplicateWikilinkRemoval) Classification() domain.FixClassification {
	return domain.ClassificationMaintenance
}
func (*DuplicateWikilinkRemoval) MinTier() int { return 1 }

func (*DuplicateWikilinkRemoval) Apply(text string, _ domain.FixContext) string {
	if !strings.Contains(text, "[[") {
		return text
	}

	trailingNewlines := 0
	for i := len(text) - 1; i >= 0 && text[i] == '\n'; i-- {
		trailingNewlines++
	}
	body := text[:len(text)-trailingNewlines]

	lines := strings.Split(body, "\n")
	seen := map[string]bool{}

	for i, line := range lines {
		if sectionHeadRe.MatchString(line) {
			seen = map[string]bool{}
		}
		lines[i] = wikilinkRe.ReplaceAllStringFunc(line, func(m string) string {
			sub := wikilinkRe.FindStringSubmatch(m)
			target := sub[1]
			display := sub[2]
			if display == "" {
				display = target
			}
			key := strings.ToLower(strings.TrimSpace(target))
			if seen[key] {
				return display
			}
			seen[key] = true
			return m
		})
	}

	return strings.Join(lines, "\n") + strings.Repeat("\n", trailingNewlines)
}
