package fixes

import (
	"regexp"
	"strings"

	"gitlab.com/wikibot/awb/domain"
)

var headingLineRe = regexp.MustCompile(`^={2,6}.*={2,6}\s*$`)

// HeadingSpacing ensures a blank line precedes any heading line that has
// real content before it, without inserting a blank at absolute
// start-of-string.
type HeadingSpacing struct{}

func (*HeadingSpacing) ID() string          { return "heading_spacing" }
func (*HeadingSpacing) DisplayName() string { return "Heading spacing" }
func (*HeadingSpacing) Category() string    { return "whitespace" }
func (*HeadingSpacing) Description() string {
	return "Inserts a blank line before headings that follow other content."
}
func (*HeadingSpacing) Classification() domain.FixClassification {
	return domain.ClassificationCosmetic
}
func (*HeadingSpacing) MinTier() int { return 0 }

func (*HeadingSpacing) Apply(text string, _ domain.FixContext) string {
	if text == "" {
		return text
	}

	lines := strings.SplitAfter(text, "\n")
	var out []string
	hasContentBefore := false

	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\n")
		if headingLineRe.MatchString(trimmed) {
			if hasContentBefore {
				if len(out) > 0 {
					prev := strings.TrimRight(out[len(out)-1], "\n")
					if prev != "" {
						out = append(out, "\n")
					}
				}
			}
			out = append(out, line)
			hasContentBefore = true
			continue
		}
		out = append(out, line)
		if strings.TrimSpace(trimmed) != "" {
			hasContentBefore = true
		}
	}

	return strings.Join(out, "")
}
