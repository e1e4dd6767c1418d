package fixes

import (
	"regexp"

	"gitlab.com/wikibot/awb/domain"
	"gitlab.com/wikibot/awb/internal/wikitext"
)

var (
	defaultSortRe   = regexp.MustCompile(`(?i)\{\{\s*DEFAULTSORT\s*:`)
	firstCategoryRe = regexp.MustCompile(`(?m)^\[\[Category:`)
)

// DefaultSortFix inserts a {{DEFAULTSORT:...}} template with an ASCII-folded
// sort key when the title contains non-ASCII characters and no such
// template already exists.
type DefaultSortFix struct{}

func (*DefaultSortFix) ID() string          { return "defaultsort_fix" }
func (*DefaultSortFix) DisplayName() string { return "DEFAULTSORT fix" }
func (*DefaultSortFix) Category() string    { return "categories" }
func (*DefaultSortFix) Description() string {
	return "Adds a DEFAULTSORT key for titles with non-ASCII characters."
}
func (*DefaultSortFix) Classification() domain.FixClassification {
	return domain.ClassificationMaintenance
}
func (*DefaultSortFix) MinTier() int { return 1 }

func (*DefaultSortFix) Apply(text string, ctx domain.FixContext) string {
	if defaultSortRe.MatchString(text) {
		return text
	}
	if wikitext.IsASCII(ctx.Title.Name) {
		return text
	}

	sortKey := wikitext.ASCIIFold(ctx.Title.Name)
	insertion := "{{DEFAULTSORT:" + sortKey + "}}\n"

	loc := firstCategoryRe.FindStringIndex(text)
	if loc == nil {
		return text + insertion
	}
	return text[:loc[0]] + insertion + text[loc[0]:]
}
