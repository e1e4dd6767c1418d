package fixes

import (
	"regexp"
	"strings"

	"gitlab.com/wikibot/awb/domain"
)

var (
	boldTagRe  = regexp.MustCompile(`(?is)<b>(.*?)</b>`)
	italicTagRe = regexp.MustCompile(`(?is)<i>(.*?)</i>`)
	brTagRe    = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// HTMLToWikitext converts a handful of common HTML constructs to their
// wikitext equivalent: <b>/<i> to bold/italic markup, and any <br> variant
// to the canonical self-closed form.
type HTMLToWikitext struct{}

func (*HTMLToWikitext) ID() string          { return "html_to_wikitext" }
func (*HTMLToWikitext) DisplayName() string { return "HTML to wikitext" }
func (*HTMLToWikitext) Category() string    { return "markup" }
func (*HTMLToWikitext) Description() string {
	return "Converts <b>, <i>, and <br> HTML tags to wikitext equivalents."
}
func (*HTMLToWikitext) Classification() domain.FixClassification {
	return domain.ClassificationMaintenance
}
func (*HTMLToWikitext) MinTier() int { return 1 }

func (*HTMLToWikitext) Apply(text string, _ domain.FixContext) string {
	if !strings.Contains(text, "<") {
		return text
	}
	out := boldTagRe.ReplaceAllString(text, "'''$1'''")
	out = italicTagRe.ReplaceAllString(out, "''$1''")
	out = brTagRe.ReplaceAllString(out, "<br />")
	return out
}
