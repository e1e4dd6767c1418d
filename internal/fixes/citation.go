package fixes

import (
	"regexp"
	"strings"

	"gitlab.com/wikibot/awb/domain"
)

var (
	citeTemplateNameRe = regexp.MustCompile(`(?i)\{\{\s*(Cite\s+(?:web|news|journal|book|conference))\b`)
	accessDateParamRe  = regexp.MustCompile(`(?i)(\|\s*)accessdate(\s*=)`)
	deadurlYesRe       = regexp.MustCompile(`(?i)(\|\s*)deadurl(\s*=\s*)(yes|true)\b`)
	deadurlNoRe        = regexp.MustCompile(`(?i)(\|\s*)deadurl(\s*=\s*)(no|false)\b`)
)

// CitationFormatting normalizes common citation-template conventions: it
// lowercases the cite-family template name, renames the deprecated
// accessdate parameter to access-date, and rewrites deadurl=yes/no to the
// current url-status=dead/live form.
//
// In the usual masked-text pass this module finds nothing to rewrite,
// since citation templates are themselves masked out before rules and
// general fixes see the markup. A dedicated post-unmask pass applies it
// directly to the final, unmasked text.
type CitationFormatting struct{}

func (*CitationFormatting) ID() string          { return "citation_formatting" }
func (*CitationFormatting) DisplayName() string { return "Citation formatting" }
func (*CitationFormatting) Category() string    { return "citations" }
func (*CitationFormatting) Description() string {
	return "Normalizes cite template names and deprecated citation parameters."
}
func (*CitationFormatting) Classification() domain.FixClassification {
	return domain.ClassificationStyleSensitive
}
func (*CitationFormatting) MinTier() int { return 2 }

func (*CitationFormatting) Apply(text string, _ domain.FixContext) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	out := citeTemplateNameRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := citeTemplateNameRe.FindStringSubmatch(m)
		return strings.Replace(m, sub[1], strings.ToLower(sub[1]), 1)
	})
	out = accessDateParamRe.ReplaceAllString(out, "${1}access-date${2}")
	out = deadurlYesRe.ReplaceAllString(out, "${1}url-status${2}dead")
	out = deadurlNoRe.ReplaceAllString(out, "${1}url-status${2}live")
	return out
}
