package fixes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/wikibot/awb/domain"
)

func idempotent(t *testing.T, m Module, text string, ctx domain.FixContext) string {
	t.Helper()
	once := m.Apply(text, ctx)
	twice := m.Apply(once, ctx)
	assert.Equal(t, once, twice, "module %s is not idempotent", m.ID())
	return once
}

func TestWhitespaceCleanupNormalizesAndCollapses(t *testing.T) {
	m := &WhitespaceCleanup{}
	in := "a \t\r\nb\r\n\r\n\r\n\r\nc\n\n\n"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "a\nb\n\n\nc\n", out)
}

func TestWhitespaceCleanupEmptyInput(t *testing.T) {
	m := &WhitespaceCleanup{}
	assert.Equal(t, "", m.Apply("", domain.FixContext{}))
}

func TestHeadingSpacingInsertsBlankBeforeHeading(t *testing.T) {
	m := &HeadingSpacing{}
	in := "intro text\n== Section ==\nbody\n"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "intro text\n\n== Section ==\nbody\n", out)
}

func TestHeadingSpacingNoInsertAtStart(t *testing.T) {
	m := &HeadingSpacing{}
	in := "== Section ==\nbody\n"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, in, out)
}

func TestHeadingSpacingNoDoubleInsertWhenAlreadyBlank(t *testing.T) {
	m := &HeadingSpacing{}
	in := "intro\n\n== Section ==\n"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, in, out)
}

func TestTrailingWhitespaceTrimsLines(t *testing.T) {
	m := &TrailingWhitespace{}
	in := "line one  \nline two\t\nline three"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "line one\nline two\nline three", out)
}

func TestTrailingWhitespacePreservesFinalNewlinePresence(t *testing.T) {
	m := &TrailingWhitespace{}
	withNL := idempotent(t, m, "a \nb \n", domain.FixContext{})
	assert.Equal(t, "a\nb\n", withNL)
	withoutNL := idempotent(t, m, "a \nb ", domain.FixContext{})
	assert.Equal(t, "a\nb", withoutNL)
}

func TestCategorySortingSortsAlphabetically(t *testing.T) {
	m := &CategorySorting{}
	in := "text\n[[Category:Zebra]]\n[[Category:Apple]]\n[[Category:Mango|M]]\n"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "text\n[[Category:Apple]]\n[[Category:Mango|M]]\n[[Category:Zebra]]\n", out)
}

func TestCategorySortingNoCategoriesIsNoOp(t *testing.T) {
	m := &CategorySorting{}
	in := "just text\n"
	assert.Equal(t, in, m.Apply(in, domain.FixContext{}))
}

func TestCategorySortingAlreadySortedIsNoOp(t *testing.T) {
	m := &CategorySorting{}
	in := "text\n[[Category:Apple]]\n[[Category:Zebra]]\n"
	assert.Equal(t, in, m.Apply(in, domain.FixContext{}))
}

func TestCategorySortingFailsClosedOnExistingPlaceholder(t *testing.T) {
	m := &CategorySorting{}
	in := categoryPlaceholder + "\n[[Category:Zebra]]\n[[Category:Apple]]\n"
	assert.Equal(t, in, m.Apply(in, domain.FixContext{}))
}

func TestHTMLToWikitextConvertsTags(t *testing.T) {
	m := &HTMLToWikitext{}
	in := "<b>bold</b> and <i>italic</i>text<br>here<br/>"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "'''bold''' and ''italic''text<br />here<br />", out)
}

func TestHTMLToWikitextNoTagsIsNoOp(t *testing.T) {
	m := &HTMLToWikitext{}
	in := "plain text, no markup"
	assert.Equal(t, in, m.Apply(in, domain.FixContext{}))
}

func TestDuplicateWikilinkRemovalKeepsFirstPerSection(t *testing.T) {
	m := &DuplicateWikilinkRemoval{}
	in := "[[Foo]] and [[Foo|bar]] again\n== Next ==\n[[Foo]] once more\n"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "[[Foo]] and bar again\n== Next ==\n[[Foo]] once more\n", out)
}

func TestDuplicateWikilinkRemovalNoLinksIsNoOp(t *testing.T) {
	m := &DuplicateWikilinkRemoval{}
	in := "no links here"
	assert.Equal(t, in, m.Apply(in, domain.FixContext{}))
}

func TestDefaultSortFixInsertsBeforeFirstCategory(t *testing.T) {
	m := &DefaultSortFix{}
	ctx := domain.FixContext{Title: domain.Title{Name: "Émile Zola"}}
	in := "text\n[[Category:Writers]]\n"
	out := idempotent(t, m, in, ctx)
	assert.Equal(t, "text\n{{DEFAULTSORT:Emile Zola}}\n[[Category:Writers]]\n", out)
}

func TestDefaultSortFixAppendsWhenNoCategory(t *testing.T) {
	m := &DefaultSortFix{}
	ctx := domain.FixContext{Title: domain.Title{Name: "Café"}}
	in := "text\n"
	out := idempotent(t, m, in, ctx)
	assert.Equal(t, "text\n{{DEFAULTSORT:Cafe}}\n", out)
}

func TestDefaultSortFixNoOpForASCIITitle(t *testing.T) {
	m := &DefaultSortFix{}
	ctx := domain.FixContext{Title: domain.Title{Name: "Plain Title"}}
	in := "text\n[[Category:Foo]]\n"
	assert.Equal(t, in, m.Apply(in, ctx))
}

func TestDefaultSortFixNoOpWhenAlreadyPresent(t *testing.T) {
	m := &DefaultSortFix{}
	ctx := domain.FixContext{Title: domain.Title{Name: "Émile Zola"}}
	in := "{{DEFAULTSORT:Something}}\ntext\n"
	assert.Equal(t, in, m.Apply(in, ctx))
}

func TestCitationFormattingLowercasesTemplateName(t *testing.T) {
	m := &CitationFormatting{}
	in := "{{Cite Web|url=http://example.com}}"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "{{cite web|url=http://example.com}}", out)
}

func TestCitationFormattingRenamesAccessdate(t *testing.T) {
	m := &CitationFormatting{}
	in := "{{cite web|accessdate=2020-01-01}}"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "{{cite web|access-date=2020-01-01}}", out)
}

func TestCitationFormattingRewritesDeadurl(t *testing.T) {
	m := &CitationFormatting{}
	dead := idempotent(t, m, "{{cite web|deadurl=yes}}", domain.FixContext{})
	assert.Equal(t, "{{cite web|url-status=dead}}", dead)
	live := idempotent(t, m, "{{cite web|deadurl=no}}", domain.FixContext{})
	assert.Equal(t, "{{cite web|url-status=live}}", live)
}

func TestCitationFormattingNoTemplatesIsNoOp(t *testing.T) {
	m := &CitationFormatting{}
	in := "no templates here"
	assert.Equal(t, in, m.Apply(in, domain.FixContext{}))
}

func TestUnicodeNormalizationStripsStrayNoBreakSpace(t *testing.T) {
	m := &UnicodeNormalization{}
	in := "10 km away"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "10 km away", out)
}

func TestUnicodeNormalizationKeepsExemptedNoBreakSpace(t *testing.T) {
	m := &UnicodeNormalization{}
	in := "word : value"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, in, out)
}

func TestUnicodeNormalizationNumericDash(t *testing.T) {
	m := &UnicodeNormalization{}
	out := idempotent(t, m, "pages 10–20", domain.FixContext{})
	assert.Equal(t, "pages 10–20", out)
}

func TestUnicodeNormalizationNumericDashCollapsesSpacing(t *testing.T) {
	m := &UnicodeNormalization{}
	out := idempotent(t, m, "2020 – 2021", domain.FixContext{})
	assert.Equal(t, "2020–2021", out)
}

func TestUnicodeNormalizationLeavesASCIIHyphenAlone(t *testing.T) {
	m := &UnicodeNormalization{}
	for _, in := range []string{"2020-01-15", "ISBN 0-13", "192-168", "3-4"} {
		out := idempotent(t, m, in, domain.FixContext{})
		assert.Equal(t, in, out)
	}
}

func TestUnicodeNormalizationCurlyQuotesInsideTemplateOnly(t *testing.T) {
	m := &UnicodeNormalization{}
	in := "plain ‘quote’ {{cite|quote=“inside”}}"
	out := idempotent(t, m, in, domain.FixContext{})
	assert.Equal(t, "plain ‘quote’ {{cite|quote=\"inside\"}}", out)
}

func TestRegistryKnownIDsListsAllNine(t *testing.T) {
	r := NewRegistryWithDefaults()
	known := r.KnownIDs()
	ids := []string{
		"whitespace_cleanup", "heading_spacing", "trailing_whitespace",
		"category_sorting", "html_to_wikitext", "duplicate_wikilink_removal",
		"defaultsort_fix", "citation_formatting", "unicode_normalization",
	}
	for _, id := range ids {
		assert.True(t, known[id], "expected %s to be known", id)
	}
	assert.Len(t, known, 9)
}

func TestApplyAllWithConfigRespectsTier(t *testing.T) {
	r := NewRegistryWithDefaults()
	res, errE := ApplyAllWithConfig(r, "{{Cite Web|accessdate=2020}}", domain.FixContext{}, domain.FixConfig{
		StrictnessTier: 0,
	})
	require.NoError(t, errE)
	assert.NotContains(t, res.ChangedIDs, "citation_formatting")
}

func TestApplyAllWithConfigAppliesCitationAtTier2(t *testing.T) {
	r := NewRegistryWithDefaults()
	res, errE := ApplyAllWithConfig(r, "{{Cite Web|accessdate=2020}}", domain.FixContext{}, domain.FixConfig{
		StrictnessTier: 2,
	})
	require.NoError(t, errE)
	assert.Contains(t, res.ChangedIDs, "citation_formatting")
	assert.False(t, res.IsCosmeticOnly)
}

func TestApplyAllWithConfigDenyList(t *testing.T) {
	r := NewRegistryWithDefaults()
	res, errE := ApplyAllWithConfig(r, "a  \nb\n", domain.FixContext{}, domain.FixConfig{
		StrictnessTier: 0,
		DisabledFixes:  map[string]bool{"whitespace_cleanup": true},
	})
	require.NoError(t, errE)
	assert.NotContains(t, res.ChangedIDs, "whitespace_cleanup")
}

func TestApplyAllWithConfigAllowList(t *testing.T) {
	r := NewRegistryWithDefaults()
	res, errE := ApplyAllWithConfig(r, "a  \n== H ==\nb", domain.FixContext{}, domain.FixConfig{
		StrictnessTier: 0,
		EnabledFixes:   map[string]bool{"heading_spacing": true},
	})
	require.NoError(t, errE)
	assert.Equal(t, []string{"heading_spacing"}, res.ChangedIDs)
}

func TestApplyAllWithConfigIsCosmeticOnly(t *testing.T) {
	r := NewRegistryWithDefaults()
	res, errE := ApplyAllWithConfig(r, "a  \nb\n\n\n\n\nc\n", domain.FixContext{}, domain.FixConfig{
		StrictnessTier: 0,
		EnabledFixes:   map[string]bool{"whitespace_cleanup": true, "trailing_whitespace": true},
	})
	require.NoError(t, errE)
	assert.True(t, res.IsCosmeticOnly)
}

func TestApplyAllWithConfigNotCosmeticWhenMaintenanceChanges(t *testing.T) {
	r := NewRegistryWithDefaults()
	res, errE := ApplyAllWithConfig(r, "[[Category:Z]]\n[[Category:A]]\n", domain.FixContext{}, domain.FixConfig{
		StrictnessTier: 0,
	})
	require.NoError(t, errE)
	assert.Contains(t, res.ChangedIDs, "category_sorting")
	assert.False(t, res.IsCosmeticOnly)
}

func TestApplyAllWithConfigRejectsOutOfRangeTier(t *testing.T) {
	r := NewRegistryWithDefaults()
	_, errE := ApplyAllWithConfig(r, "x", domain.FixContext{}, domain.FixConfig{StrictnessTier: 4})
	assert.Error(t, errE)
}

func TestApplyAllWithConfigRejectsUnknownID(t *testing.T) {
	r := NewRegistryWithDefaults()
	_, errE := ApplyAllWithConfig(r, "x", domain.FixContext{}, domain.FixConfig{
		StrictnessTier: 0,
		EnabledFixes:   map[string]bool{"no_such_fix": true},
	})
	assert.Error(t, errE)
}

func TestApplyOneBypassesGating(t *testing.T) {
	r := NewRegistryWithDefaults()
	out := ApplyOne(r, "citation_formatting", "{{Cite Web|accessdate=2020}}", domain.FixContext{})
	assert.Equal(t, "{{cite web|access-date=2020}}", out)
}

func TestApplyOneUnknownIDIsNoOp(t *testing.T) {
	r := NewRegistryWithDefaults()
	in := "unchanged"
	assert.Equal(t, in, ApplyOne(r, "nonexistent", in, domain.FixContext{}))
}
