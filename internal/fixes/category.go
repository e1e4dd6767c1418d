package fixes

import (
	"regexp"
	"sort"
	"strings"

	"gitlab.com/wikibot/awb/domain"
	"gitlab.com/wikibot/awb/internal/wikitext"
)

// categoryPlaceholder is used to hold the position of each category entry
// while the collected entries are sorted. It starts with a byte (0x03)
// that never appears in ordinary wikitext and that is distinct from the
// masking sentinel's own bytes (0x00, 0x01, 0x02), so the two mechanisms
// cannot collide.
const categoryPlaceholder = "\x03AWB_SORT_PLACEHOLDER\x03"

var categoryRe = regexp.MustCompile(`\[\[\s*[Cc]ategory\s*:([^\]|]+)(?:\|([^\]]*))?\]\]`)

// CategorySorting collects every [[Category:...]] entry in the page and
// reinserts them in title-sorted order at their original positions. It
// fails closed (returns text unchanged) if the placeholder byte already
// occurs in the input, or if reinsertion does not consume every placeholder.
type CategorySorting struct{}

func (*CategorySorting) ID() string          { return "category_sorting" }
func (*CategorySorting) DisplayName() string { return "Category sorting" }
func (*CategorySorting) Category() string    { return "categories" }
func (*CategorySorting) Description() string {
	return "Sorts category links alphabetically by normalized title."
}
func (*CategorySorting) Classification() domain.FixClassification {
	return domain.ClassificationMaintenance
}
func (*CategorySorting) MinTier() int { return 0 }

type categoryEntry struct {
	original  string
	sortTitle string
	sortKey   string
}

func (*CategorySorting) Apply(text string, _ domain.FixContext) string {
	if strings.Contains(text, categoryPlaceholder[:1]) {
		return text
	}

	matches := categoryRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	entries := make([]categoryEntry, 0, len(matches))
	for _, m := range matches {
		original := text[m[0]:m[1]]
		title := text[m[2]:m[3]]
		sortKey := ""
		if m[4] >= 0 {
			sortKey = text[m[4]:m[5]]
		}
		entries = append(entries, categoryEntry{
			original:  original,
			sortTitle: wikitext.NormalizeTitle(title),
			sortKey:   wikitext.NormalizeTitle(sortKey),
		})
	}

	sorted := make([]categoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.sortTitle != b.sortTitle {
			return strings.ToLower(a.sortTitle) < strings.ToLower(b.sortTitle)
		}
		if a.sortKey != b.sortKey {
			return strings.ToLower(a.sortKey) < strings.ToLower(b.sortKey)
		}
		return a.original < b.original
	})

	alreadySorted := true
	for i := range entries {
		if entries[i].original != sorted[i].original {
			alreadySorted = false
			break
		}
	}
	if alreadySorted {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		b.WriteString(categoryPlaceholder)
		last = m[1]
	}
	b.WriteString(text[last:])
	withPlaceholders := b.String()

	result := withPlaceholders
	for _, e := range sorted {
		result = strings.Replace(result, categoryPlaceholder, e.original, 1)
	}

	if strings.Contains(result, categoryPlaceholder) {
		return text
	}

	return result
}
