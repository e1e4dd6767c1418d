package wikitext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, in string) {
	t.Helper()
	m := Mask(in)
	assert.Equal(t, in, Unmask(m))
}

func TestMaskUnmaskRoundTripPlain(t *testing.T) {
	roundTrip(t, "just some plain text with no special regions")
}

func TestMaskUnmaskRoundTripEmpty(t *testing.T) {
	roundTrip(t, "")
}

func TestMaskUnmaskRoundTripComment(t *testing.T) {
	roundTrip(t, "before <!-- a comment with }} inside --> after")
}

func TestMaskUnmaskRoundTripNowiki(t *testing.T) {
	roundTrip(t, "Replace THIS but not <nowiki>THIS</nowiki>")
}

func TestMaskUnmaskRoundTripSelfClosing(t *testing.T) {
	roundTrip(t, "line one<br/>line two <source/> done")
}

func TestMaskUnmaskRoundTripTemplate(t *testing.T) {
	roundTrip(t, "see {{cite web|url=foo|title=bar}} for details")
}

func TestMaskUnmaskRoundTripNestedTemplate(t *testing.T) {
	roundTrip(t, "outer {{a|{{b|c}}|d}} end")
}

func TestMaskUnmaskRoundTripCommentInsideTemplate(t *testing.T) {
	roundTrip(t, "{{x|<!-- }} -->}}")
}

func TestMaskUnmaskRoundTripFileLink(t *testing.T) {
	roundTrip(t, "look at [[File:Example.png|thumb|caption]] here")
}

func TestMaskUnmaskRoundTripImageLink(t *testing.T) {
	roundTrip(t, "look at [[Image:Example.png]] here")
}

func TestMaskUnmaskRoundTripRegularWikilinkNotMasked(t *testing.T) {
	m := Mask("a [[Regular Link]] b")
	assert.Equal(t, 0, len(m.Regions))
	assert.Contains(t, m.Masked, "[[Regular Link]]")
}

func TestMaskUnmaskRoundTripMultipleRegions(t *testing.T) {
	roundTrip(t, "<!-- c --> {{t}} [[File:f.png]] <nowiki>n</nowiki>")
}

func TestMaskUnmaskRoundTripUnclosedComment(t *testing.T) {
	in := "before <!-- never closed"
	m := Mask(in)
	assert.Equal(t, 0, len(m.Regions))
	assert.Equal(t, in, m.Masked)
}

func TestMaskUnmaskRoundTripUnclosedTemplate(t *testing.T) {
	in := "before {{never closed"
	m := Mask(in)
	assert.Equal(t, 0, len(m.Regions))
}

func TestMaskUnmaskRoundTripUnclosedTag(t *testing.T) {
	in := "before <nowiki>never closed"
	m := Mask(in)
	assert.Equal(t, 0, len(m.Regions))
}

func TestMaskPreservesUTF8(t *testing.T) {
	roundTrip(t, "café {{témplate}} 日本語")
}

func TestMaskEmptyTemplate(t *testing.T) {
	roundTrip(t, "before {{}} after")
}

func TestMaskAdjacentRegions(t *testing.T) {
	roundTrip(t, "{{a}}{{b}}")
}

func TestMaskCaseInsensitiveTags(t *testing.T) {
	roundTrip(t, "<NOWIKI>keep THIS</NOWIKI>")
}

func TestMaskCaseInsensitiveFileLink(t *testing.T) {
	roundTrip(t, "[[file:example.png]]")
}

func TestMaskAlreadyContainsSentinelFailsClosed(t *testing.T) {
	poisoned := sentinelPrefix + "1N0" + sentinelSuffix
	m := Mask(poisoned)
	assert.Equal(t, poisoned, m.Masked)
	assert.Equal(t, 0, len(m.Regions))
	assert.Equal(t, poisoned, Unmask(m))
}

func TestUnmaskFailsClosedOnDeletedSentinel(t *testing.T) {
	in := "keep {{template}} safe"
	m := Mask(in)
	require.Equal(t, 1, len(m.Regions))
	m.Masked = strings.Replace(m.Masked, m.SentinelBase+"0"+sentinelSuffix, "", 1)
	assert.Equal(t, in, Unmask(m))
}

func TestUnmaskFailsClosedOnDuplicatedSentinel(t *testing.T) {
	in := "keep {{template}} safe"
	m := Mask(in)
	require.Equal(t, 1, len(m.Regions))
	sentinel := m.SentinelBase + "0" + sentinelSuffix
	m.Masked = m.Masked + sentinel
	assert.Equal(t, in, Unmask(m))
}

func TestUnmaskFailsClosedOnOutOfRangeIndex(t *testing.T) {
	in := "keep {{template}} safe"
	m := Mask(in)
	bad := m.SentinelBase + "99" + sentinelSuffix
	m.Masked = strings.Replace(m.Masked, m.SentinelBase+"0"+sentinelSuffix, bad, 1)
	assert.Equal(t, in, Unmask(m))
}

func TestNoncePreventsSentinelCollision(t *testing.T) {
	m1 := Mask("{{one}}")
	m2 := Mask("{{two}}")
	assert.NotEqual(t, m1.SentinelBase, m2.SentinelBase)
}

func TestWithMaskingAppliesFunctionOutsideRegions(t *testing.T) {
	out := WithMasking("Replace THIS but not <nowiki>THIS</nowiki>", func(s string) string {
		return strings.ReplaceAll(s, "THIS", "THAT")
	})
	assert.Equal(t, "Replace THAT but not <nowiki>THIS</nowiki>", out)
}

func TestWithMaskingEmptyInputShortCircuits(t *testing.T) {
	called := false
	out := WithMasking("", func(s string) string {
		called = true
		return s
	})
	assert.Equal(t, "", out)
	assert.False(t, called)
}

func TestWithMaskingUnaffectedTransformIsTransparent(t *testing.T) {
	in := "a {{t}} b"
	out := WithMasking(in, func(s string) string {
		return s + "!"
	})
	assert.Equal(t, in+"!", out)
}

func TestWithMaskingFailsClosedWhenTransformCorruptsSentinel(t *testing.T) {
	in := "a {{t}} b"
	out := WithMasking(in, func(s string) string {
		return strings.Replace(s, "N0", "N9", 1)
	})
	assert.Equal(t, in, out)
}

func TestASCIIFold(t *testing.T) {
	assert.Equal(t, "Cafe", ASCIIFold("Café"))
	assert.Equal(t, "Zurich", ASCIIFold("Zürich"))
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "Some page", NormalizeTitle("some_page"))
	assert.Equal(t, "Example", NormalizeTitle("  example  "))
}

func TestIsASCII(t *testing.T) {
	assert.True(t, IsASCII("hello"))
	assert.False(t, IsASCII("héllo"))
}
