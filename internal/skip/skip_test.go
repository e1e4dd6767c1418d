package skip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/wikibot/awb/domain"
)

func TestEngineEvaluateNoPredicatesProcesses(t *testing.T) {
	e := New()
	r := e.Evaluate(domain.Page{})
	assert.False(t, r.Skip)
}

func TestEngineEvaluateStopsAtFirstSkip(t *testing.T) {
	e := New(
		IsRedirect{Enabled: true},
		Protection{MaxLevel: domain.ProtectionNone},
	)
	page := domain.Page{IsRedirect: true, Protection: domain.ProtectionSysop}
	r := e.Evaluate(page)
	require.True(t, r.Skip)
	assert.Equal(t, "page is a redirect", r.Reason)
}

func TestNamespaceSkipsOutsideAllowed(t *testing.T) {
	n := NewNamespace([]int{0, 1})
	assert.True(t, n.Evaluate(domain.Page{Title: domain.Title{Namespace: 2}}).Skip)
	assert.False(t, n.Evaluate(domain.Page{Title: domain.Title{Namespace: 0}}).Skip)
}

func TestRegexSkipsNonMatch(t *testing.T) {
	r, errE := NewRegex(`foo`, false)
	require.NoError(t, errE)
	assert.True(t, r.Evaluate(domain.Page{Markup: "bar"}).Skip)
	assert.False(t, r.Evaluate(domain.Page{Markup: "foobar"}).Skip)
}

func TestRegexInvertedSkipsMatch(t *testing.T) {
	r, errE := NewRegex(`foo`, true)
	require.NoError(t, errE)
	assert.True(t, r.Evaluate(domain.Page{Markup: "foobar"}).Skip)
	assert.False(t, r.Evaluate(domain.Page{Markup: "bar"}).Skip)
}

func TestNewRegexRejectsInvalidPattern(t *testing.T) {
	_, errE := NewRegex(`(`, false)
	assert.Error(t, errE)
}

func TestPageSizeBounds(t *testing.T) {
	p := PageSize{Min: 10, HasMin: true, Max: 100, HasMax: true}
	assert.True(t, p.Evaluate(domain.Page{SizeBytes: 5}).Skip)
	assert.True(t, p.Evaluate(domain.Page{SizeBytes: 200}).Skip)
	assert.False(t, p.Evaluate(domain.Page{SizeBytes: 50}).Skip)
}

func TestPageSizeUnsetBoundsNeverSkip(t *testing.T) {
	p := PageSize{}
	assert.False(t, p.Evaluate(domain.Page{SizeBytes: 999999}).Skip)
}

func TestProtectionSkipsAboveMax(t *testing.T) {
	p := Protection{MaxLevel: domain.ProtectionAutoconfirmed}
	assert.True(t, p.Evaluate(domain.Page{Protection: domain.ProtectionSysop}).Skip)
	assert.False(t, p.Evaluate(domain.Page{Protection: domain.ProtectionNone}).Skip)
}

func TestIsRedirectDisabledNeverSkips(t *testing.T) {
	r := IsRedirect{Enabled: false}
	assert.False(t, r.Evaluate(domain.Page{IsRedirect: true}).Skip)
}

func TestIsDisambigSkipsWhenEnabled(t *testing.T) {
	d := IsDisambig{Enabled: true}
	assert.True(t, d.Evaluate(domain.Page{Properties: domain.Properties{IsDisambig: true}}).Skip)
	assert.False(t, d.Evaluate(domain.Page{}).Skip)
}
