package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/wikibot/awb/domain"
)

func TestSetAddAssignsDenseOrder(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{Enabled: true})
	s.Add(domain.Rule{Enabled: true})
	r := s.Add(domain.Rule{Enabled: true})
	assert.Equal(t, 2, r.Order)
	for i, rule := range s.Rules() {
		assert.Equal(t, i, rule.Order)
	}
}

func TestSetAddGeneratesID(t *testing.T) {
	s := NewSet()
	r := s.Add(domain.Rule{Enabled: true})
	assert.NotEmpty(t, r.ID)
}

func TestReorderPreservesSetAndDensifiesOrder(t *testing.T) {
	s := NewSet()
	a := s.Add(domain.Rule{ID: "a", Enabled: true})
	b := s.Add(domain.Rule{ID: "b", Enabled: true})
	c := s.Add(domain.Rule{ID: "c", Enabled: true})
	s.Reorder(2, 0)

	rules := s.Rules()
	require.Len(t, rules, 3)
	assert.Equal(t, "c", rules[0].ID)
	assert.Equal(t, "a", rules[1].ID)
	assert.Equal(t, "b", rules[2].ID)
	for i, rule := range rules {
		assert.Equal(t, i, rule.Order)
	}

	ids := map[string]bool{}
	for _, rule := range rules {
		ids[rule.ID] = true
	}
	assert.True(t, ids[a.ID] && ids[b.ID] && ids[c.ID])
}

func TestReorderOutOfBoundsIsNoOp(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{ID: "a", Enabled: true})
	s.Reorder(5, 0)
	assert.Len(t, s.Rules(), 1)
}

func TestCompileLiteralCaseSensitive(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{ID: "r1", Enabled: true, Kind: domain.RuleKindLiteral, Find: "teh", Replace: "the", CaseSensitive: true})
	compiled, errE := Compile(s)
	require.NoError(t, errE)
	require.Len(t, compiled, 1)
	out, changed := Apply(compiled[0], "This is teh test")
	assert.True(t, changed)
	assert.Equal(t, "This is the test", out)
}

func TestCompileLiteralCaseInsensitive(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{ID: "r1", Enabled: true, Kind: domain.RuleKindLiteral, Find: "Teh", Replace: "the", CaseSensitive: false})
	compiled, errE := Compile(s)
	require.NoError(t, errE)
	out, changed := Apply(compiled[0], "This is TEH test")
	assert.True(t, changed)
	assert.Equal(t, "This is the test", out)
}

func TestCompileLiteralCaseInsensitiveReplacementIsVerbatim(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{ID: "r1", Enabled: true, Kind: domain.RuleKindLiteral, Find: "price", Replace: "$100", CaseSensitive: false})
	compiled, errE := Compile(s)
	require.NoError(t, errE)
	out, changed := Apply(compiled[0], "the PRICE is set")
	assert.True(t, changed)
	assert.Equal(t, "the $100 is set", out)
}

func TestCompilePattern(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{ID: "r1", Enabled: true, Kind: domain.RuleKindPattern, Pattern: "  +", Replacement: " "})
	compiled, errE := Compile(s)
	require.NoError(t, errE)
	out, changed := Apply(compiled[0], "a   b")
	assert.True(t, changed)
	assert.Equal(t, "a b", out)
}

func TestCompileInvalidRegexErrors(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{ID: "bad", Enabled: true, Kind: domain.RuleKindPattern, Pattern: "[invalid("})
	_, errE := Compile(s)
	require.Error(t, errE)
}

func TestCompileSkipsDisabledRules(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{ID: "r1", Enabled: false, Kind: domain.RuleKindLiteral, Find: "x", Replace: "y", CaseSensitive: true})
	compiled, errE := Compile(s)
	require.NoError(t, errE)
	assert.Empty(t, compiled)
}

func TestApplyNoChange(t *testing.T) {
	s := NewSet()
	s.Add(domain.Rule{ID: "r1", Enabled: true, Kind: domain.RuleKindLiteral, Find: "zzz", Replace: "yyy", CaseSensitive: true})
	compiled, _ := Compile(s)
	out, changed := Apply(compiled[0], "no match here")
	assert.False(t, changed)
	assert.Equal(t, "no match here", out)
}
