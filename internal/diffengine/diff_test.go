package diffengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/wikibot/awb/domain"
)

func reconstruct(ops []domain.DiffOp, old bool) string {
	var b strings.Builder
	for _, op := range ops {
		if old {
			switch op.Kind {
			case domain.DiffEqual, domain.DiffDelete, domain.DiffReplace:
				b.WriteString(op.OldText)
			}
		} else {
			switch op.Kind {
			case domain.DiffEqual, domain.DiffInsert, domain.DiffReplace:
				b.WriteString(op.NewText)
			}
		}
	}
	return b.String()
}

func TestComputeTilesBothInputs(t *testing.T) {
	cases := []struct{ old, new string }{
		{"", ""},
		{"a\nb\nc\n", "a\nb\nc\n"},
		{"a\nb\nc\n", "a\nx\nc\n"},
		{"", "a\nb\n"},
		{"a\nb\n", ""},
		{"a\n", "a\nb\nc\n"},
		{"line1\nline2\nline3\n", "line1\nline3\n"},
	}
	for _, c := range cases {
		ops := Compute(c.old, c.new)
		assert.Equal(t, c.old, reconstruct(ops, true))
		assert.Equal(t, c.new, reconstruct(ops, false))
	}
}

func TestComputeNoChangeIsAllEqual(t *testing.T) {
	ops := Compute("same\ntext\n", "same\ntext\n")
	for _, op := range ops {
		assert.Equal(t, domain.DiffEqual, op.Kind)
	}
}

func TestToUnifiedEmptyOpsIsEmpty(t *testing.T) {
	assert.Equal(t, "", ToUnified(nil, 3))
}

func TestToUnifiedNoChangeIsEmpty(t *testing.T) {
	ops := Compute("a\nb\n", "a\nb\n")
	assert.Equal(t, "", ToUnified(ops, 3))
}

func TestToUnifiedHasHeadersAndHunk(t *testing.T) {
	ops := Compute("a\nb\nc\n", "a\nx\nc\n")
	out := ToUnified(ops, 1)
	assert.Contains(t, out, "--- a\n+++ b\n")
	assert.Contains(t, out, "@@ -")
	assert.Contains(t, out, "-b\n")
	assert.Contains(t, out, "+x\n")
}

func TestToUnifiedSynthesizesTrailingNewline(t *testing.T) {
	ops := Compute("a", "b")
	out := ToUnified(ops, 0)
	assert.Contains(t, out, "-a\n")
	assert.Contains(t, out, "+b\n")
}

func TestToUnifiedContextLinesLimiting(t *testing.T) {
	ops := Compute("1\n2\n3\n4\n5\nX\n7\n8\n9\n10\n", "1\n2\n3\n4\n5\nY\n7\n8\n9\n10\n")
	out := ToUnified(ops, 1)
	assert.NotContains(t, out, " 1\n")
	assert.Contains(t, out, " 5\n")
	assert.Contains(t, out, " 7\n")
}

func TestToSideBySideEqualProducesPairs(t *testing.T) {
	ops := Compute("a\nb\n", "a\nb\n")
	rows := ToSideBySide(ops)
	for _, r := range rows {
		assert.NotNil(t, r.Left)
		assert.NotNil(t, r.Right)
		assert.Equal(t, *r.Left, *r.Right)
	}
}

func TestToSideBySideDeleteIsLeftOnly(t *testing.T) {
	ops := Compute("a\nb\n", "a\n")
	rows := ToSideBySide(ops)
	found := false
	for _, r := range rows {
		if r.Left != nil && r.Right == nil {
			found = true
		}
	}
	assert.True(t, found)
}

func TestToSideBySideInsertIsRightOnly(t *testing.T) {
	ops := Compute("a\n", "a\nb\n")
	rows := ToSideBySide(ops)
	found := false
	for _, r := range rows {
		if r.Right != nil && r.Left == nil {
			found = true
		}
	}
	assert.True(t, found)
}

func TestToSideBySideReplaceAligns(t *testing.T) {
	ops := []domain.DiffOp{
		{Kind: domain.DiffReplace, OldText: "one\ntwo\n", NewText: "uno\ndos\ntres\n"},
	}
	rows := ToSideBySide(ops)
	assert.Equal(t, 3, len(rows))
	assert.Nil(t, rows[2].Left)
	assert.Equal(t, "tres\n", *rows[2].Right)
}

func TestComputeEmptyOps(t *testing.T) {
	ops := Compute("", "")
	assert.Empty(t, ops)
}
