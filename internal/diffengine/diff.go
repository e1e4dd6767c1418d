// Package diffengine computes a line-level edit script between two texts
// and renders it as a unified diff or as side-by-side lines.
package diffengine

import (
	"fmt"
	"strings"

	"gitlab.com/wikibot/awb/domain"
)

// Compute returns the ordered list of DiffOp that tiles old and new exactly:
// concatenating the old-side text of every op reproduces old, and
// concatenating the new-side text reproduces new.
func Compute(old, newText string) []domain.DiffOp {
	oldLines := splitKeepEnds(old)
	newLines := splitKeepEnds(newText)

	matches := lcs(oldLines, newLines)

	var ops []domain.DiffOp
	oldPos, newPos := 0, 0
	oi, ni := 0, 0

	flushReplace := func(oldText, newText string, oStart, oEnd, nStart, nEnd int) {
		switch {
		case oldText == "" && newText == "":
			return
		case oldText == "":
			ops = append(ops, domain.DiffOp{Kind: domain.DiffInsert, OldStart: oStart, OldEnd: oEnd, NewStart: nStart, NewEnd: nEnd, NewText: newText})
		case newText == "":
			ops = append(ops, domain.DiffOp{Kind: domain.DiffDelete, OldStart: oStart, OldEnd: oEnd, NewStart: nStart, NewEnd: nEnd, OldText: oldText})
		default:
			ops = append(ops, domain.DiffOp{Kind: domain.DiffReplace, OldStart: oStart, OldEnd: oEnd, NewStart: nStart, NewEnd: nEnd, OldText: oldText, NewText: newText})
		}
	}

	for _, match := range matches {
		var pendingOld, pendingNew strings.Builder
		pendingOldStart, pendingNewStart := oldPos, newPos

		for oi < match.oldIndex {
			pendingOld.WriteString(oldLines[oi])
			oldPos += len(oldLines[oi])
			oi++
		}
		for ni < match.newIndex {
			pendingNew.WriteString(newLines[ni])
			newPos += len(newLines[ni])
			ni++
		}
		flushReplace(pendingOld.String(), pendingNew.String(), pendingOldStart, oldPos, pendingNewStart, newPos)

		line := oldLines[match.oldIndex]
		ops = append(ops, domain.DiffOp{
			Kind:     domain.DiffEqual,
			OldStart: oldPos, OldEnd: oldPos + len(line),
			NewStart: newPos, NewEnd: newPos + len(newLines[match.newIndex]),
			OldText: line, NewText: newLines[match.newIndex],
		})
		oldPos += len(line)
		newPos += len(newLines[match.newIndex])
		oi++
		ni++
	}

	// Trailing tail after the last match.
	var pendingOld, pendingNew strings.Builder
	pendingOldStart, pendingNewStart := oldPos, newPos
	for oi < len(oldLines) {
		pendingOld.WriteString(oldLines[oi])
		oldPos += len(oldLines[oi])
		oi++
	}
	for ni < len(newLines) {
		pendingNew.WriteString(newLines[ni])
		newPos += len(newLines[ni])
		ni++
	}
	flushReplace(pendingOld.String(), pendingNew.String(), pendingOldStart, oldPos, pendingNewStart, newPos)

	return ops
}

type lcsMatch struct {
	oldIndex int
	newIndex int
}

// lcs returns the longest common subsequence of equal lines between a and b,
// as a list of (oldIndex, newIndex) pairs in increasing order, computed via
// the standard O(n*m) dynamic-programming table. This is adequate for the
// line counts a single wiki page produces.
func lcs(a, b []string) []lcsMatch {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	dp := make([][]int32, n+1)
	for i := range dp {
		dp[i] = make([]int32, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}
	var matches []lcsMatch
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			matches = append(matches, lcsMatch{i, j})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return matches
}

// splitKeepEnds splits s into lines, each retaining its trailing "\n" (the
// last line may lack one). Empty input yields no lines.
func splitKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type taggedLine struct {
	kind domain.DiffOpKind
	text string
}

// flattenToLines expands DiffOps into a flat per-line sequence, one entry
// per line of each op's text, splitting Replace into its Delete lines
// followed by its Insert lines, matching the reference renderer's
// hunk-construction approach.
func flattenToLines(ops []domain.DiffOp) []taggedLine {
	var lines []taggedLine
	add := func(kind domain.DiffOpKind, text string) {
		for _, l := range splitKeepEnds(text) {
			lines = append(lines, taggedLine{kind, l})
		}
	}
	for _, op := range ops {
		switch op.Kind {
		case domain.DiffEqual:
			add(domain.DiffEqual, op.OldText)
		case domain.DiffDelete:
			add(domain.DiffDelete, op.OldText)
		case domain.DiffInsert:
			add(domain.DiffInsert, op.NewText)
		case domain.DiffReplace:
			add(domain.DiffDelete, op.OldText)
			add(domain.DiffInsert, op.NewText)
		}
	}
	return lines
}

type hunk struct {
	start, end int // indices into the flattened line slice, end exclusive
}

// ToUnified renders ops as a unified diff with contextLines of context
// around each change region; overlapping/touching hunks are merged. Empty
// ops, or ops containing only Equal, render to "".
func ToUnified(ops []domain.DiffOp, contextLines int) string {
	lines := flattenToLines(ops)
	if len(lines) == 0 {
		return ""
	}

	var changeRegions []hunk
	i := 0
	for i < len(lines) {
		if lines[i].kind == domain.DiffEqual {
			i++
			continue
		}
		start := i
		for i < len(lines) && lines[i].kind != domain.DiffEqual {
			i++
		}
		changeRegions = append(changeRegions, hunk{start, i})
	}
	if len(changeRegions) == 0 {
		return ""
	}

	var hunks []hunk
	for _, r := range changeRegions {
		start := r.start - contextLines
		if start < 0 {
			start = 0
		}
		end := r.end + contextLines
		if end > len(lines) {
			end = len(lines)
		}
		if len(hunks) > 0 && start <= hunks[len(hunks)-1].end {
			hunks[len(hunks)-1].end = end
			continue
		}
		hunks = append(hunks, hunk{start, end})
	}

	var out strings.Builder
	out.WriteString("--- a\n+++ b\n")

	for _, h := range hunks {
		oldStart, oldCount, newStart, newCount := 0, 0, 0, 0
		oldLine, newLine := 0, 0
		// Compute 1-based starting line numbers by counting lines before h.start.
		for j := 0; j < h.start; j++ {
			switch lines[j].kind {
			case domain.DiffEqual:
				oldLine++
				newLine++
			case domain.DiffDelete:
				oldLine++
			case domain.DiffInsert:
				newLine++
			}
		}
		oldStart, newStart = oldLine+1, newLine+1
		if h.start == h.end {
			oldStart, newStart = oldLine, newLine
		}

		var body strings.Builder
		for j := h.start; j < h.end; j++ {
			l := lines[j]
			text := l.text
			synthesized := ""
			if !strings.HasSuffix(text, "\n") {
				synthesized = "\n"
			}
			switch l.kind {
			case domain.DiffEqual:
				body.WriteString(" " + text + synthesized)
				oldCount++
				newCount++
			case domain.DiffDelete:
				body.WriteString("-" + text + synthesized)
				oldCount++
			case domain.DiffInsert:
				body.WriteString("+" + text + synthesized)
				newCount++
			}
		}

		fmt.Fprintf(&out, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		out.WriteString(body.String())
	}

	return out.String()
}

// SideBySideLine is one row of a side-by-side rendering; either side may be
// absent (Delete produces a left-only row, Insert a right-only row).
type SideBySideLine struct {
	Left     *string
	Right    *string
}

// ToSideBySide pairs up old/new lines: Equal produces a matching pair,
// Delete a left-only row, Insert a right-only row, and Replace aligns by
// index within the block up to max(len(old lines), len(new lines)).
func ToSideBySide(ops []domain.DiffOp) []SideBySideLine {
	var out []SideBySideLine
	for _, op := range ops {
		switch op.Kind {
		case domain.DiffEqual:
			l, r := op.OldText, op.NewText
			out = append(out, SideBySideLine{Left: &l, Right: &r})
		case domain.DiffDelete:
			l := op.OldText
			out = append(out, SideBySideLine{Left: &l})
		case domain.DiffInsert:
			r := op.NewText
			out = append(out, SideBySideLine{Right: &r})
		case domain.DiffReplace:
			oldLines := strings.SplitAfter(op.OldText, "\n")
			oldLines = trimTrailingEmpty(oldLines)
			newLines := strings.SplitAfter(op.NewText, "\n")
			newLines = trimTrailingEmpty(newLines)
			max := len(oldLines)
			if len(newLines) > max {
				max = len(newLines)
			}
			for i := 0; i < max; i++ {
				var row SideBySideLine
				if i < len(oldLines) {
					l := oldLines[i]
					row.Left = &l
				}
				if i < len(newLines) {
					r := newLines[i]
					row.Right = &r
				}
				out = append(out, row)
			}
		}
	}
	return out
}

func trimTrailingEmpty(lines []string) []string {
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	return lines
}
