// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines kept around a change
// in a generated hunk, matching git's default of 3.
const contextLines = 3

// lineOp is one line of a line-level diff, tagged with how it moves
// the old/new line cursors.
type lineOp struct {
	kind byte // ' ', '+', or '-'
	text string
}

// lineDiff computes a line-level unified diff between oldContent and
// newContent, returning insertion/deletion counts and the unified
// diff body (without the "diff --git"/index header lines).
//
// It uses diffmatchpatch's line-mode trick: each line is mapped to a
// single rune, diffed at the rune level (cheap and exact for line
// granularity), then mapped back to text. The resulting equal/insert/
// delete runs are flattened into per-line ops and regrouped into
// git-style hunks with surrounding context, so the output carries real
// "@@ -oldStart,oldCount +newStart,newCount @@" headers that downstream
// callers (GitStageHunk) can apply as patches.
func lineDiff(path, oldContent, newContent string) (insertions, deletions int, unified string) {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(oldChars, newChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var ops []lineOp
	for _, d := range diffs {
		var kind byte
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = '+'
		case diffmatchpatch.DiffDelete:
			kind = '-'
		default:
			kind = ' '
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			ops = append(ops, lineOp{kind: kind, text: line})
			switch kind {
			case '+':
				insertions++
			case '-':
				deletions++
			}
		}
	}

	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("--- a/%s\n+++ b/%s\n", path, path))
	buf.WriteString(formatHunks(ops))
	return insertions, deletions, buf.String()
}

// formatHunks groups ops into git-style hunks, each with up to
// contextLines of unchanged lines on either side of a change, and
// renders their "@@ -oldStart,oldCount +newStart,newCount @@" headers
// plus bodies.
func formatHunks(ops []lineOp) string {
	var changed []int
	for i, op := range ops {
		if op.kind != ' ' {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return ""
	}

	// Cluster changed indices whose surrounding context windows
	// overlap or touch into single hunks.
	type span struct{ lo, hi int } // inclusive op index range, context included
	var spans []span
	for _, idx := range changed {
		lo := idx - contextLines
		if lo < 0 {
			lo = 0
		}
		hi := idx + contextLines
		if hi >= len(ops) {
			hi = len(ops) - 1
		}
		if len(spans) > 0 && lo <= spans[len(spans)-1].hi+1 {
			if hi > spans[len(spans)-1].hi {
				spans[len(spans)-1].hi = hi
			}
			continue
		}
		spans = append(spans, span{lo: lo, hi: hi})
	}

	// Precompute, for each op index, the 1-based old/new line number
	// it would occupy.
	oldLineAt := make([]int, len(ops)+1)
	newLineAt := make([]int, len(ops)+1)
	oldLine, newLine := 1, 1
	for i, op := range ops {
		oldLineAt[i] = oldLine
		newLineAt[i] = newLine
		switch op.kind {
		case ' ':
			oldLine++
			newLine++
		case '+':
			newLine++
		case '-':
			oldLine++
		}
	}
	oldLineAt[len(ops)] = oldLine
	newLineAt[len(ops)] = newLine

	var buf strings.Builder
	for _, sp := range spans {
		oldCount, newCount := 0, 0
		var body strings.Builder
		for i := sp.lo; i <= sp.hi; i++ {
			op := ops[i]
			switch op.kind {
			case ' ':
				oldCount++
				newCount++
				body.WriteString(" " + op.text)
			case '+':
				newCount++
				body.WriteString("+" + op.text)
			case '-':
				oldCount++
				body.WriteString("-" + op.text)
			}
			if !strings.HasSuffix(op.text, "\n") {
				body.WriteString("\n")
			}
		}
		oldStart := oldLineAt[sp.lo]
		newStart := newLineAt[sp.lo]
		buf.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount))
		buf.WriteString(body.String())
	}
	return buf.String()
}
