// Package diff implements an incremental line-level diff engine: hunk
// computation against a reference text, per-hunk summaries and draw
// annotations, overlay word-diff for changed lines, and a debounced
// per-buffer update scheduler.
package diff

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// HunkType classifies a hunk by its zero-count side.
type HunkType int

const (
	HunkAdd HunkType = iota
	HunkChange
	HunkDelete
)

func (t HunkType) String() string {
	switch t {
	case HunkAdd:
		return "add"
	case HunkChange:
		return "change"
	case HunkDelete:
		return "delete"
	}
	return "unknown"
}

// Hunk correlates a contiguous range of reference lines with a contiguous
// range of current lines. Line numbers are 1-based; a zero-count side's
// start names the line after which the region sits (0 before line 1).
type Hunk struct {
	Type     HunkType
	RefStart int
	RefCount int
	CurStart int
	CurCount int
}

// Summary counts lines touched by a hunk list.
type Summary struct {
	Add    int
	Change int
	Delete int
}

// Summarize folds hunks into line counts: each hunk contributes
// min(refCount, curCount) changed lines and the remainders as adds/deletes.
func Summarize(hunks []Hunk) Summary {
	var s Summary
	for _, h := range hunks {
		changed := min(h.RefCount, h.CurCount)
		s.Change += changed
		s.Add += h.CurCount - changed
		s.Delete += h.RefCount - changed
	}
	return s
}

// computeHunks diffs reference text against current text line-wise and
// returns ordered, non-overlapping hunks. Both inputs must be
// newline-terminated; the engine guarantees that so end-of-file edits make
// well-formed hunks instead of a phantom trailing hunk.
func computeHunks(ref, cur string, timeout time.Duration) []Hunk {
	if ref == cur {
		return nil
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = timeout // 0 means exact, unbounded
	ca, cb, lineArray := dmp.DiffLinesToChars(ref, cur)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lineArray)

	var (
		hunks              []Hunk
		refLine, curLine   = 1, 1
		refN, curN         int
		refStart, curStart int
	)
	open := func() {
		if refN == 0 && curN == 0 {
			refStart, curStart = refLine, curLine
		}
	}
	flush := func() {
		if refN == 0 && curN == 0 {
			return
		}
		h := Hunk{RefStart: refStart, RefCount: refN, CurStart: curStart, CurCount: curN}
		switch {
		case refN == 0:
			h.Type = HunkAdd
			h.RefStart = refStart - 1
		case curN == 0:
			h.Type = HunkDelete
			h.CurStart = curStart - 1
		default:
			h.Type = HunkChange
		}
		hunks = append(hunks, h)
		refN, curN = 0, 0
	}

	for _, d := range diffs {
		n := countLines(d.Text)
		if n == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			refLine += n
			curLine += n
		case diffmatchpatch.DiffDelete:
			open()
			refN += n
			refLine += n
		case diffmatchpatch.DiffInsert:
			open()
			curN += n
			curLine += n
		}
	}
	flush()
	return hunks
}

// countLines counts text lines, treating an unterminated trailing fragment
// as one line.
func countLines(text string) int {
	n := strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// ApplyHunks returns the reference text with the selected hunks applied,
// taking each hunk's current-line range from curLines. This is how selected
// changes are committed back into a reference (e.g. staged). Hunks must be
// in ascending order, as produced by the engine.
func ApplyHunks(refText string, curLines []string, hunks []Hunk) string {
	refLines := splitLines(refText)

	// apply bottom-up so earlier line numbers stay valid
	for i := len(hunks) - 1; i >= 0; i-- {
		h := hunks[i]
		repl := curLines[clamp(h.CurStart-1, 0, len(curLines)):clamp(h.CurStart-1+h.CurCount, 0, len(curLines))]

		var lo int
		switch h.Type {
		case HunkAdd:
			lo = clamp(h.RefStart, 0, len(refLines)) // insert after RefStart
			refLines = splice(refLines, lo, lo, repl)
		default:
			lo = clamp(h.RefStart-1, 0, len(refLines))
			hi := clamp(lo+h.RefCount, 0, len(refLines))
			refLines = splice(refLines, lo, hi, repl)
		}
	}

	if len(refLines) == 0 {
		return ""
	}
	return strings.Join(refLines, "\n") + "\n"
}

// splitLines splits newline-terminated text into lines without the trailing
// empty element.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func splice(lines []string, lo, hi int, repl []string) []string {
	out := make([]string, 0, len(lines)-(hi-lo)+len(repl))
	out = append(out, lines[:lo]...)
	out = append(out, repl...)
	out = append(out, lines[hi:]...)
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
