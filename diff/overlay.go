package diff

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Segment is a byte range [Start, Start+Count) within one line.
type Segment struct {
	Start int
	Count int
}

// VirtualLine is reference content rendered above a real line. Segs are the
// changed ranges to highlight; nil means the whole line is highlighted.
type VirtualLine struct {
	Text string
	Segs []Segment
}

// wordDiff computes intra-line changed ranges between a reference line and
// its paired current line. Fragments separated by at most gap unchanged
// bytes merge into one range, which keeps highlighting from shattering into
// per-character confetti; the default gap sits just under the average word
// length.
func wordDiff(refLine, curLine string, gap int) (refSegs, curSegs []Segment) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(refLine, curLine, false)

	refPos, curPos := 0, 0
	for _, d := range diffs {
		n := len(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			refPos += n
			curPos += n
		case diffmatchpatch.DiffDelete:
			refSegs = append(refSegs, Segment{Start: refPos, Count: n})
			refPos += n
		case diffmatchpatch.DiffInsert:
			curSegs = append(curSegs, Segment{Start: curPos, Count: n})
			curPos += n
		}
	}
	return mergeSegments(refSegs, gap), mergeSegments(curSegs, gap)
}

// mergeSegments joins segments whose gap is at most gap bytes.
func mergeSegments(segs []Segment, gap int) []Segment {
	if len(segs) < 2 {
		return segs
	}
	out := segs[:1]
	for _, s := range segs[1:] {
		last := &out[len(out)-1]
		if s.Start-(last.Start+last.Count) <= gap {
			last.Count = s.Start + s.Count - last.Start
		} else {
			out = append(out, s)
		}
	}
	return out
}

// overlayHunk renders one hunk's overlay: virtual reference lines and
// inline current-line highlights.
func (e *Engine) overlayHunk(r Renderer, id int, refLines, curLines []string, h Hunk) {
	switch h.Type {
	case HunkAdd:
		// no reference content; the added range is already marked inline
		// by the draw table
		return

	case HunkDelete:
		anchor := max(h.CurStart, 1)
		vls := make([]VirtualLine, 0, h.RefCount)
		for i := 0; i < h.RefCount; i++ {
			vls = append(vls, VirtualLine{Text: lineAt(refLines, h.RefStart+i)})
		}
		// a deletion at line 1 renders above line 1; some renderers need a
		// manual scroll to reveal virtual lines there
		r.VirtualLines(id, anchor, vls, StyleDeleteText)

	case HunkChange:
		if h.RefCount != h.CurCount {
			e.overlayBlock(r, id, refLines, h)
			return
		}
		for i := 0; i < h.RefCount; i++ {
			refLine := lineAt(refLines, h.RefStart+i)
			curLine := lineAt(curLines, h.CurStart+i)
			refSegs, curSegs := wordDiff(refLine, curLine, e.opts.OverlayGap)

			r.VirtualLines(id, h.CurStart+i, []VirtualLine{{Text: refLine, Segs: refSegs}}, StyleChangeText)
			for _, seg := range curSegs {
				r.HighlightRange(id, h.CurStart+i, seg.Start, seg.Start+seg.Count,
					StyleChangeText, e.opts.Priorities[HunkChange])
			}
		}
	}
}

// overlayBlock handles change hunks without 1:1 line correspondence: every
// reference line shows fully highlighted above the first current line,
// padded to a common visual width.
func (e *Engine) overlayBlock(r Renderer, id int, refLines []string, h Hunk) {
	width := 0
	for i := 0; i < h.RefCount; i++ {
		width = max(width, runewidth.StringWidth(lineAt(refLines, h.RefStart+i)))
	}
	vls := make([]VirtualLine, 0, h.RefCount)
	for i := 0; i < h.RefCount; i++ {
		text := lineAt(refLines, h.RefStart+i)
		pad := width - runewidth.StringWidth(text)
		vls = append(vls, VirtualLine{Text: text + strings.Repeat(" ", pad)})
	}
	r.VirtualLines(id, max(h.CurStart, 1), vls, StyleChangeText)
}

// lineAt returns 1-based line n, or "" out of range.
func lineAt(lines []string, n int) string {
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}
