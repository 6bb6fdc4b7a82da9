package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordDiffRanges(t *testing.T) {
	assert := assert.New(t)

	refSegs, curSegs := wordDiff("hello world", "hello there", 0)
	assert.NotEmpty(refSegs)
	assert.NotEmpty(curSegs)

	// every reference segment names bytes of the reference line
	for _, s := range refSegs {
		assert.GreaterOrEqual(s.Start, 0)
		assert.LessOrEqual(s.Start+s.Count, len("hello world"))
	}
	for _, s := range curSegs {
		assert.LessOrEqual(s.Start+s.Count, len("hello there"))
	}
}

func TestWordDiffEqualLines(t *testing.T) {
	assert := assert.New(t)

	refSegs, curSegs := wordDiff("same", "same", 4)
	assert.Empty(refSegs)
	assert.Empty(curSegs)
}

func TestWordDiffMergeGap(t *testing.T) {
	assert := assert.New(t)

	// "aXbXc" vs "aYbYc": two single-char changes separated by one byte;
	// gap 4 merges them into a single range, gap 0 keeps them apart
	_, merged := wordDiff("aXbXc", "aYbYc", 4)
	assert.Len(merged, 1)
	assert.Equal(Segment{Start: 1, Count: 3}, merged[0])

	_, split := wordDiff("aXbXc", "aYbYc", 0)
	assert.Len(split, 2)
}

func TestMergeSegments(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name string
		in   []Segment
		gap  int
		want []Segment
	}{
		{"empty", nil, 4, nil},
		{"single", []Segment{{0, 2}}, 4, []Segment{{0, 2}}},
		{
			"within gap",
			[]Segment{{0, 2}, {5, 1}}, 4,
			[]Segment{{0, 6}},
		},
		{
			"beyond gap",
			[]Segment{{0, 2}, {10, 1}}, 4,
			[]Segment{{0, 2}, {10, 1}},
		},
		{
			"adjacent",
			[]Segment{{0, 2}, {2, 2}}, 0,
			[]Segment{{0, 4}},
		},
	}
	for _, tc := range cases {
		got := mergeSegments(append([]Segment(nil), tc.in...), tc.gap)
		assert.Equal(tc.want, got, tc.name)
	}
}

// recordingRenderer captures renderer calls for assertions.
type recordingRenderer struct {
	lineHl  []Annotation
	ranges  []rangeCall
	virtual []virtualCall
	cleared []int
}

type rangeCall struct {
	buf, line, start, end int
	style                 Style
}

type virtualCall struct {
	buf, line int
	lines     []VirtualLine
	style     Style
}

func (r *recordingRenderer) HighlightLine(buf, line int, style Style, priority int) {
	r.lineHl = append(r.lineHl, Annotation{Line: line, Style: style, Priority: priority})
}

func (r *recordingRenderer) HighlightRange(buf, line, startCol, endCol int, style Style, priority int) {
	r.ranges = append(r.ranges, rangeCall{buf, line, startCol, endCol, style})
}

func (r *recordingRenderer) VirtualLines(buf, line int, lines []VirtualLine, style Style) {
	r.virtual = append(r.virtual, virtualCall{buf, line, lines, style})
}

func (r *recordingRenderer) Clear(buf int) { r.cleared = append(r.cleared, buf) }

func TestOverlayChangeOneToOne(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEngine(Options{})
	assert.NoError(err)
	defer e.Close()

	assert.NoError(e.Enable(1, []string{"hello there"}, nil))
	e.SetRef(1, "hello world\n")
	e.RecomputeNow(1)
	e.ToggleOverlay(1)

	r := &recordingRenderer{}
	e.Redraw(r)

	// one virtual reference line above line 1 with changed segments
	assert.Len(r.virtual, 1)
	assert.Equal(1, r.virtual[0].line)
	assert.Equal(StyleChangeText, r.virtual[0].style)
	assert.Equal("hello world", r.virtual[0].lines[0].Text)
	assert.NotEmpty(r.virtual[0].lines[0].Segs)

	// inline highlights on the current line
	assert.NotEmpty(r.ranges)
	for _, rc := range r.ranges {
		assert.Equal(1, rc.line)
		assert.Equal(StyleChangeText, rc.style)
	}
}

func TestOverlayChangeBlock(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEngine(Options{})
	assert.NoError(err)
	defer e.Close()

	// 2 ref lines vs 1 current line: no 1:1 pairing, so both reference
	// lines render as fully-highlighted virtual lines padded to one width
	assert.NoError(e.Enable(1, []string{"merged"}, nil))
	e.SetRef(1, "long reference line\nshort\n")
	e.RecomputeNow(1)
	e.ToggleOverlay(1)

	r := &recordingRenderer{}
	e.Redraw(r)

	assert.Len(r.virtual, 1)
	vls := r.virtual[0].lines
	assert.Len(vls, 2)
	assert.Nil(vls[0].Segs, "block virtual lines are fully highlighted")
	assert.Equal(len(vls[0].Text), len(vls[1].Text), "padded to common width")
	assert.Empty(r.ranges)
}

func TestOverlayDelete(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEngine(Options{})
	assert.NoError(err)
	defer e.Close()

	assert.NoError(e.Enable(1, []string{"a", "c"}, nil))
	e.SetRef(1, "a\nb\nc\n")
	e.RecomputeNow(1)
	e.ToggleOverlay(1)

	r := &recordingRenderer{}
	e.Redraw(r)

	assert.Len(r.virtual, 1)
	assert.Equal(StyleDeleteText, r.virtual[0].style)
	assert.Equal([]VirtualLine{{Text: "b"}}, r.virtual[0].lines)
	assert.GreaterOrEqual(r.virtual[0].line, 1, "anchor clamped to line 1 or below")
}

func TestOverlayAddInlineOnly(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEngine(Options{})
	assert.NoError(err)
	defer e.Close()

	assert.NoError(e.Enable(1, []string{"a", "b"}, nil))
	e.SetRef(1, "a\n")
	e.RecomputeNow(1)
	e.ToggleOverlay(1)

	r := &recordingRenderer{}
	e.Redraw(r)

	assert.Empty(r.virtual, "add hunks have no reference content")
	assert.NotEmpty(r.lineHl)
}
