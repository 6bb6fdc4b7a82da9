package picker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mvank/winnow/match"
)

func itemText(v any) string { return fmt.Sprint(v) }

func newTestState(items ...string) *State {
	s := NewState(5, false)
	vals := make([]any, len(items))
	for i, it := range items {
		vals[i] = it
	}
	s.SetItems(vals, itemText)
	return s
}

func typeQuery(s *State, q string) {
	for _, r := range q {
		if s.AppendChar(string(r)) {
			s.Refilter()
		}
	}
}

func TestUnresolvedItemsAreNoOps(t *testing.T) {
	assert := assert.New(t)

	s := NewState(5, false)
	typeQuery(s, "ab")
	s.MoveCurrent(1)
	s.MovePage(1)
	s.ToggleMark()

	assert.Empty(s.MatchInds())
	_, _, ok := s.CurrentItem()
	assert.False(ok)
	from, to := s.Window()
	assert.Greater(from, to, "window must be empty")
}

func TestEmptyQueryIsIdentity(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("b", "a", "c")
	assert.Equal([]int{0, 1, 2}, s.MatchInds(), "no ranking on empty query")
}

func TestIncrementalNarrowing(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("abc", "bcd", "xab")
	typeQuery(s, "ab")
	assert.Equal([]int{0, 2}, s.MatchInds())

	typeQuery(s, "c")
	assert.Equal([]int{0}, s.MatchInds())

	// deleting re-widens even though the narrowed pool lost index 2
	s.DeleteChars(1)
	s.Refilter()
	assert.Equal([]int{0, 2}, s.MatchInds())
}

func TestExactEndFullRescan(t *testing.T) {
	assert := assert.New(t)

	// narrowing from a non-anchored subset would be unsound for $ queries:
	// the result must equal a fresh full-set computation
	s := newTestState("ab", "abx", "xab")
	typeQuery(s, "ab")
	narrowed := append([]int(nil), s.MatchInds()...)
	assert.Len(narrowed, 3)

	typeQuery(s, "$")
	fromNarrowed := append([]int(nil), s.MatchInds()...)

	fresh := newTestState("ab", "abx", "xab")
	typeQuery(fresh, "ab$")
	assert.Equal(fresh.MatchInds(), fromNarrowed)
	assert.Equal(match.ModeExactEnd, s.Mode())
}

func TestCaretBounds(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("abc")
	ops := []func(){
		func() { s.AppendChar("a") },
		func() { s.MoveCaret(-10) },
		func() { s.AppendChar("b") },
		func() { s.MoveCaret(10) },
		func() { s.DeleteChars(1) },
		func() { s.DeleteChars(-1) },
		func() { s.AppendChar("c") },
		func() { s.DeleteChars(100) },
		func() { s.DeleteWord() },
	}
	for i, op := range ops {
		op()
		assert.GreaterOrEqual(s.Caret(), 0, "op %d", i)
		assert.LessOrEqual(s.Caret(), s.QueryLen(), "op %d", i)
	}
}

func TestAppendRejectsControlAndHighBytes(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("abc")
	assert.False(s.AppendChar("\x1b"))
	assert.False(s.AppendChar("\x00"))
	assert.False(s.AppendChar(string(byte(200))))
	assert.False(s.AppendChar("home"), "key names are not characters")
	assert.False(s.AppendChar("ctrl+t"))
	assert.True(s.AppendChar("a"))
	assert.True(s.AppendChar("é"), "one multi-byte rune is one token")
	assert.Equal("aé", s.Query())
	assert.Equal(2, s.QueryLen())
}

func TestDeleteCharsRange(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("whatever")
	typeQuery(s, "abcd")
	s.MoveCaret(-2) // caret between b and c

	s.DeleteChars(1) // deletes b
	assert.Equal("acd", s.Query())
	assert.Equal(1, s.Caret())

	s.DeleteChars(-1) // deletes c, caret stays
	assert.Equal("ad", s.Query())
	assert.Equal(1, s.Caret())
}

func TestDeleteWordClasses(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"keyword run", "foo_bar", ""},
		{"stops at class boundary", "a/bcd", "a/"},
		{"non-keyword run", "ab///", "ab"},
		{"single char", "x", ""},
	}
	for _, tc := range cases {
		s := newTestState("zzz")
		typeQuery(s, tc.query)
		s.DeleteWord()
		assert.Equal(tc.want, s.Query(), tc.name)
	}
}

func TestMoveCurrentEdgeWrap(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("a1", "a2", "a3")
	typeQuery(s, "a")
	assert.Equal(0, s.Current())

	// interior step increments without wrapping
	s.MoveCurrent(1)
	assert.Equal(1, s.Current())

	// stepping past the last index wraps to the first
	s.MoveCurrent(1)
	s.MoveCurrent(1)
	assert.Equal(0, s.Current())

	// stepping past the first index wraps to the last
	s.MoveCurrent(-1)
	assert.Equal(2, s.Current())
}

func TestSetCurrentWrapsModulo(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("a1", "a2", "a3")
	s.SetCurrent(7)
	assert.Equal(1, s.Current())
	s.SetCurrent(-1)
	assert.Equal(2, s.Current())
}

func TestWindowCenteredAndClamped(t *testing.T) {
	assert := assert.New(t)

	items := make([]string, 20)
	for i := range items {
		items[i] = fmt.Sprintf("item%02d", i)
	}
	s := newTestState(items...)
	s.SetHeight(5)

	// centered: current sits in the middle of the window
	s.SetCurrent(10)
	from, to := s.Window()
	assert.Equal(5, to-from+1)
	assert.Equal(10-2, from)

	// clamped at the top
	s.SetCurrent(0)
	from, to = s.Window()
	assert.Equal(0, from)
	assert.Equal(4, to)

	// clamped at the bottom
	s.SetCurrent(19)
	from, to = s.Window()
	assert.Equal(15, from)
	assert.Equal(19, to)
}

func TestQueryCache(t *testing.T) {
	assert := assert.New(t)

	s := NewState(5, true)
	s.SetItems([]any{"abc", "bcd", "xab"}, itemText)
	typeQuery(s, "ab")
	first := append([]int(nil), s.MatchInds()...)

	// delete and retype: second computation comes from the cache
	s.DeleteChars(2)
	s.Refilter()
	typeQuery(s, "ab")
	assert.Equal(first, s.MatchInds())
}

func TestSetItemsResetsState(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("abc", "xab")
	typeQuery(s, "ab")
	s.ToggleMark()

	s.SetItems([]any{"fresh"}, itemText)
	_, inds := s.Marked()
	assert.Empty(inds, "marks reset with the new candidate set")
	// the standing query is re-matched against the new items
	assert.Empty(s.MatchInds())
}

func TestMarkedRoundTrip(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("a1", "a2", "b1")
	typeQuery(s, "a")
	s.ToggleMark()
	s.MoveCurrent(1)
	s.ToggleMark()

	items, inds := s.Marked()
	assert.Equal([]any{"a1", "a2"}, items)
	assert.Equal([]int{0, 1}, inds)

	s.ToggleMarkAll() // all matches already marked: clears
	_, inds = s.Marked()
	assert.Empty(inds)
}

func TestHighlightOffsetsVisibleOnly(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("xAb")
	typeQuery(s, "ab")
	assert.Equal([]int{1, 2}, s.HighlightOffsets(0), "case-insensitive offsets on the original string")
	assert.Nil(s.HighlightOffsets(99))
}

func TestCaseInsensitiveMatching(t *testing.T) {
	assert := assert.New(t)

	s := newTestState("README.md", "main.go")
	typeQuery(s, "readme")
	assert.Equal([]int{0}, s.MatchInds())
}
