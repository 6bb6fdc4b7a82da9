// Package picker implements an interactive fuzzy picker over arbitrary item
// lists: a query-editing state machine with incremental match narrowing, a
// bubbletea front end, item sources, and a persistent pick history.
package picker

import (
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mvank/winnow/match"
)

// defaultCacheSize bounds the per-query match cache when caching is enabled.
const defaultCacheSize = 256

// State is the UI-independent picker state: query tokens plus caret, the
// candidate set with its string forms, the ranked match index set, the
// current index into that set, and the centered visible window. All indices
// are 0-based byte/slice offsets.
type State struct {
	query []string
	caret int // insertion point in [0, len(query)]

	// items is nil until the (possibly asynchronous) source resolves;
	// every operation tolerates that as "nothing to do".
	items []any
	strs  []string // display forms, parallel to items
	lower []string // case-folded forms, parallel to items

	matchInds []int // ranked candidate indices
	current   int   // index into matchInds
	from, to  int   // visible window into matchInds, inclusive; to < from when empty

	height  int
	mode    match.Mode
	lastKey string // query string of the last completed match, for narrowing

	cache  *lru.Cache[string, []int]
	marked map[int]bool // candidate indices toggled for multi-select
}

// NewState creates picker state with the given viewport height. caching
// enables per-query reuse of match index sets.
func NewState(height int, caching bool) *State {
	s := &State{
		height: max(height, 1),
		marked: make(map[int]bool),
	}
	if caching {
		// only fails for a non-positive size
		s.cache, _ = lru.New[string, []int](defaultCacheSize)
	}
	return s
}

// SetItems replaces the candidate set. Indices are stable until the next
// SetItems call, so the cache and marks are reset, and the current query is
// re-matched from scratch against the new set.
func (s *State) SetItems(items []any, toString func(any) string) {
	s.items = items
	s.strs = make([]string, len(items))
	s.lower = make([]string, len(items))
	for i, it := range items {
		s.strs[i] = toString(it)
		s.lower[i] = foldASCII(s.strs[i])
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	s.marked = make(map[int]bool)
	s.matchInds = nil
	s.current = 0
	s.lastKey = ""
	s.Refilter()
}

// SetHeight resizes the viewport and recenters the visible window.
func (s *State) SetHeight(h int) {
	s.height = max(h, 1)
	s.updateWindow()
}

// AppendChar inserts one query character at the caret. Control bytes and
// single high bytes are rejected so raw key garbage never becomes a token;
// printable multi-byte runes pass through as one token.
func (s *State) AppendChar(ch string) bool {
	if !validQueryChar(ch) {
		return false
	}
	s.query = append(s.query[:s.caret], append([]string{ch}, s.query[s.caret:]...)...)
	s.caret++
	return true
}

// Paste inserts a run of characters at the caret as individual tokens.
func (s *State) Paste(text string) {
	ins := make([]string, 0, len(text))
	for _, r := range text {
		ch := string(r)
		if validQueryChar(ch) {
			ins = append(ins, ch)
		}
	}
	if len(ins) == 0 {
		return
	}
	s.query = append(s.query[:s.caret], append(ins, s.query[s.caret:]...)...)
	s.caret += len(ins)
}

// DeleteChars removes a contiguous range relative to the caret: n > 0
// deletes n characters left of the caret, n < 0 deletes to the right. The
// range is clamped to the query bounds and the caret lands on its left edge.
func (s *State) DeleteChars(n int) {
	var lo, hi int // half-open [lo, hi)
	if n >= 0 {
		lo, hi = s.caret-n, s.caret
	} else {
		lo, hi = s.caret, s.caret-n
	}
	lo = max(lo, 0)
	hi = min(hi, len(s.query))
	if lo >= hi {
		return
	}
	s.query = append(s.query[:lo], s.query[hi:]...)
	s.caret = lo
}

// DeleteWord removes the maximal run of same-class characters left of the
// caret: either all keyword characters or all non-keyword ones, classified by
// the first character inspected.
func (s *State) DeleteWord() {
	if s.caret == 0 || len(s.query) == 0 {
		return
	}
	lo := s.caret
	class := isKeywordChar(s.query[lo-1])
	for lo > 0 && isKeywordChar(s.query[lo-1]) == class {
		lo--
	}
	s.query = append(s.query[:lo], s.query[s.caret:]...)
	s.caret = lo
}

// DeleteAll clears the whole query.
func (s *State) DeleteAll() {
	if len(s.query) == 0 {
		return
	}
	s.query = nil
	s.caret = 0
}

// MoveCaret shifts the caret by n, clamped to [0, len(query)].
func (s *State) MoveCaret(n int) {
	s.caret = max(0, min(s.caret+n, len(s.query)))
}

// Caret returns the insertion point.
func (s *State) Caret() int { return s.caret }

// Query returns the concatenated query string.
func (s *State) Query() string { return strings.Join(s.query, "") }

// QueryLen returns the number of query tokens.
func (s *State) QueryLen() int { return len(s.query) }

// Mode reports the search mode of the last completed match.
func (s *State) Mode() match.Mode { return s.mode }

// Refilter recomputes the match index set after a query change. The
// dispatcher calls it after the default append action and after any action
// classified as query-mutating (delete*, paste); navigation and toggles
// never re-match.
//
// Resolution order: cache hit on the full query string, identity on an empty
// query, then the matcher. The matcher normally narrows the previous match
// set (only what already matched can still match after appending), but falls
// back to a full scan when the query did not extend the previously matched
// one, and always for end-anchored queries: a subset computed under different
// anchoring is unsound to narrow from.
func (s *State) Refilter() {
	key := s.Query()
	defer func() {
		s.lastKey = key
		// land on the best-ranked match for the new query
		s.SetCurrent(0)
	}()

	if s.items == nil {
		s.matchInds = nil
		return
	}
	if key == "" {
		s.mode = match.ModeExact
		s.matchInds = identity(len(s.items))
		return
	}
	if s.cache != nil {
		if inds, ok := s.cache.Get(key); ok {
			if mode, _, err := match.ParseQuery(s.query); err == nil {
				s.mode = mode
			}
			s.matchInds = append([]int(nil), inds...)
			return
		}
	}

	pool := identity(len(s.items))
	if s.lastKey != "" && strings.HasPrefix(key, s.lastKey) && !strings.HasSuffix(key, "$") {
		pool = s.matchInds
	}

	query := make([]string, len(s.query))
	for i, ch := range s.query {
		query[i] = foldASCII(ch)
	}
	data, mode, err := match.Filter(pool, s.lower, query)
	if err != nil {
		return
	}
	s.mode = mode
	s.matchInds = match.Indices(match.Rank(data))
	if s.cache != nil {
		s.cache.Add(key, append([]int(nil), s.matchInds...))
	}
}

// MatchInds returns the ranked match index set.
func (s *State) MatchInds() []int { return s.matchInds }

// SetCurrent moves the current index to n, wrapped modulo the match count,
// and recenters the visible window.
func (s *State) SetCurrent(n int) {
	m := len(s.matchInds)
	if m == 0 {
		s.current, s.from, s.to = 0, 0, -1
		return
	}
	s.current = ((n % m) + m) % m
	s.updateWindow()
}

// MoveCurrent steps the current index by n. Stepping past an edge wraps to
// the opposite edge; interior steps do not wrap.
func (s *State) MoveCurrent(n int) {
	m := len(s.matchInds)
	if m == 0 {
		return
	}
	t := s.current + n
	switch {
	case 0 <= t && t < m:
		s.current = t
	case n > 0:
		s.current = 0
	default:
		s.current = m - 1
	}
	s.updateWindow()
}

// MovePage steps by one viewport height, clamped to the match bounds.
func (s *State) MovePage(dir int) {
	m := len(s.matchInds)
	if m == 0 {
		return
	}
	t := max(0, min(s.current+dir*s.height, m-1))
	s.SetCurrent(t)
}

// updateWindow recomputes the visible range as a window of viewport height
// centered on the current index, clamped to the match bounds.
func (s *State) updateWindow() {
	m := len(s.matchInds)
	if m == 0 {
		s.from, s.to = 0, -1
		return
	}
	h := min(s.height, m)
	from := s.current - h/2
	from = max(0, min(from, m-h))
	s.from, s.to = from, from+h-1
}

// Window returns the visible inclusive range into the match index set;
// to < from means nothing is visible.
func (s *State) Window() (from, to int) { return s.from, s.to }

// Current returns the position of the current index within the match set.
func (s *State) Current() int { return s.current }

// CurrentItem returns the selected item and its candidate index. ok is false
// when no items are resolved or nothing matches.
func (s *State) CurrentItem() (item any, index int, ok bool) {
	if s.items == nil || len(s.matchInds) == 0 {
		return nil, 0, false
	}
	ind := s.matchInds[s.current]
	return s.items[ind], ind, true
}

// ItemString returns the display form of candidate index i.
func (s *State) ItemString(i int) string {
	if i < 0 || i >= len(s.strs) {
		return ""
	}
	return s.strs[i]
}

// ItemCount returns the candidate set size; 0 while items are unresolved.
func (s *State) ItemCount() int { return len(s.items) }

// ToggleMark flips the multi-select mark on the current candidate.
func (s *State) ToggleMark() {
	if _, ind, ok := s.CurrentItem(); ok {
		if s.marked[ind] {
			delete(s.marked, ind)
		} else {
			s.marked[ind] = true
		}
	}
}

// ToggleMarkAll marks every current match, or unmarks all when every match
// is already marked.
func (s *State) ToggleMarkAll() {
	all := len(s.matchInds) > 0
	for _, ind := range s.matchInds {
		if !s.marked[ind] {
			all = false
			break
		}
	}
	for _, ind := range s.matchInds {
		if all {
			delete(s.marked, ind)
		} else {
			s.marked[ind] = true
		}
	}
}

// Marked returns marked items and their candidate indices in candidate order.
func (s *State) Marked() (items []any, inds []int) {
	for i := range s.items {
		if s.marked[i] {
			items = append(items, s.items[i])
			inds = append(inds, i)
		}
	}
	return items, inds
}

// IsMarked reports whether candidate index i is marked.
func (s *State) IsMarked(i int) bool { return s.marked[i] }

// HighlightOffsets recomputes match offsets for one candidate under the
// current query, for highlighting visible lines only; nil when the candidate
// no longer matches or the query is empty.
func (s *State) HighlightOffsets(ind int) []int {
	if len(s.query) == 0 || ind < 0 || ind >= len(s.lower) {
		return nil
	}
	query := make([]string, len(s.query))
	for i, ch := range s.query {
		query[i] = foldASCII(ch)
	}
	data, _, err := match.Filter([]int{ind}, s.lower, query)
	if err != nil || len(data) == 0 {
		return nil
	}
	return data[0].Offsets
}

func identity(n int) []int {
	inds := make([]int, n)
	for i := range inds {
		inds[i] = i
	}
	return inds
}

// validQueryChar accepts exactly one printable character: single-byte ASCII
// above the control range, or one multi-byte rune. Control bytes, lone high
// bytes and multi-character strings (e.g. key names) never become tokens.
func validQueryChar(ch string) bool {
	if len(ch) == 0 {
		return false
	}
	if len(ch) == 1 {
		return ch[0] > 31 && ch[0] < 128
	}
	return utf8.RuneCountInString(ch) == 1
}

// isKeywordChar mirrors the word-character class used for word deletion:
// letters, digits and underscore.
func isKeywordChar(ch string) bool {
	if len(ch) == 0 {
		return false
	}
	b := ch[0]
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// foldASCII lowercases ASCII letters only, preserving byte offsets for
// highlight math on the original string.
func foldASCII(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if b == nil {
				b = []byte(s)
			}
			b[i] = c + ('a' - 'A')
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}
