// Package match implements the query matcher behind the interactive picker:
// four search modes over candidate strings, byte-offset highlight data, and a
// counting-sort ranker.
package match

import (
	"fmt"
	"strings"
)

// Mode identifies which search strategy a query selects.
type Mode int

const (
	ModeFuzzy Mode = iota
	ModeExact      // plain substring
	ModeExactStart // ^foo, anchored at string start
	ModeExactEnd   // foo$, anchored at string end
)

func (m Mode) String() string {
	switch m {
	case ModeFuzzy:
		return "fuzzy"
	case ModeExact:
		return "exact"
	case ModeExactStart:
		return "exact-start"
	case ModeExactEnd:
		return "exact-end"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Data describes one surviving candidate: its span width (primary ranking
// key, smaller is better), the byte offset of the first matched character,
// the candidate's index in the original set, and one byte offset per
// effective query token for highlighting.
type Data struct {
	Width   int
	Start   int
	Index   int
	Offsets []int
}

// ParseQuery classifies a query into a search mode and returns the effective
// tokens with mode prefixes/suffixes stripped. Modifier detection order:
// leading ' (exact), leading ^ (anchored start), trailing $ (anchored end).
// A single plain character is a literal substring search with no stripping.
func ParseQuery(query []string) (Mode, []string, error) {
	if len(query) == 0 {
		return ModeFuzzy, nil, fmt.Errorf("match: empty query")
	}
	if len(query) == 1 {
		return ModeExact, query, nil
	}
	switch {
	case query[0] == "'":
		return ModeExact, query[1:], nil
	case query[0] == "^":
		return ModeExactStart, query[1:], nil
	case query[len(query)-1] == "$":
		return ModeExactEnd, query[:len(query)-1], nil
	}
	return ModeFuzzy, query, nil
}

// Filter runs the query against the candidates named by inds. strs is the
// full string-form array indexed by candidate index; inds selects the subset
// to scan. The result holds one Data per surviving candidate, in scan order;
// candidates with no valid occurrence are dropped, not zero-scored.
func Filter(inds []int, strs []string, query []string) ([]Data, Mode, error) {
	mode, tokens, err := ParseQuery(query)
	if err != nil {
		return nil, mode, err
	}

	out := make([]Data, 0, len(inds))
	for _, ind := range inds {
		var (
			d  Data
			ok bool
		)
		if mode == ModeFuzzy {
			d, ok = fuzzyMatch(strs[ind], tokens)
		} else {
			d, ok = exactMatch(strs[ind], tokens, mode)
		}
		if !ok {
			continue
		}
		d.Index = ind
		out = append(out, d)
	}
	return out, mode, nil
}

// fuzzyMatch finds the minimal-width ordered occurrence of tokens in s.
//
// It scans forward greedily from each successive start position of the first
// token, keeping the (first, last) pair with the smallest span; ties keep the
// earliest first. Once the best span is known the offsets of every token are
// recomputed by a single greedy scan from the winning start so the full
// sequence is internally consistent, not just the endpoints.
func fuzzyMatch(s string, tokens []string) (Data, bool) {
	if len(tokens) == 1 {
		i := strings.Index(s, tokens[0])
		if i < 0 {
			return Data{}, false
		}
		return Data{Width: 0, Start: i, Offsets: []int{i}}, true
	}

	bestFirst, bestLast := -1, -1
	for start := 0; ; {
		first := indexFrom(s, tokens[0], start)
		if first < 0 {
			break
		}
		last, ok := greedyTail(s, tokens, first)
		if !ok {
			// A later start can only push the tail further right; no
			// more complete occurrences exist.
			break
		}
		if bestFirst < 0 || last-first < bestLast-bestFirst {
			bestFirst, bestLast = first, last
		}
		start = first + 1
	}
	if bestFirst < 0 {
		return Data{}, false
	}

	offsets := make([]int, len(tokens))
	pos := bestFirst
	for i, tok := range tokens {
		j := indexFrom(s, tok, pos)
		offsets[i] = j
		pos = j + len(tok)
	}
	return Data{Width: bestLast - bestFirst, Start: bestFirst, Offsets: offsets}, true
}

// greedyTail matches tokens[1:] left to right after the first token at
// position first, returning the start offset of the last token.
func greedyTail(s string, tokens []string, first int) (int, bool) {
	pos := first + len(tokens[0])
	last := first
	for _, tok := range tokens[1:] {
		i := indexFrom(s, tok, pos)
		if i < 0 {
			return 0, false
		}
		last = i
		pos = i + len(tok)
	}
	return last, true
}

// exactMatch finds the first literal occurrence of the concatenated tokens,
// anchored per mode. Width is always 0; per-token offsets advance by the byte
// length of each preceding token. An empty pattern (all characters were mode
// modifiers) matches every candidate at the anchor position.
func exactMatch(s string, tokens []string, mode Mode) (Data, bool) {
	pat := strings.Join(tokens, "")

	var start int
	switch mode {
	case ModeExactStart:
		if !strings.HasPrefix(s, pat) {
			return Data{}, false
		}
		start = 0
	case ModeExactEnd:
		if !strings.HasSuffix(s, pat) {
			return Data{}, false
		}
		start = len(s) - len(pat)
	default:
		i := strings.Index(s, pat)
		if i < 0 {
			return Data{}, false
		}
		start = i
	}

	offsets := make([]int, len(tokens))
	off := start
	for i, tok := range tokens {
		offsets[i] = off
		off += len(tok)
	}
	return Data{Width: 0, Start: start, Offsets: offsets}, true
}

func indexFrom(s, sub string, from int) int {
	if from > len(s) {
		return -1
	}
	i := strings.Index(s[from:], sub)
	if i < 0 {
		return -1
	}
	return from + i
}
