package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankOrdersByWidthThenStart(t *testing.T) {
	assert := assert.New(t)

	in := []Data{
		{Width: 2, Start: 0, Index: 0},
		{Width: 0, Start: 5, Index: 1},
		{Width: 0, Start: 1, Index: 2},
		{Width: 1, Start: 0, Index: 3},
	}
	out := Rank(in)
	assert.Equal([]int{2, 1, 3, 0}, Indices(out))
}

func TestRankStableByIndex(t *testing.T) {
	assert := assert.New(t)

	// equal (width, start) entries keep their original relative order
	in := []Data{
		{Width: 1, Start: 3, Index: 2},
		{Width: 1, Start: 3, Index: 5},
		{Width: 1, Start: 3, Index: 9},
	}
	out := Rank(in)
	assert.Equal([]int{2, 5, 9}, Indices(out))
}

func TestRankIdempotent(t *testing.T) {
	assert := assert.New(t)

	in := []Data{
		{Width: 3, Start: 2, Index: 0},
		{Width: 0, Start: 9, Index: 1},
		{Width: 0, Start: 0, Index: 2},
		{Width: 3, Start: 2, Index: 3},
		{Width: 1, Start: 4, Index: 4},
	}
	once := Rank(in)
	twice := Rank(append([]Data(nil), once...))
	assert.Equal(Indices(once), Indices(twice))
}

func TestRankDegenerate(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(Rank(nil))

	single := []Data{{Width: 7, Start: 1, Index: 42}}
	assert.Equal(single, Rank(single))
}

func TestRankedScenario(t *testing.T) {
	assert := assert.New(t)

	// items ["abc","bcd","xab"], query "ab": both survivors have equal
	// width, ordered by start offset
	strs := []string{"abc", "bcd", "xab"}
	data, _, err := Filter(allInds(3), strs, tokens("ab"))
	assert.NoError(err)
	assert.Equal([]int{0, 2}, Indices(Rank(data)))
}
