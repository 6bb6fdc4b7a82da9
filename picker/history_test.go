package picker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRecordAndQuery(t *testing.T) {
	assert := assert.New(t)

	h, err := OpenHistory(filepath.Join(t.TempDir(), "picks.db"), nil)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Record("a.go"))
	require.NoError(t, h.Record("b.go"))
	require.NoError(t, h.Record("a.go"))

	recent, err := h.Recent(10)
	require.NoError(t, err)
	assert.Equal([]string{"a.go", "b.go"}, recent, "distinct, most recent first")

	frequent, err := h.Frequent(10)
	require.NoError(t, err)
	assert.Equal([]string{"a.go", "b.go"}, frequent, "a.go picked twice")
}

func TestHistoryLimit(t *testing.T) {
	assert := assert.New(t)

	h, err := OpenHistory(filepath.Join(t.TempDir(), "picks.db"), nil)
	require.NoError(t, err)
	defer h.Close()

	for _, s := range []string{"x", "y", "z"} {
		require.NoError(t, h.Record(s))
	}
	recent, err := h.Recent(2)
	require.NoError(t, err)
	assert.Len(recent, 2)
}
