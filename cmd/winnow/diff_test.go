package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileLines(t *testing.T) {
	assert := assert.New(t)

	assert.Nil(fileLines(nil))
	assert.Nil(fileLines([]byte("")))
	assert.Equal([]string{"a"}, fileLines([]byte("a")))
	assert.Equal([]string{"a"}, fileLines([]byte("a\n")))
	assert.Equal([]string{"a", "", "b"}, fileLines([]byte("a\n\nb\n")))
}

func TestLineOrEmpty(t *testing.T) {
	assert := assert.New(t)

	lines := []string{"a", "b"}
	assert.Equal("a", lineOrEmpty(lines, 1))
	assert.Equal("b", lineOrEmpty(lines, 2))
	assert.Equal("", lineOrEmpty(lines, 0))
	assert.Equal("", lineOrEmpty(lines, 3))
}
