package ingestion_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean_NormalizesCRLF(t *testing.T) {
	assert.Equal(t, "one\ntwo", Clean("one\r\ntwo"))
}

func TestClean_TrimsTrailingSpaces(t *testing.T) {
	assert.Equal(t, "one\ntwo", Clean("one  \ntwo\t"))
}

func TestClean_CollapsesBlankLineRuns(t *testing.T) {
	assert.Equal(t, "one\n\ntwo", Clean("one\n\n\n\n\ntwo"))
}

func TestClean_TrimsSurroundingBlankLines(t *testing.T) {
	assert.Equal(t, "body", Clean("\n\n\nbody\n\n"))
}

func TestClean_PreservesContent(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph with  internal  spacing."
	assert.Equal(t, text, Clean(text))
}
