package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitShortTextIsOneChunk(t *testing.T) {
	s := NewSplitter(100, 10, 4)
	require.Equal(t, []string{"Invoice Number: 1"}, s.Split("  Invoice Number: 1 \n"))
	require.Nil(t, s.Split("   "))
}

func TestSplitBreaksOnWhitespace(t *testing.T) {
	s := NewSplitter(12, 0, 10)
	chunks := s.Split("alpha beta gamma delta epsilon")
	require.Equal(t, []string{"alpha beta", "gamma delta", "epsilon"}, chunks)
}

func TestSplitOverlapRepeatsTail(t *testing.T) {
	s := NewSplitter(10, 4, 10)
	chunks := s.Split(strings.Repeat("x", 22))
	require.Len(t, chunks, 3)
	require.Equal(t, strings.Repeat("x", 10), chunks[0])
	require.Equal(t, strings.Repeat("x", 10), chunks[1])
	require.Equal(t, strings.Repeat("x", 10), chunks[2])
}

func TestSplitHonoursMaxChunks(t *testing.T) {
	s := NewSplitter(5, 0, 2)
	require.Len(t, s.Split(strings.Repeat("abcde ", 20)), 2)
}

func TestNewSplitterNormalisesSettings(t *testing.T) {
	s := NewSplitter(0, -1, 0)
	require.Equal(t, 2000, s.Size)
	require.Equal(t, 0, s.Overlap)
	require.Equal(t, 1, s.MaxChunks)

	s = NewSplitter(100, 150, 3)
	require.Equal(t, 25, s.Overlap)
}
