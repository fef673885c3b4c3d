package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts document text into overlapping windows for embedding. Window
// ends are pulled back to the last whitespace so words are not cut in half.
type Splitter struct {
	Size      int
	Overlap   int
	MaxChunks int
}

func NewSplitter(size, overlap, maxChunks int) *Splitter {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	if maxChunks <= 0 {
		maxChunks = 1
	}
	return &Splitter{Size: size, Overlap: overlap, MaxChunks: maxChunks}
}

// Split returns at most MaxChunks non-empty windows from the start of text.
func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, s.MaxChunks)
	for start := 0; start < len(runes) && len(out) < s.MaxChunks; {
		end := min(start+s.Size, len(runes))
		if end < len(runes) {
			end = wordBoundary(runes, start, end)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
		start = max(end-s.Overlap, start+1)
	}
	return out
}

// wordBoundary moves end back to the last whitespace in the second half of
// the window; without one the hard cut stays.
func wordBoundary(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
