package ingestion_engine

import "strings"

// Default splitting parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// Piece is one split chunk. Overlap is the number of characters at the start
// of Text duplicated from the tail of the previous piece, recorded so the
// original text can be reassembled without the duplication.
type Piece struct {
	Text    string
	Overlap int
}

// Splitter recursively partitions text into bounded chunks using an ordered
// list of separator preferences: paragraph, line, sentence, word. A single
// atomic unit longer than the bound (one separator-free run) is kept whole.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: []string{"\n\n", "\n", ". ", " "},
	}
}

// Split partitions text into pieces of at most chunkSize characters, with
// overlap characters repeated between consecutive pieces.
func (s *Splitter) Split(text string) []Piece {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []Piece{{Text: text}}
	}
	return s.merge(s.decompose(text, s.separators))
}

// decompose breaks text into ordered units no longer than chunkSize, trying
// each separator in preference order. Text that no separator can break stays
// whole even when oversized.
func (s *Splitter) decompose(text string, separators []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	for i, sep := range separators {
		parts := splitAfter(text, sep)
		if len(parts) < 2 {
			continue
		}
		var units []string
		for _, part := range parts {
			if len(part) > s.chunkSize {
				units = append(units, s.decompose(part, separators[i+1:])...)
			} else {
				units = append(units, part)
			}
		}
		return units
	}
	return []string{text}
}

// merge greedily packs units into chunks of at most chunkSize characters,
// seeding each new chunk with the raw character tail of its predecessor.
func (s *Splitter) merge(units []string) []Piece {
	var pieces []Piece
	cur := ""
	seed := 0 // overlap chars currently at the head of cur
	for _, u := range units {
		if cur != "" && len(cur)+len(u) > s.chunkSize {
			pieces = append(pieces, Piece{Text: cur, Overlap: seed})
			tail := overlapTail(cur, s.overlap)
			if len(tail)+len(u) > s.chunkSize {
				// Seeding would push an already-large unit over the
				// bound; start the next chunk clean instead.
				tail = ""
			}
			cur, seed = tail, len(tail)
		}
		cur += u
	}
	if cur != "" {
		pieces = append(pieces, Piece{Text: cur, Overlap: seed})
	}
	return pieces
}

// splitAfter splits text on sep keeping the separator attached to the
// preceding part, so concatenating the parts reproduces the input.
func splitAfter(text, sep string) []string {
	return strings.SplitAfter(text, sep)
}

func overlapTail(text string, n int) string {
	if n <= 0 || n >= len(text) {
		return ""
	}
	return text[len(text)-n:]
}
