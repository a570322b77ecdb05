package chunker

import (
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// DefaultSeparators prefers paragraph, then line, then word boundaries, then any character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker splits text at the coarsest separator that yields pieces
// shorter than chunkSize and merges pieces back into overlapping passages.
// Lengths are counted in runes.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewRecursiveChunker(chunkSize, overlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 6
	}
	return &RecursiveChunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
}

// Chunk splits every page of every document independently. Ordinals run
// consecutively across the whole batch.
func (c *RecursiveChunker) Chunk(docs []domain.ExtractedDocument) []domain.Passage {
	var passages []domain.Passage
	ordinal := 0
	for _, d := range docs {
		for _, p := range d.Pages {
			for _, text := range c.SplitText(p.Text) {
				passages = append(passages, domain.Passage{
					Text:    text,
					Source:  d.Source,
					Page:    p.Number,
					Ordinal: ordinal,
				})
				ordinal++
			}
		}
	}
	return passages
}

// SplitText returns the passages of a single text. Empty or blank text yields none.
func (c *RecursiveChunker) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitKeepSeparator(text, sep) {
		if utf8.RuneCountInString(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, c.merge(good)...)
	}
	return out
}

// merge packs pieces into passages of at most chunkSize runes, carrying up to
// overlap runes of trailing pieces into the next passage.
func (c *RecursiveChunker) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n > c.chunkSize && len(current) > 0 {
			if doc := join(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.overlap || (total+n > c.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := join(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

// splitKeepSeparator splits text on sep and keeps each separator at the start
// of the piece that follows it. An empty sep splits into runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}
