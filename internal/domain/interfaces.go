package domain

import "context"

// Document is a raw uploaded file before text extraction.
type Document struct {
	Source string
	Data   []byte
}

// Page is a slice of extracted text. Number is nil when the format has no pages.
type Page struct {
	Number *int
	Text   string
}

// ExtractedDocument is the ordered text of a document with page annotations.
type ExtractedDocument struct {
	Source string
	Pages  []Page
}

// Passage is a bounded contiguous slice of a document, the unit of retrieval.
// Ordinal follows extraction order and is only used to break score ties.
type Passage struct {
	Text    string
	Source  string
	Page    *int
	Ordinal int
}

// SearchResult represents a matching passage with a similarity score.
type SearchResult struct {
	Passage Passage
	Score   float64
}

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Citation is the provenance of a retrieved passage returned alongside an answer.
type Citation struct {
	Source  string `json:"source"`
	Page    *int   `json:"page"`
	Snippet string `json:"snippet"`
}

// Answer is the result of a successful ask.
type Answer struct {
	Text      string
	Citations []Citation
}

// Extractor turns raw document bytes into text with page annotations.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (ExtractedDocument, error)
}

// Chunker splits extracted documents into overlapping passages.
type Chunker interface {
	Chunk(docs []ExtractedDocument) []Passage
}

// Embedder converts free text into a numeric vector representation.
// Output must be stable for identical input.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorIndex answers k-nearest-neighbour queries over an immutable set of passages.
type VectorIndex interface {
	Size() int
	Search(ctx context.Context, vector []float64, k int) ([]SearchResult, error)
	Close(ctx context.Context) error
}

// IndexBuilder stores passage/vector pairs in a new VectorIndex.
type IndexBuilder interface {
	Build(ctx context.Context, passages []Passage, vectors [][]float64) (VectorIndex, error)
}

// Generator sends a prompt to a generative language model.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
