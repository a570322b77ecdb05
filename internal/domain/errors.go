package domain

import "errors"

var (
	// ErrEmptyInput is returned when an upload carries no documents.
	ErrEmptyInput = errors.New("no documents provided")
	// ErrIngestion is returned when extraction or embedding fails while building an index.
	ErrIngestion = errors.New("ingestion failed")
	// ErrEmbedding is returned when the embedding provider fails.
	ErrEmbedding = errors.New("embedding failed")
	// ErrGeneration is returned when the generation provider fails.
	ErrGeneration = errors.New("generation failed")
	// ErrSessionNotFound is returned for unknown or expired session identifiers.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnsupportedDocument is returned when no extractor handles a document.
	ErrUnsupportedDocument = errors.New("unsupported document type")
)
