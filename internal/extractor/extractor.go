// Package extractor converts uploaded documents into text with page annotations.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// ErrPDFToolNotFound is returned when the pdftotext binary is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH; install poppler-utils")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Extractor handles PDF and plain text documents.
type Extractor struct {
	pdfToText string
	runner    CommandRunner
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner used for pdftotext.
func WithRunner(r CommandRunner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithPDFToText sets the pdftotext binary name or path.
func WithPDFToText(path string) Option {
	return func(e *Extractor) {
		if path != "" {
			e.pdfToText = path
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{pdfToText: "pdftotext", runner: execRunner{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the pages of doc. PDF page numbers are 0-based; text
// documents have a single page without a number.
func (e *Extractor) Extract(ctx context.Context, doc domain.Document) (domain.ExtractedDocument, error) {
	out := domain.ExtractedDocument{Source: doc.Source}
	switch {
	case isPDF(doc):
		pages, err := e.extractPDF(ctx, doc.Data)
		if err != nil {
			return out, fmt.Errorf("extract %s: %w", doc.Source, err)
		}
		out.Pages = pages
	case isText(doc):
		out.Pages = []domain.Page{{Text: string(doc.Data)}}
	default:
		return out, fmt.Errorf("extract %s: %w", doc.Source, domain.ErrUnsupportedDocument)
	}
	return out, nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) ([]domain.Page, error) {
	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	raw, err := e.runner.Run(ctx, e.pdfToText, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, err
	}
	return splitPages(string(raw)), nil
}

// splitPages splits pdftotext output on form feeds, which terminate every page.
func splitPages(text string) []domain.Page {
	parts := strings.Split(text, "\f")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	pages := make([]domain.Page, len(parts))
	for i, p := range parts {
		n := i
		pages[i] = domain.Page{Number: &n, Text: p}
	}
	return pages
}

func isPDF(doc domain.Document) bool {
	if strings.EqualFold(filepath.Ext(doc.Source), ".pdf") {
		return true
	}
	return bytes.HasPrefix(doc.Data, []byte("%PDF-"))
}

func isText(doc domain.Document) bool {
	switch strings.ToLower(filepath.Ext(doc.Source)) {
	case ".txt", ".md", ".markdown", ".text":
		return true
	}
	return utf8.Valid(doc.Data) && !bytes.ContainsRune(doc.Data, 0)
}
