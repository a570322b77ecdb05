// Package service orchestrates uploads, asks and resets over the QA engine
// and the session store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"docqa/internal/domain"
	"docqa/internal/qa"
	"docqa/internal/session"
	"docqa/internal/transcript"
	"docqa/internal/vectorstore"
)

// Recorder receives an audit entry for every ask and reset.
type Recorder interface {
	Record(ctx context.Context, e transcript.Entry) error
}

// DocumentSummary describes one ingested document.
type DocumentSummary struct {
	Source   string `json:"source"`
	Pages    int    `json:"pages"`
	Passages int    `json:"passages"`
	Summary  string `json:"summary,omitempty"`
}

// UploadResult is returned by a successful Upload.
type UploadResult struct {
	SessionID string            `json:"session_id"`
	Documents []DocumentSummary `json:"documents"`
}

// Components are the collaborators of a RAGService.
type Components struct {
	Extractor  domain.Extractor
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Builder    domain.IndexBuilder
	Engine     *qa.Engine
	Store      *session.Store
	Summarizer domain.Summarizer // optional
	Recorder   Recorder          // optional
	Logger     logrus.FieldLogger
}

type RAGService struct {
	Components
	build               vectorstore.BuildOptions
	summaryMaxSentences int
}

// Option configures a RAGService.
type Option func(*RAGService)

func WithBuildOptions(o vectorstore.BuildOptions) Option {
	return func(s *RAGService) { s.build = o }
}

func WithSummarySentences(n int) Option {
	return func(s *RAGService) { s.summaryMaxSentences = n }
}

func NewRAGService(c Components, opts ...Option) *RAGService {
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	s := &RAGService{Components: c, summaryMaxSentences: 3}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload extracts, chunks and embeds docs into a new session. Nothing is
// stored unless every step succeeds.
func (s *RAGService) Upload(ctx context.Context, docs []domain.Document) (UploadResult, error) {
	if len(docs) == 0 {
		return UploadResult{}, domain.ErrEmptyInput
	}
	start := time.Now()

	var passages []domain.Passage
	summaries := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		extracted, err := s.Extractor.Extract(ctx, doc)
		if err != nil {
			return UploadResult{}, fmt.Errorf("%w: %w", domain.ErrIngestion, err)
		}
		chunks := s.Chunker.Chunk([]domain.ExtractedDocument{extracted})
		for i := range chunks {
			chunks[i].Ordinal = len(passages) + i
		}
		passages = append(passages, chunks...)
		summaries = append(summaries, DocumentSummary{
			Source:   extracted.Source,
			Pages:    len(extracted.Pages),
			Passages: len(chunks),
			Summary:  s.summarize(extracted),
		})
	}

	index, err := vectorstore.Build(ctx, s.Builder, passages, s.Embedder, s.build)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %w", domain.ErrIngestion, err)
	}
	id := s.Store.Create(ctx, index)

	s.Logger.WithFields(logrus.Fields{
		"session_id": id,
		"documents":  len(docs),
		"passages":   index.Size(),
		"duration":   time.Since(start).Round(time.Millisecond),
	}).Info("documents indexed")
	return UploadResult{SessionID: id, Documents: summaries}, nil
}

// Ask answers question within a session. Unknown sessions fail with
// domain.ErrSessionNotFound; provider failures leave the history unchanged.
func (s *RAGService) Ask(ctx context.Context, sessionID, question string) (domain.Answer, error) {
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, err
	}
	start := time.Now()
	answer, err := s.Engine.Ask(ctx, sess, question)
	entry := s.Logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"duration":   time.Since(start).Round(time.Millisecond),
	})
	if err != nil {
		entry.WithError(err).Warn("ask failed")
		return domain.Answer{}, err
	}
	entry.WithField("sources", len(answer.Citations)).Debug("question answered")
	s.record(ctx, transcript.Entry{
		SessionID: sessionID,
		Kind:      transcript.KindAsk,
		Question:  question,
		Answer:    answer.Text,
		Sources:   len(answer.Citations),
	})
	return answer, nil
}

// History returns the recorded turns of a session.
func (s *RAGService) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.History(), nil
}

// Reset clears the history of a session and keeps its index.
func (s *RAGService) Reset(ctx context.Context, sessionID string) error {
	if err := s.Store.ResetHistory(ctx, sessionID); err != nil {
		return err
	}
	s.Logger.WithField("session_id", sessionID).Debug("history cleared")
	s.record(ctx, transcript.Entry{SessionID: sessionID, Kind: transcript.KindReset})
	return nil
}

func (s *RAGService) summarize(doc domain.ExtractedDocument) string {
	if s.Summarizer == nil {
		return ""
	}
	texts := make([]string, len(doc.Pages))
	for i, p := range doc.Pages {
		texts[i] = p.Text
	}
	summary, err := s.Summarizer.Summarize(strings.Join(texts, "\n"), s.summaryMaxSentences)
	if err != nil {
		s.Logger.WithError(err).WithField("source", doc.Source).Warn("summary failed")
		return ""
	}
	return summary
}

func (s *RAGService) record(ctx context.Context, e transcript.Entry) {
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.Record(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.WithError(err).WithField("session_id", e.SessionID).Warn("transcript write failed")
	}
}
