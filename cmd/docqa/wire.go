package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/gemini"
	"docqa/internal/embedding/hashing"
	"docqa/internal/embedding/openai"
	"docqa/internal/extractor"
	"docqa/internal/generation"
	"docqa/internal/generation/extractive"
	gengemini "docqa/internal/generation/gemini"
	genopenai "docqa/internal/generation/openai"
	"docqa/internal/qa"
	"docqa/internal/service"
	"docqa/internal/session"
	"docqa/internal/summarizer"
	"docqa/internal/transcript"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

// app holds the assembled components and everything that must be closed.
type app struct {
	svc     *service.RAGService
	store   *session.Store
	closers []io.Closer
}

func (a *app) Close(ctx context.Context) error {
	a.store.Close(ctx)
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// newApp assembles the service. storeOpts are applied after the configured
// session limits.
func newApp(ctx context.Context, cfg *config.AppConfig, log *logrus.Logger, storeOpts ...session.Option) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		for _, c := range a.closers {
			_ = c.Close()
		}
		return nil, err
	}

	sum := summarizer.NewFrequencySummarizer()

	emb, err := newEmbedder(ctx, cfg.Embedder, a)
	if err != nil {
		return fail(fmt.Errorf("embedder: %w", err))
	}
	gen, err := newGenerator(ctx, cfg.Generator, sum, cfg.Summarizer.MaxSentences, a)
	if err != nil {
		return fail(fmt.Errorf("generator: %w", err))
	}
	builder, err := newIndexBuilder(cfg.VectorStore)
	if err != nil {
		return fail(fmt.Errorf("vector store: %w", err))
	}

	var recorder service.Recorder
	if cfg.Transcript.Path != "" {
		ts, err := transcript.Open(cfg.Transcript.Path)
		if err != nil {
			return fail(fmt.Errorf("transcript: %w", err))
		}
		a.closers = append(a.closers, ts)
		recorder = ts
	}

	opts := []session.Option{
		session.WithMaxSessions(cfg.Sessions.MaxSessions),
		session.WithTTL(cfg.SessionTTL()),
		session.WithLogger(log.WithField("component", "sessions")),
	}
	a.store = session.NewStore(append(opts, storeOpts...)...)
	engine := qa.NewEngine(emb, gen,
		qa.WithTopK(cfg.Retrieval.TopK),
		qa.WithSnippetLength(cfg.Retrieval.SnippetLength),
	)

	a.svc = service.NewRAGService(service.Components{
		Extractor:  extractor.New(extractor.WithPDFToText(cfg.Extractor.PDFToTextPath)),
		Chunker:    chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap),
		Embedder:   emb,
		Builder:    builder,
		Engine:     engine,
		Store:      a.store,
		Summarizer: sum,
		Recorder:   recorder,
		Logger:     log.WithField("component", "service"),
	},
		service.WithBuildOptions(vectorstore.BuildOptions{
			BatchSize:   cfg.Embedder.BatchSize,
			Concurrency: cfg.Embedder.Concurrency,
		}),
		service.WithSummarySentences(cfg.Summarizer.MaxSentences),
	)

	log.WithFields(logrus.Fields{
		"embedder":     emb.Name(),
		"generator":    gen.Name(),
		"vector_store": cfg.VectorStore.Type,
	}).Info("components ready")
	return a, nil
}

func newEmbedder(ctx context.Context, cfg config.EmbedderConfig, a *app) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Type {
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Model:     cfg.Gemini.Model,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c)
		emb = c
	case "openai":
		c, err := openai.NewClient(openai.Config{
			BaseURL:       cfg.OpenAI.BaseURL,
			APIKeyEnv:     cfg.OpenAI.APIKeyEnv,
			Model:         cfg.OpenAI.Model,
			Timeout:       time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			AllowEmptyKey: isLocal(cfg.OpenAI.BaseURL),
		})
		if err != nil {
			return nil, err
		}
		emb = c
	case "hashing":
		emb = hashing.NewEmbedder(cfg.Hashing.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	emb = embedding.NewLimited(emb, cfg.RateLimit)
	return embedding.NewTimeout(emb, time.Duration(cfg.TimeoutSecs)*time.Second), nil
}

func newGenerator(ctx context.Context, cfg config.GeneratorConfig, sum *summarizer.FrequencySummarizer, sentences int, a *app) (domain.Generator, error) {
	var gen domain.Generator
	switch cfg.Type {
	case "gemini":
		c, err := gengemini.NewClient(ctx, gengemini.Config{
			APIKeyEnv:   cfg.Gemini.APIKeyEnv,
			Model:       cfg.Gemini.Model,
			Temperature: float32(cfg.Temperature),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c)
		gen = c
	case "openai":
		c, err := genopenai.NewClient(genopenai.Config{
			BaseURL:       cfg.OpenAI.BaseURL,
			APIKeyEnv:     cfg.OpenAI.APIKeyEnv,
			Model:         cfg.OpenAI.Model,
			Temperature:   cfg.Temperature,
			Timeout:       time.Duration(cfg.TimeoutSecs) * time.Second,
			AllowEmptyKey: isLocal(cfg.OpenAI.BaseURL),
		})
		if err != nil {
			return nil, err
		}
		gen = c
	case "extractive":
		gen = extractive.New(sum, sentences)
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
	gen = generation.NewLimited(gen, cfg.RateLimit)
	return generation.NewTimeout(gen, time.Duration(cfg.TimeoutSecs)*time.Second), nil
}

func newIndexBuilder(cfg config.VectorStoreConfig) (domain.IndexBuilder, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewBuilder(), nil
	case "qdrant":
		return qdrant.NewBuilder(qdrant.Config{
			URL:              cfg.Qdrant.URL,
			APIKey:           cfg.Qdrant.APIKey,
			CollectionPrefix: cfg.Qdrant.CollectionPrefix,
			Timeout:          time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// isLocal reports whether baseURL points at a keyless local server such as Ollama.
func isLocal(baseURL string) bool {
	return strings.Contains(baseURL, "localhost") || strings.Contains(baseURL, "127.0.0.1")
}
