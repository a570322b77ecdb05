package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address             string   `yaml:"address"`
	CORSOrigins         []string `yaml:"cors_origins"`
	MaxUploadMB         int      `yaml:"max_upload_mb"`
	ReadTimeoutSecs     int      `yaml:"read_timeout_secs"`
	WriteTimeoutSecs    int      `yaml:"write_timeout_secs"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs"`
}

// LogConfig configures the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ExtractorConfig configures document text extraction.
type ExtractorConfig struct {
	PDFToTextPath string `yaml:"pdftotext_path"`
}

// ChunkerConfig configures how documents are split into passages.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiConfig selects a Gemini model and the env var holding the API key.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// HashingConfig configures the offline hashing embedder.
type HashingConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string                `yaml:"type"`
	BatchSize   int                   `yaml:"batch_size"`
	Concurrency int                   `yaml:"concurrency"`
	RateLimit   int                   `yaml:"rate_limit"`
	TimeoutSecs int                   `yaml:"timeout_secs"`
	Gemini      *GeminiConfig         `yaml:"gemini,omitempty"`
	OpenAI      *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Hashing     *HashingConfig        `yaml:"hashing,omitempty"`
}

// OpenAIGeneratorConfig configures an OpenAI-compatible chat model.
type OpenAIGeneratorConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type        string                 `yaml:"type"`
	Temperature float64                `yaml:"temperature"`
	RateLimit   int                    `yaml:"rate_limit"`
	TimeoutSecs int                    `yaml:"timeout_secs"`
	Gemini      *GeminiConfig          `yaml:"gemini,omitempty"`
	OpenAI      *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector index implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant server.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// RetrievalConfig holds the query policy and citation formatting.
type RetrievalConfig struct {
	TopK          int `yaml:"top_k"`
	SnippetLength int `yaml:"snippet_length"`
}

// SessionsConfig bounds the in-memory session store.
type SessionsConfig struct {
	MaxSessions       int `yaml:"max_sessions"`
	TTLMinutes        int `yaml:"ttl_minutes"`
	SweepIntervalSecs int `yaml:"sweep_interval_secs"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// TranscriptConfig enables the SQLite audit log when Path is set.
type TranscriptConfig struct {
	Path string `yaml:"path"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Transcript  TranscriptConfig  `yaml:"transcript"`
}

// SessionTTL returns the idle expiry of sessions.
func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// ${VAR} references are expanded from the environment before decoding.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config data, applies defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	cfg := defaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyConfigDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, cfg.Validate()
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Embedder.Type {
	case "gemini", "openai", "hashing":
	default:
		errs = append(errs, fmt.Errorf("embedder.type: unknown embedder %q", c.Embedder.Type))
	}
	switch c.Generator.Type {
	case "gemini", "openai", "extractive":
	default:
		errs = append(errs, fmt.Errorf("generator.type: unknown generator %q", c.Generator.Type))
	}
	switch c.VectorStore.Type {
	case "memory":
	case "qdrant":
		if c.VectorStore.Qdrant == nil || c.VectorStore.Qdrant.URL == "" {
			errs = append(errs, errors.New("vector_store.qdrant.url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("vector_store.type: unknown vector store %q", c.VectorStore.Type))
	}
	if c.Summarizer.Type != "frequency" {
		errs = append(errs, fmt.Errorf("summarizer.type: unknown summarizer %q", c.Summarizer.Type))
	}
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errs = append(errs, fmt.Errorf("chunker.chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Chunker.ChunkOverlap, c.Chunker.ChunkSize))
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generator.temperature must be within [0, 2], got %v", c.Generator.Temperature))
	}
	if c.Embedder.TimeoutSecs < 0 || c.Generator.TimeoutSecs < 0 {
		errs = append(errs, errors.New("embedder.timeout_secs and generator.timeout_secs must not be negative"))
	}
	if c.Sessions.MaxSessions < 0 || c.Sessions.TTLMinutes < 0 {
		errs = append(errs, errors.New("sessions: max_sessions and ttl_minutes must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Server: ServerConfig{
			Address:             ":8000",
			CORSOrigins:         []string{"http://localhost:8000"},
			MaxUploadMB:         50,
			ReadTimeoutSecs:     30,
			WriteTimeoutSecs:    120,
			ShutdownTimeoutSecs: 10,
		},
		Log:         LogConfig{Level: "info", Format: "text"},
		Extractor:   ExtractorConfig{PDFToTextPath: "pdftotext"},
		Chunker:     ChunkerConfig{ChunkSize: 1200, ChunkOverlap: 200},
		Embedder:    EmbedderConfig{Type: "gemini", BatchSize: 32, Concurrency: 4, TimeoutSecs: 30},
		Generator:   GeneratorConfig{Type: "gemini", Temperature: 0.2, TimeoutSecs: 60},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Retrieval:   RetrievalConfig{TopK: 4, SnippetLength: 300},
		Sessions:    SessionsConfig{MaxSessions: 1000, TTLMinutes: 120, SweepIntervalSecs: 60},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 3},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1200
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.SnippetLength == 0 {
		cfg.Retrieval.SnippetLength = 300
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 4
	}
	switch cfg.Embedder.Type {
	case "gemini":
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GOOGLE_API_KEY"
		}
		if cfg.Embedder.Gemini.Model == "" {
			cfg.Embedder.Gemini.Model = "embedding-001"
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	case "hashing":
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 512
		}
	}
	switch cfg.Generator.Type {
	case "gemini":
		if cfg.Generator.Gemini == nil {
			cfg.Generator.Gemini = &GeminiConfig{}
		}
		if cfg.Generator.Gemini.APIKeyEnv == "" {
			cfg.Generator.Gemini.APIKeyEnv = "GOOGLE_API_KEY"
		}
		if cfg.Generator.Gemini.Model == "" {
			cfg.Generator.Gemini.Model = "gemini-1.5-flash"
		}
	case "openai":
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIGeneratorConfig{}
		}
		if cfg.Generator.OpenAI.APIKeyEnv == "" {
			cfg.Generator.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Generator.OpenAI.Model == "" {
			cfg.Generator.OpenAI.Model = "gpt-4o-mini"
		}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.CollectionPrefix == "" {
			cfg.VectorStore.Qdrant.CollectionPrefix = "docqa"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
}

// applyEnvOverrides lets deployments override the file without editing it.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := os.Getenv("DOCQA_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
}
