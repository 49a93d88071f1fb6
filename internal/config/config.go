package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"gossipsearch/internal/domain"
)

// Environment variables carrying service credentials. These are never read
// from the config file.
const (
	envQdrantURL    = "QDRANT_URL"
	envQdrantAPIKey = "QDRANT_API_KEY"
	envMistralKey   = "MISTRAL_AI_API_KEY"
)

// CrawlerConfig configures sitemap crawling.
type CrawlerConfig struct {
	// Sitemaps are sitemap index URLs crawled when no URL is given on the
	// command line.
	Sitemaps []string `yaml:"sitemaps"`
	// Keywords filter sub-sitemap URLs by substring. Empty keeps everything.
	Keywords    []string `yaml:"keywords"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// ScraperConfig configures article fetching.
type ScraperConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs"`
	UserAgent   string `yaml:"user_agent"`
}

// EmbedderConfig configures the Mistral embeddings client.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	// MaxInputWords bounds embedding input size. Longer inputs are truncated
	// deterministically unless ChunkLongInputs is set.
	MaxInputWords int `yaml:"max_input_words"`
	// ChunkLongInputs switches from truncation to chunk-and-mean-merge for
	// over-length inputs.
	ChunkLongInputs bool `yaml:"chunk_long_inputs"`
	BatchSize       int  `yaml:"batch_size"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string `yaml:"type"` // "qdrant" or "memory"
	Collection string `yaml:"collection"`
}

// SearchConfig configures query-time behavior.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Crawler     CrawlerConfig     `yaml:"crawler"`
	Scraper     ScraperConfig     `yaml:"scraper"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Search      SearchConfig      `yaml:"search"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from the given path. A missing file yields defaults;
// a present but malformed file is an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfiguration, path, err)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Crawler: CrawlerConfig{
			Sitemaps: []string{
				"https://www.public.fr/sitemap_index.xml",
				"https://www.vsd.fr/sitemap_index.xml",
			},
			Keywords:    []string{"/post-sitemap", "/slideshow-sitemap", "/video-sitemap"},
			TimeoutSecs: 30,
		},
		Scraper: ScraperConfig{
			TimeoutSecs: 20,
			UserAgent:   "gossipsearch/1.0",
		},
		Embedder: EmbedderConfig{
			BaseURL:       "https://api.mistral.ai/v1",
			Model:         "mistral-embed",
			TimeoutSecs:   30,
			MaxInputWords: 1200,
			BatchSize:     5,
		},
		VectorStore: VectorStoreConfig{
			Type:       "qdrant",
			Collection: "gossip_articles_embeddings",
		},
		Search:  SearchConfig{TopK: 5},
		Logging: LoggingConfig{Level: "info"},
	}
}

func applyDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if len(cfg.Crawler.Sitemaps) == 0 {
		cfg.Crawler.Sitemaps = def.Crawler.Sitemaps
	}
	if cfg.Crawler.TimeoutSecs == 0 {
		cfg.Crawler.TimeoutSecs = def.Crawler.TimeoutSecs
	}
	if cfg.Scraper.TimeoutSecs == 0 {
		cfg.Scraper.TimeoutSecs = def.Scraper.TimeoutSecs
	}
	if cfg.Scraper.UserAgent == "" {
		cfg.Scraper.UserAgent = def.Scraper.UserAgent
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = def.Embedder.BaseURL
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = def.Embedder.TimeoutSecs
	}
	if cfg.Embedder.MaxInputWords == 0 {
		cfg.Embedder.MaxInputWords = def.Embedder.MaxInputWords
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = def.VectorStore.Collection
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = def.Search.TopK
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// Credentials holds service secrets loaded from the environment.
type Credentials struct {
	QdrantURL     string
	QdrantAPIKey  string
	MistralAPIKey string
}

// LoadCredentials reads credentials from the environment and fails fast on
// anything missing for the selected store type. Qdrant credentials are not
// required for the in-memory store.
func LoadCredentials(storeType string) (Credentials, error) {
	creds := Credentials{
		QdrantURL:     os.Getenv(envQdrantURL),
		QdrantAPIKey:  os.Getenv(envQdrantAPIKey),
		MistralAPIKey: os.Getenv(envMistralKey),
	}
	if creds.MistralAPIKey == "" {
		return Credentials{}, fmt.Errorf("%w: %s not set", domain.ErrConfiguration, envMistralKey)
	}
	if storeType == "qdrant" {
		if creds.QdrantURL == "" {
			return Credentials{}, fmt.Errorf("%w: %s not set", domain.ErrConfiguration, envQdrantURL)
		}
		if _, _, _, err := ParseQdrantURL(creds.QdrantURL); err != nil {
			return Credentials{}, err
		}
		if creds.QdrantAPIKey == "" {
			return Credentials{}, fmt.Errorf("%w: %s not set", domain.ErrConfiguration, envQdrantAPIKey)
		}
	}
	return creds, nil
}

// ParseQdrantURL splits a Qdrant endpoint URL into the host, gRPC port and
// TLS flag expected by the gRPC client. The port defaults to 6334.
func ParseQdrantURL(raw string) (host string, port int, useTLS bool, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("%w: invalid %s %q", domain.ErrConfiguration, envQdrantURL, raw)
	}
	host = u.Hostname()
	port = 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("%w: invalid port in %s %q", domain.ErrConfiguration, envQdrantURL, raw)
		}
	}
	return host, port, u.Scheme == "https", nil
}
