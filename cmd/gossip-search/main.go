package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gossipsearch/internal/config"
	"gossipsearch/internal/domain"
	"gossipsearch/internal/embedding/mistral"
	"gossipsearch/internal/logging"
	"gossipsearch/internal/scraper"
	"gossipsearch/internal/service"
	"gossipsearch/internal/tui"
	"gossipsearch/internal/vectorstore/memory"
	"gossipsearch/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)
	defer func() { _ = logger.Sync() }()

	creds, err := config.LoadCredentials(cfg.VectorStore.Type)
	if err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}

	embedder, err := mistral.NewClient(mistral.Config{
		BaseURL:         cfg.Embedder.BaseURL,
		APIKey:          creds.MistralAPIKey,
		Model:           cfg.Embedder.Model,
		Timeout:         time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		MaxInputWords:   cfg.Embedder.MaxInputWords,
		ChunkLongInputs: cfg.Embedder.ChunkLongInputs,
	})
	if err != nil {
		logger.Fatal("embedder init", zap.Error(err))
	}

	store, closeStore, err := buildStore(cfg, creds)
	if err != nil {
		logger.Fatal("vector store init", zap.Error(err))
	}
	defer closeStore()

	sc := scraper.New(
		&http.Client{Timeout: time.Duration(cfg.Scraper.TimeoutSecs) * time.Second},
		cfg.Scraper.UserAgent,
	)
	svc := service.New(sc, embedder, store, cfg.Embedder.BatchSize, logger.Named("service"))

	ctx := context.Background()
	indexed, err := svc.Count(ctx)
	if err != nil {
		logger.Warn("could not count indexed articles", zap.Error(err))
		indexed = 0
	}

	m := tui.New(ctx, svc, indexed, cfg.Search.TopK)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.Fatal("tui", zap.Error(err))
	}
}

func buildStore(cfg *config.AppConfig, creds config.Credentials) (domain.VectorStore, func(), error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.NewStore(), func() {}, nil
	case "qdrant":
		host, port, useTLS, err := config.ParseQdrantURL(creds.QdrantURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := qdrant.NewStore(qdrant.Config{
			Host:       host,
			Port:       port,
			APIKey:     creds.QdrantAPIKey,
			UseTLS:     useTLS,
			Collection: cfg.VectorStore.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrConfiguration, cfg.VectorStore.Type)
	}
}
