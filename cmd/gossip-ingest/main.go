package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gossipsearch/internal/config"
	"gossipsearch/internal/domain"
	"gossipsearch/internal/embedding/mistral"
	"gossipsearch/internal/logging"
	"gossipsearch/internal/scraper"
	"gossipsearch/internal/service"
	"gossipsearch/internal/vectorstore/memory"
	"gossipsearch/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to config YAML")
	flag.Parse()
	urlFiles := flag.Args()
	if len(urlFiles) == 0 {
		fmt.Println("Usage: gossip-ingest [--config=config.yaml] urls1.csv [urls2.csv ...]")
		os.Exit(1)
	}

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
	stats, err := svc.Ingest(context.Background(), urlFiles...)
	if err != nil {
		logger.Fatal("ingest failed", zap.Error(err),
			zap.Int("ingested", stats.Ingested),
			zap.Int("skipped", stats.Skipped),
			zap.Int("gone", stats.Gone))
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
