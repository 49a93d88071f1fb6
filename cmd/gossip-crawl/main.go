package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gossipsearch/internal/config"
	"gossipsearch/internal/crawler"
	"gossipsearch/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to config YAML")
	out := flag.String("out", "data/articles.csv", "CSV file receiving the article URLs")
	appendMode := flag.Bool("append", false, "Append to the output file instead of overwriting")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)
	defer func() { _ = logger.Sync() }()

	sitemaps := flag.Args()
	if len(sitemaps) == 0 {
		sitemaps = cfg.Crawler.Sitemaps
	}
	if len(sitemaps) == 0 {
		fmt.Println("Usage: gossip-crawl [--config=config.yaml] [--out=data/articles.csv] [--append] sitemap_index_url...")
		os.Exit(1)
	}

	client := &http.Client{Timeout: time.Duration(cfg.Crawler.TimeoutSecs) * time.Second}
	c := crawler.New(client, cfg.Crawler.Keywords, logger.Named("crawler"))

	ctx := context.Background()
	start := time.Now()
	seen := make(map[string]struct{})
	var urls []string
	for _, sm := range sitemaps {
		logger.Info("crawling sitemap index", zap.String("url", sm))
		found, err := c.Crawl(ctx, sm)
		if err != nil {
			logger.Fatal("crawl failed", zap.String("url", sm), zap.Error(err))
		}
		for _, u := range found {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("create output directory", zap.Error(err))
		}
	}
	if err := crawler.SaveURLs(*out, urls, *appendMode); err != nil {
		logger.Fatal("save urls", zap.Error(err))
	}
	logger.Info("crawl done",
		zap.Int("articles", len(urls)),
		zap.String("out", *out),
		zap.Duration("elapsed", time.Since(start)))
}
