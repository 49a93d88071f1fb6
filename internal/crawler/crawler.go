package crawler

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"gossipsearch/internal/domain"
)

// Crawler walks a sitemap index and collects every article URL listed in the
// sub-sitemaps matching the configured keywords.
type Crawler struct {
	client   *http.Client
	keywords []string
	log      *zap.Logger
}

// New wires an HTTP client; keywords filter sub-sitemap URLs by substring and
// an empty list keeps everything.
func New(client *http.Client, keywords []string, log *zap.Logger) *Crawler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{client: client, keywords: keywords, log: log}
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []loc    `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []loc    `xml:"url"`
}

type loc struct {
	Loc string `xml:"loc"`
}

// Crawl fetches the sitemap index at indexURL and returns the article URLs of
// every matching sub-sitemap, deduplicated in first-seen order. A plain
// sitemap (urlset) passed as indexURL is accepted and read directly.
// Single attempt per document; transient failures surface as errors.
func (c *Crawler) Crawl(ctx context.Context, indexURL string) ([]string, error) {
	data, err := c.fetch(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	sitemaps, err := parseSitemapIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", indexURL, err)
	}
	if sitemaps == nil {
		// Not an index document; try it as a plain sitemap.
		urls, err := parseURLSet(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", indexURL, err)
		}
		return dedupe(urls), nil
	}

	var articles []string
	for _, sm := range c.filterSitemaps(sitemaps) {
		data, err := c.fetch(ctx, sm)
		if err != nil {
			return nil, err
		}
		urls, err := parseURLSet(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sm, err)
		}
		c.log.Info("crawled sitemap", zap.String("sitemap", sm), zap.Int("urls", len(urls)))
		articles = append(articles, urls...)
	}
	return dedupe(articles), nil
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", domain.ErrFetch, rawURL, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrFetch, rawURL, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrFetch, rawURL, err)
	}
	return data, nil
}

// parseSitemapIndex returns the sub-sitemap URLs of an index document, or nil
// when the document is well-formed XML but not a sitemap index.
func parseSitemapIndex(data []byte) ([]string, error) {
	var idx sitemapIndex
	if err := xml.Unmarshal(data, &idx); err != nil {
		var set urlSet
		if xml.Unmarshal(data, &set) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	out := make([]string, 0, len(idx.Sitemaps))
	for _, sm := range idx.Sitemaps {
		if u := strings.TrimSpace(sm.Loc); u != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

func parseURLSet(data []byte) ([]string, error) {
	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	out := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if s := strings.TrimSpace(u.Loc); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Crawler) filterSitemaps(sitemaps []string) []string {
	if len(c.keywords) == 0 {
		return sitemaps
	}
	var out []string
	for _, sm := range sitemaps {
		for _, kw := range c.keywords {
			if strings.Contains(sm, kw) {
				out = append(out, sm)
				break
			}
		}
	}
	return out
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// SaveURLs writes one URL per CSV row. With appendMode the rows are added to
// an existing file, otherwise the file is truncated first.
func SaveURLs(path string, urls []string, appendMode bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, u := range urls {
		if err := w.Write([]string{u}); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}
