package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gossipsearch/internal/domain"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Scraper fetches article pages and extracts their textual content with
// markup heuristics: the body is the text of every <p> element, the title
// comes from <h1> (falling back to <title>) and the date from the first
// <time> element.
type Scraper struct {
	client    *http.Client
	userAgent string
}

// New wires an HTTP client; the client default timeout applies, no retries.
func New(client *http.Client, userAgent string) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = "gossipsearch/1.0"
	}
	return &Scraper{client: client, userAgent: userAgent}
}

// Scrape downloads and extracts a single article. A page without paragraph
// content yields ErrExtraction so callers can skip it and continue; a missing
// title or date is tolerated and left empty.
func (s *Scraper) Scrape(ctx context.Context, url string) (domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Article{}, fmt.Errorf("%w: build request for %s: %v", domain.ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Article{}, fmt.Errorf("%w: %s: %v", domain.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return domain.Article{}, fmt.Errorf("%w: %s", domain.ErrGone, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Article{}, fmt.Errorf("%w: %s returned %s", domain.ErrFetch, url, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.Article{}, fmt.Errorf("%w: %s: %v", domain.ErrParse, url, err)
	}

	article := domain.Article{
		URL:   url,
		Title: extractTitle(doc),
		Date:  collapse(doc.Find("time").First().Text()),
		Text:  extractBody(doc),
	}
	if article.Text == "" {
		return domain.Article{}, fmt.Errorf("%w: no paragraph content in %s", domain.ErrExtraction, url)
	}
	return article, nil
}

func extractBody(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := collapse(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func extractTitle(doc *goquery.Document) string {
	if title := collapse(doc.Find("h1").First().Text()); title != "" {
		return title
	}
	return collapse(doc.Find("title").First().Text())
}

// collapse normalizes runs of whitespace to single spaces.
func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
