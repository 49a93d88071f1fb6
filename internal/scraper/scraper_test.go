package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"gossipsearch/internal/domain"
)

const articlePage = `<!DOCTYPE html>
<html lang="fr">
<head><title>Public.fr - Rumeurs</title></head>
<body>
  <h1>
    Le couple   star officialise
  </h1>
  <time datetime="2024-03-14">14 mars 2024</time>
  <article>
    <p>Le couple a   confirmé la nouvelle
       ce   matin.</p>
    <p>Les fans <strong>attendaient</strong> cette annonce.</p>
    <p>   </p>
  </article>
</body>
</html>`

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articlePage))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Titre</h1><div>pas de paragraphe</div></body></html>`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestScrapeExtractsArticle(t *testing.T) {
	server := newPageServer(t)
	s := New(server.Client(), "")

	article, err := s.Scrape(context.Background(), server.URL+"/article")
	require.NoError(t, err)

	require.Equal(t, server.URL+"/article", article.URL)
	require.Equal(t, "Le couple star officialise", article.Title)
	require.Equal(t, "14 mars 2024", article.Date)
	require.Equal(t, "Le couple a confirmé la nouvelle ce matin. Les fans attendaient cette annonce.", article.Text)
}

func TestScrapeTitleFallsBackToTitleTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Fallback</title></head><body><p>texte</p></body></html>`))
	}))
	defer server.Close()
	s := New(server.Client(), "")

	article, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "Fallback", article.Title)
	require.Empty(t, article.Date)
}

func TestScrapeSendsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><p>texte</p></body></html>`))
	}))
	defer server.Close()
	s := New(server.Client(), "gossipsearch-test/0.1")

	_, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "gossipsearch-test/0.1", got)
}

func TestScrapeAcceptsNon200Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		_, _ = w.Write([]byte(`<html><body><h1>Titre</h1><p>texte via proxy</p></body></html>`))
	}))
	defer server.Close()
	s := New(server.Client(), "")

	article, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "texte via proxy", article.Text)
}

func TestScrapeNoParagraphs(t *testing.T) {
	server := newPageServer(t)
	s := New(server.Client(), "")

	_, err := s.Scrape(context.Background(), server.URL+"/empty")
	require.ErrorIs(t, err, domain.ErrExtraction)
}

func TestScrapeGone(t *testing.T) {
	server := newPageServer(t)
	s := New(server.Client(), "")

	_, err := s.Scrape(context.Background(), server.URL+"/gone")
	require.ErrorIs(t, err, domain.ErrGone)
}

func TestScrapeServerError(t *testing.T) {
	server := newPageServer(t)
	s := New(server.Client(), "")

	_, err := s.Scrape(context.Background(), server.URL+"/error")
	require.ErrorIs(t, err, domain.ErrFetch)
}
