package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gossipsearch/internal/domain"
)

const indexTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{base}/post-sitemap1.xml</loc></sitemap>
  <sitemap><loc>{base}/video-sitemap.xml</loc></sitemap>
  <sitemap><loc>{base}/news-sitemap.xml</loc></sitemap>
</sitemapindex>`

const postSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://www.public.fr/article-couple</loc></url>
  <url><loc>https://www.public.fr/article-tele</loc></url>
</urlset>`

const videoSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://www.public.fr/article-video</loc></url>
  <url><loc>https://www.public.fr/article-couple</loc></url>
</urlset>`

const newsSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://www.public.fr/article-news</loc></url>
</urlset>`

func newSitemapServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.ReplaceAll(indexTemplate, "{base}", server.URL)))
	})
	mux.HandleFunc("/post-sitemap1.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(postSitemap))
	})
	mux.HandleFunc("/video-sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(videoSitemap))
	})
	mux.HandleFunc("/news-sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(newsSitemap))
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<sitemapindex><sitemap><loc>unterminated`))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCrawlFiltersAndDeduplicates(t *testing.T) {
	server := newSitemapServer(t)
	c := New(server.Client(), []string{"/post-sitemap", "/video-sitemap"}, nil)

	urls, err := c.Crawl(context.Background(), server.URL+"/sitemap_index.xml")
	require.NoError(t, err)

	// news-sitemap is filtered out; the duplicated article-couple appears once.
	require.Equal(t, []string{
		"https://www.public.fr/article-couple",
		"https://www.public.fr/article-tele",
		"https://www.public.fr/article-video",
	}, urls)
}

func TestCrawlNoKeywordsKeepsEverything(t *testing.T) {
	server := newSitemapServer(t)
	c := New(server.Client(), nil, nil)

	urls, err := c.Crawl(context.Background(), server.URL+"/sitemap_index.xml")
	require.NoError(t, err)
	require.Contains(t, urls, "https://www.public.fr/article-news")
	require.Len(t, urls, 4)
}

func TestCrawlPlainSitemap(t *testing.T) {
	server := newSitemapServer(t)
	c := New(server.Client(), nil, nil)

	urls, err := c.Crawl(context.Background(), server.URL+"/post-sitemap1.xml")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://www.public.fr/article-couple",
		"https://www.public.fr/article-tele",
	}, urls)
}

func TestCrawlMalformedXML(t *testing.T) {
	server := newSitemapServer(t)
	c := New(server.Client(), nil, nil)

	_, err := c.Crawl(context.Background(), server.URL+"/broken.xml")
	require.ErrorIs(t, err, domain.ErrParse)
}

func TestCrawlHTTPError(t *testing.T) {
	server := newSitemapServer(t)
	c := New(server.Client(), nil, nil)

	_, err := c.Crawl(context.Background(), server.URL+"/missing.xml")
	require.ErrorIs(t, err, domain.ErrFetch)
}

func TestSaveURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")

	require.NoError(t, SaveURLs(path, []string{"https://a.example/1", "https://a.example/2"}, false))
	require.NoError(t, SaveURLs(path, []string{"https://a.example/3"}, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://a.example/1\nhttps://a.example/2\nhttps://a.example/3\n", string(data))

	// Overwrite mode truncates.
	require.NoError(t, SaveURLs(path, []string{"https://a.example/4"}, false))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://a.example/4\n", string(data))
}
