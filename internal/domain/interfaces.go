package domain

import "context"

// Intent tells the embedding provider what the text is used for.
// Some providers produce different vectors for documents and queries.
type Intent string

const (
	IntentDocument Intent = "document"
	IntentQuery    Intent = "query"
)

// Embedder converts free text into a fixed-length vector representation.
// Dimension returns 0 until the first successful call for providers that
// discover the dimensionality lazily.
type Embedder interface {
	Embed(ctx context.Context, text string, intent Intent) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, intent Intent) ([][]float32, error)
	Dimension() int
}

// VectorStore persists article records and supports top-k similarity search.
// Upserting a record whose article URL is already stored overwrites it.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Scraper fetches an article URL and extracts its textual content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (Article, error)
}
