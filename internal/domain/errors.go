package domain

import "errors"

// Sentinel errors shared across the pipeline. Adapters wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify failures with errors.Is.
var (
	// ErrFetch covers network failures and non-2xx HTTP responses.
	ErrFetch = errors.New("fetch failed")

	// ErrGone marks an article whose resource returned HTTP 410.
	// Ingestion records these URLs separately instead of retrying them.
	ErrGone = errors.New("resource gone")

	// ErrParse marks a document that is not well-formed XML or HTML.
	ErrParse = errors.New("malformed document")

	// ErrExtraction marks an article whose expected markup is absent.
	// Non-fatal during ingestion: the article is logged and skipped.
	ErrExtraction = errors.New("content extraction failed")

	// ErrInputTooLarge is returned for a query exceeding the embedding
	// input budget. Documents are truncated or chunked instead.
	ErrInputTooLarge = errors.New("embedding input too large")

	// ErrEmbeddingService covers auth failures, rate limiting and
	// unavailability of the embedding provider.
	ErrEmbeddingService = errors.New("embedding service request failed")

	ErrStoreWrite = errors.New("vector store write failed")
	ErrStoreQuery = errors.New("vector store query failed")

	// ErrConfiguration is returned at startup for missing or invalid
	// environment credentials and config values.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEmptyQuery is returned for blank search input.
	ErrEmptyQuery = errors.New("empty query")
)
