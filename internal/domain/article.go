package domain

// Article is a single gossip article scraped from one of the configured sites.
// The URL doubles as the record identifier in the vector store.
type Article struct {
	URL   string
	Title string
	Date  string
	Text  string
}

// Record pairs an article with its embedding for storage.
type Record struct {
	Article Article
	Vector  []float32
}

// SearchResult is one similarity hit. The store fills Article and Score;
// the search service fills BestSentence and SentenceScore afterwards.
type SearchResult struct {
	Article       Article
	Score         float32
	BestSentence  string
	SentenceScore float32
}
