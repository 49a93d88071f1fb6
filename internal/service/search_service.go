package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"gossipsearch/internal/domain"
	"gossipsearch/internal/sentence"
)

// maxTopK mirrors the upper bound of the original answer-count slider.
const maxTopK = 50

// SearchService orchestrates ingestion (scrape, embed, upsert) and querying
// (embed, search, best-sentence selection).
type SearchService struct {
	scraper     domain.Scraper
	embedder    domain.Embedder
	store       domain.VectorStore
	batchSize   int
	log         *zap.Logger
	initialized bool
}

func New(scraper domain.Scraper, embedder domain.Embedder, store domain.VectorStore, batchSize int, log *zap.Logger) *SearchService {
	if batchSize <= 0 {
		batchSize = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SearchService{
		scraper:   scraper,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		log:       log,
	}
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Ingested int // articles embedded and upserted
	Skipped  int // extraction or embedding failures, logged and skipped
	Gone     int // URLs returning HTTP 410, recorded in the gone file
}

// Ingest reads article URLs from the given CSV files and runs the pipeline
// sequentially: scrape, embed in batches, upsert. Per-article failures are
// logged and skipped; gone URLs are recorded once in "<file>_gone.csv" and
// skipped without fetching on later runs. Store failures abort the run.
func (s *SearchService) Ingest(ctx context.Context, urlFiles ...string) (IngestStats, error) {
	var stats IngestStats
	for _, file := range urlFiles {
		urls, err := readURLFile(file)
		if err != nil {
			return stats, err
		}
		known, err := readGoneSet(file)
		if err != nil {
			s.log.Warn("reading gone file failed", zap.Error(err))
			known = make(map[string]struct{})
		}
		s.log.Info("ingesting url file", zap.String("file", file), zap.Int("urls", len(urls)))

		var batch []domain.Article
		var gone []string
		for _, url := range urls {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if _, ok := known[url]; ok {
				stats.Gone++
				continue
			}
			article, err := s.scraper.Scrape(ctx, url)
			switch {
			case err == nil:
				batch = append(batch, article)
			case errors.Is(err, domain.ErrGone):
				known[url] = struct{}{}
				gone = append(gone, url)
				stats.Gone++
				continue
			default:
				s.log.Warn("skipping article", zap.String("url", url), zap.Error(err))
				stats.Skipped++
				continue
			}
			if len(batch) >= s.batchSize {
				if err := s.flush(ctx, batch, &stats); err != nil {
					return stats, err
				}
				batch = batch[:0]
			}
		}
		if err := s.flush(ctx, batch, &stats); err != nil {
			return stats, err
		}
		if len(gone) > 0 {
			if err := appendGoneFile(file, gone); err != nil {
				s.log.Warn("writing gone file failed", zap.Error(err))
			}
		}
	}
	s.log.Info("ingestion done",
		zap.Int("ingested", stats.Ingested),
		zap.Int("skipped", stats.Skipped),
		zap.Int("gone", stats.Gone))
	return stats, nil
}

// flush embeds a batch and upserts it. Embedding failures skip the batch;
// store failures are fatal.
func (s *SearchService) flush(ctx context.Context, batch []domain.Article, stats *IngestStats) error {
	if len(batch) == 0 {
		return nil
	}
	texts := make([]string, len(batch))
	for i, a := range batch {
		texts[i] = a.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, domain.IntentDocument)
	if err != nil {
		s.log.Warn("embedding batch failed, skipping", zap.Int("articles", len(batch)), zap.Error(err))
		stats.Skipped += len(batch)
		return nil
	}
	if !s.initialized {
		if err := s.store.Init(ctx, s.embedder.Dimension()); err != nil {
			return err
		}
		s.initialized = true
	}
	records := make([]domain.Record, len(batch))
	for i := range batch {
		records[i] = domain.Record{Article: batch[i], Vector: vectors[i]}
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return err
	}
	stats.Ingested += len(records)
	return nil
}

// Query embeds the query, searches the store and picks for each hit the
// stored sentence most similar to the query. A blank query fails fast.
func (s *SearchService) Query(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 5
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	vector, err := s.embedder.Embed(ctx, query, domain.IntentQuery)
	if err != nil {
		return nil, err
	}
	results, err := s.store.Search(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].BestSentence, results[i].SentenceScore = s.bestSentence(ctx, query, vector, results[i].Article.Text)
	}
	return results, nil
}

// Count reports the number of stored articles.
func (s *SearchService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// bestSentence scores each sentence of the article body against the query
// vector and returns the closest one. When sentence embedding fails it falls
// back to lexical token overlap, so a search never fails on this step. The
// returned sentence is always a substring of the stored body text.
func (s *SearchService) bestSentence(ctx context.Context, query string, queryVec []float32, text string) (string, float32) {
	sents := sentence.Split(text)
	if len(sents) == 0 {
		return "", 0
	}
	vectors, err := s.embedder.EmbedBatch(ctx, sents, domain.IntentDocument)
	if err != nil {
		s.log.Warn("sentence embedding failed, using lexical scoring", zap.Error(err))
		return lexicalBest(query, sents)
	}
	best := 0
	bestScore := float32(math.Inf(-1))
	for i, v := range vectors {
		if score := cosine(queryVec, v); score > bestScore {
			bestScore = score
			best = i
		}
	}
	return sents[best], bestScore
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// lexicalBest ranks sentences by the Ochiai coefficient of their token set
// against the query's.
func lexicalBest(query string, sents []string) (string, float32) {
	qset := tokenSet(query)
	best := 0
	bestScore := float32(0)
	for i, s := range sents {
		sset := tokenSet(s)
		if score := ochiai(qset, sset); score > bestScore {
			bestScore = score
			best = i
		}
	}
	return sents[best], bestScore
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// ochiai computes |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float32(float64(inter) / math.Sqrt(float64(len(a))*float64(len(b))))
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// readURLFile reads one URL per CSV row, skipping blank rows.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, path, err)
	}
	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if u := strings.TrimSpace(row[0]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// readGoneSet loads the URLs already recorded in a file's gone sidecar.
// A missing sidecar yields an empty set.
func readGoneSet(urlFile string) (map[string]struct{}, error) {
	urls, err := readURLFile(gonePath(urlFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]struct{}), nil
		}
		return nil, err
	}
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set, nil
}

// appendGoneFile records newly discovered gone URLs next to their source
// file; Ingest filters out already recorded ones before calling it.
func appendGoneFile(urlFile string, urls []string) error {
	path := gonePath(urlFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, u := range urls {
		if err := w.Write([]string{u}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// gonePath derives "<file>_gone.csv" from a URL file path.
func gonePath(urlFile string) string {
	ext := filepath.Ext(urlFile)
	if ext == "" {
		ext = ".csv"
	}
	return strings.TrimSuffix(urlFile, ext) + "_gone" + ext
}
