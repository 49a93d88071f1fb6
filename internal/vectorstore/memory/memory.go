package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"gossipsearch/internal/domain"
)

// Store is a brute-force in-memory vector store with exact cosine scoring.
// It backs tests and offline runs; production uses the Qdrant adapter.
type Store struct {
	mu        sync.RWMutex
	dimension int
	index     map[string]int // article URL -> position in records
	records   []domain.Record
}

func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

func (s *Store) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrStoreWrite, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: dimension %d does not match existing %d", domain.ErrStoreWrite, dimension, s.dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Store) Upsert(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if s.dimension != 0 && len(rec.Vector) != s.dimension {
			return fmt.Errorf("%w: vector dimension %d, want %d", domain.ErrStoreWrite, len(rec.Vector), s.dimension)
		}
		if pos, ok := s.index[rec.Article.URL]; ok {
			s.records[pos] = rec
			continue
		}
		s.index[rec.Article.URL] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SearchResult, 0, len(s.records))
	for _, rec := range s.records {
		results = append(results, domain.SearchResult{
			Article: rec.Article,
			Score:   cosine(rec.Vector, vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = make(map[string]int)
	s.records = nil
	return nil
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
