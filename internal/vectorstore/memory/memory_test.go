package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gossipsearch/internal/domain"
)

func record(url string, vector ...float32) domain.Record {
	return domain.Record{
		Article: domain.Article{URL: url, Title: url, Text: "texte de " + url},
		Vector:  vector,
	}
}

func TestUpsertOverwritesSameURL(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Init(ctx, 2))

	require.NoError(t, s.Upsert(ctx, []domain.Record{record("https://a.example/1", 1, 0)}))
	require.NoError(t, s.Upsert(ctx, []domain.Record{record("https://a.example/1", 0, 1)}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	results, err := s.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Init(ctx, 3))

	err := s.Upsert(ctx, []domain.Record{record("https://a.example/1", 1, 0)})
	require.ErrorIs(t, err, domain.ErrStoreWrite)
}

func TestSearchOrdersByScore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Record{
		record("https://a.example/ortho", 0, 1),
		record("https://a.example/close", 1, 1),
		record("https://a.example/exact", 1, 0),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "https://a.example/exact", results[0].Article.URL)
	require.Equal(t, "https://a.example/close", results[1].Article.URL)
	require.Equal(t, "https://a.example/ortho", results[2].Article.URL)
	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Record{
		record("https://a.example/1", 1, 0),
		record("https://a.example/2", 1, 1),
		record("https://a.example/3", 0, 1),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSearchEmptyStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Init(ctx, 2))

	results, err := s.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Record{record("https://a.example/1", 1, 0)}))

	require.NoError(t, s.Clear(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInitDimensionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Init(ctx, 2))
	require.ErrorIs(t, s.Init(ctx, 3), domain.ErrStoreWrite)
	require.NoError(t, s.Init(ctx, 2))
}
