package qdrant

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gossipsearch/internal/domain"
)

func TestPointIDDeterministic(t *testing.T) {
	const url = "https://www.public.fr/article-couple"

	first := PointID(url)
	second := PointID(url)
	require.Equal(t, first, second)
	require.NotEqual(t, first, PointID("https://www.public.fr/autre-article"))

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(5), parsed.Version())
}

func TestArticlePayloadRoundTrip(t *testing.T) {
	article := domain.Article{
		URL:   "https://www.public.fr/article-couple",
		Title: "Le couple star officialise",
		Date:  "14 mars 2024",
		Text:  "Le couple a confirmé la nouvelle ce matin.",
	}
	require.Equal(t, article, articleFromPayload(articlePayload(article)))
}

func TestArticleFromPayloadMissingKeys(t *testing.T) {
	article := articleFromPayload(nil)
	require.Equal(t, domain.Article{}, article)
}

// Search and collectionExists treat a NotFound status as "nothing indexed
// yet"; any other failure stays an error.
func TestIsNotFound(t *testing.T) {
	require.True(t, isNotFound(status.Error(codes.NotFound, "collection gossip_articles_embeddings not found")))
	require.False(t, isNotFound(status.Error(codes.Internal, "storage failure")))
	require.False(t, isNotFound(errors.New("connection reset")))
}

func TestNewStoreValidation(t *testing.T) {
	_, err := NewStore(Config{Collection: "gossip_articles_embeddings"})
	require.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewStore(Config{Host: "localhost", Collection: "Not A Valid Name"})
	require.ErrorIs(t, err, domain.ErrConfiguration)
}
