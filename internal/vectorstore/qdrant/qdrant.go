package qdrant

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gossipsearch/internal/domain"
)

// collectionNamePattern validates collection names before they reach Qdrant.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Config holds connection details for the Qdrant gRPC endpoint. Port is the
// gRPC port (6334), not the HTTP REST port.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Store adapts the Qdrant gRPC client to the vector store interface. Point
// IDs are UUIDv5 digests of the article URL, so re-ingesting a URL overwrites
// the existing point instead of duplicating it.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewStore connects to Qdrant and verifies the connection with a health
// check. The collection itself is created lazily by Init.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: qdrant host required", domain.ErrConfiguration)
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if !collectionNamePattern.MatchString(cfg.Collection) {
		return nil, fmt.Errorf("%w: collection name must match %s, got %q",
			domain.ErrConfiguration, collectionNamePattern, cfg.Collection)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s:%d: %v", domain.ErrStoreWrite, cfg.Host, cfg.Port, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", domain.ErrStoreWrite, err)
	}

	return &Store{client: client, collection: cfg.Collection}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Init creates the collection with cosine distance if it does not exist yet.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrStoreWrite, dimension)
	}
	s.dimension = dimension

	exists, err := s.collectionExists(ctx)
	if err != nil {
		return fmt.Errorf("%w: check collection %s: %v", domain.ErrStoreWrite, s.collection, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %v", domain.ErrStoreWrite, s.collection, err)
	}
	return nil
}

func (s *Store) collectionExists(ctx context.Context) (bool, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil, nil
}

// isNotFound reports whether err is the gRPC NotFound status Qdrant returns
// for operations on a missing collection.
func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.NotFound
}

// Upsert writes records with wait=true so a following search sees them.
func (s *Store) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(rec.Article.URL)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: articlePayload(rec.Article),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %d points into %s: %v", domain.ErrStoreWrite, len(points), s.collection, err)
	}
	return nil
}

// Search returns up to topK hits ordered by descending cosine similarity.
// An empty or not yet created collection yields an empty slice, not an
// error, so a query before the first ingestion just finds nothing.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if isNotFound(err) {
			return []domain.SearchResult{}, nil
		}
		return nil, fmt.Errorf("%w: query %s: %v", domain.ErrStoreQuery, s.collection, err)
	}

	results := make([]domain.SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, domain.SearchResult{
			Article: articleFromPayload(point.Payload),
			Score:   point.Score,
		})
	}
	return results, nil
}

// Count returns the exact number of stored points.
func (s *Store) Count(ctx context.Context) (int, error) {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: check collection %s: %v", domain.ErrStoreQuery, s.collection, err)
	}
	if !exists {
		return 0, nil
	}
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", domain.ErrStoreQuery, s.collection, err)
	}
	return int(count), nil
}

// Clear drops the collection; Init recreates it on the next ingestion.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("%w: delete collection %s: %v", domain.ErrStoreWrite, s.collection, err)
	}
	return nil
}

// PointID derives the deterministic point UUID for an article URL.
func PointID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

func articlePayload(article domain.Article) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"url":   {Kind: &qdrant.Value_StringValue{StringValue: article.URL}},
		"title": {Kind: &qdrant.Value_StringValue{StringValue: article.Title}},
		"date":  {Kind: &qdrant.Value_StringValue{StringValue: article.Date}},
		"text":  {Kind: &qdrant.Value_StringValue{StringValue: article.Text}},
	}
}

func articleFromPayload(payload map[string]*qdrant.Value) domain.Article {
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
				return s.StringValue
			}
		}
		return ""
	}
	return domain.Article{
		URL:   get("url"),
		Title: get("title"),
		Date:  get("date"),
		Text:  get("text"),
	}
}
