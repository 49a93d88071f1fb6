package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"gossipsearch/internal/domain"
)

// Client calls the Mistral embeddings endpoint (OpenAI-shaped request and
// response). The vector dimension is discovered on the first successful call.
type Client struct {
	baseURL         string
	apiKey          string
	model           string
	maxInputWords   int
	chunkLongInputs bool
	client          *http.Client
	dimension       int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// MaxInputWords bounds input size. Over-length inputs are truncated
	// deterministically, or split and mean-merged when ChunkLongInputs is set.
	MaxInputWords   int
	ChunkLongInputs bool
}

// NewClient validates the credential and applies defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Mistral API key", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral-embed"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxInputWords == 0 {
		cfg.MaxInputWords = 1200
	}
	return &Client{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		maxInputWords:   cfg.MaxInputWords,
		chunkLongInputs: cfg.ChunkLongInputs,
		client:          &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Dimension returns the vector dimensionality, 0 before the first call.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string, intent domain.Intent) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text}, intent)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one request. Over-length texts are
// truncated, or chunked and mean-merged when configured; either way the
// output is one vector per input text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, intent domain.Intent) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Flatten the per-text chunks into a single request.
	var inputs []string
	spans := make([][2]int, len(texts))
	for i, text := range texts {
		// Documents are bounded silently; a query over the budget is a
		// caller error, truncating it would change the question.
		if intent == domain.IntentQuery && len(strings.Fields(text)) > c.maxInputWords {
			return nil, fmt.Errorf("%w: query exceeds %d words", domain.ErrInputTooLarge, c.maxInputWords)
		}
		chunks := c.prepare(text)
		spans[i] = [2]int{len(inputs), len(inputs) + len(chunks)}
		inputs = append(inputs, chunks...)
	}

	vectors, err := c.request(ctx, inputs, intent)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, span := range spans {
		if span[1]-span[0] == 1 {
			out[i] = vectors[span[0]]
			continue
		}
		out[i] = meanMerge(vectors[span[0]:span[1]])
	}
	return out, nil
}

// prepare bounds a text to the provider input limit.
func (c *Client) prepare(text string) []string {
	words := strings.Fields(text)
	if len(words) <= c.maxInputWords {
		return []string{text}
	}
	if !c.chunkLongInputs {
		return []string{strings.Join(words[:c.maxInputWords], " ")}
	}
	var chunks []string
	for start := 0; start < len(words); start += c.maxInputWords {
		end := start + c.maxInputWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	// InputType carries the document/query intent for providers that
	// distinguish them; Mistral currently ignores it.
	InputType string `json:"input_type,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) request(ctx context.Context, inputs []string, intent domain.Intent) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: c.model, Input: inputs, InputType: string(intent)})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrEmbeddingService, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrEmbeddingService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrEmbeddingService, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrEmbeddingService, err)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrEmbeddingService, len(parsed.Data), len(inputs))
	}

	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", domain.ErrEmbeddingService, d.Index)
		}
		if c.dimension == 0 {
			c.dimension = len(d.Embedding)
		}
		if len(d.Embedding) != c.dimension {
			return nil, fmt.Errorf("%w: dimension changed from %d to %d", domain.ErrEmbeddingService, c.dimension, len(d.Embedding))
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// meanMerge averages chunk vectors and L2-normalizes the result so merged
// vectors stay comparable under cosine similarity.
func meanMerge(vectors [][]float32) []float32 {
	out := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i := range out {
			out[i] += v[i]
		}
	}
	n := float32(len(vectors))
	var norm float64
	for i := range out {
		out[i] /= n
		norm += float64(out[i]) * float64(out[i])
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}
