package llm

import (
	"context"
	"errors"
	"fmt"
)

const embeddingsPath = "/v1/embeddings"

// EmbeddingsClient talks to an OpenAI-compatible embeddings API.
type EmbeddingsClient struct {
	Model string
	// ExpectedSize is the vector size every embedding must have (VECTOR_SIZE).
	// Zero disables the check.
	ExpectedSize int
	api          endpoint
}

// NewEmbeddingsClient creates an embeddings client.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		Model:        model,
		ExpectedSize: expectedSize,
		api:          newEndpoint(baseURL, apiKey),
	}
}

// EmbedQuery embeds a single query text.
func (c *EmbeddingsClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts returns one vector per text, in input order. Embeddings are
// placed by their index when the server reports a complete set of indexes,
// otherwise by response order.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("empty input array")
	}

	var resp EmbeddingsResponse
	if err := c.api.postJSON(ctx, embeddingsPath, EmbeddingsRequest{Model: c.Model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	ordered := orderByIndex(resp.Data)
	result := make([][]float32, len(ordered))
	for i, data := range ordered {
		if c.ExpectedSize > 0 && len(data.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}
	return result, nil
}

// orderByIndex sorts data by Index if the indexes are a permutation of
// 0..len-1, and returns data unchanged otherwise.
func orderByIndex(data []EmbeddingData) []EmbeddingData {
	ordered := make([]EmbeddingData, len(data))
	seen := make([]bool, len(data))
	for _, d := range data {
		if d.Index < 0 || d.Index >= len(data) || seen[d.Index] {
			return data
		}
		seen[d.Index] = true
		ordered[d.Index] = d
	}
	return ordered
}
