package llm

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// EmbeddingDimension is fixed for the whole corpus. text-embedding-004
// produces 768-dimensional vectors; changing models means re-indexing
// everything.
const EmbeddingDimension = 768

// GeminiEmbedder implements Embedder on the Gemini embedding API.
type GeminiEmbedder struct {
	Model string // defaults to "text-embedding-004"

	mu     sync.Mutex
	client *genai.Client
}

var _ Embedder = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder() *GeminiEmbedder {
	return &GeminiEmbedder{Model: "text-embedding-004"}
}

func (e *GeminiEmbedder) getClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	e.client = client
	return client, nil
}

// Embed returns the embedding vector for one text span.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := callContext(ctx, EmbedTimeout)
	defer cancel()

	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}

	model := e.Model
	if model == "" {
		model = "text-embedding-004"
	}
	res, err := client.EmbeddingModel(model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding call returned no values")
	}

	vec := make([]float64, len(res.Embedding.Values))
	for i, v := range res.Embedding.Values {
		vec[i] = float64(v)
	}
	return vec, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return EmbeddingDimension
}

// Close releases the underlying client.
func (e *GeminiEmbedder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
}
