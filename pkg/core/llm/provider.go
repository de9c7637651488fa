// Package llm wraps the generation and embedding services behind small
// interfaces so pipeline and metrics code can be tested with fakes.
package llm

import "context"

// Provider is the interface for all text generation providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// VisionProvider reads text out of scanned document bytes. Used as the OCR
// fallback when native PDF extraction produces garbage.
type VisionProvider interface {
	ExtractDocumentText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Embedder turns text into a fixed-dimension vector. Every vector in the
// corpus must come from the same embedder or similarity is undefined.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}
