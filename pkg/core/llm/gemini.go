package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider and VisionProvider on the Gemini API.
type GeminiProvider struct {
	Model string // e.g. "gemini-2.0-flash"
}

var _ Provider = (*GeminiProvider)(nil)
var _ VisionProvider = (*GeminiProvider)(nil)

func (p *GeminiProvider) client(ctx context.Context) (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *GeminiProvider) model(options map[string]interface{}) string {
	model := p.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}
	return model
}

// GenerateResponse sends a generateContent request. JSON mode is enabled via
// options["response_format"] = {"type": "json_object"} or inferred when the
// prompts ask for JSON.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	ctx, cancel := callContext(ctx, GenerateTimeout)
	defer cancel()

	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	if val, ok := options["response_format"].(map[string]interface{}); ok {
		if val["type"] == "json_object" {
			config.ResponseMIMEType = "application/json"
		}
	} else if strings.Contains(strings.ToLower(systemPrompt), "json") || strings.Contains(strings.ToLower(prompt), "json") {
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, p.model(options), genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return result.Text(), nil
}

// ExtractDocumentText runs the vision OCR fallback: the raw document bytes go
// to the model inline and the full visible text comes back. No retry; a
// failure here means the document contributes zero chunks.
func (p *GeminiProvider) ExtractDocumentText(ctx context.Context, data []byte, mimeType string) (string, error) {
	ctx, cancel := callContext(ctx, OCRTimeout)
	defer cancel()

	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
		{Text: "Transcribe el texto completo de este documento escaneado. Devuelve únicamente el texto, sin comentarios."},
	}
	contents := []*genai.Content{{Parts: parts, Role: genai.RoleUser}}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0)),
	}
	result, err := client.Models.GenerateContent(ctx, p.model(nil), contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini vision OCR failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini vision OCR returned empty text")
	}
	return text, nil
}
