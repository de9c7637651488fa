// Package agent routes each task type to its configured LLM provider.
package agent

import (
	"emisor_intel/pkg/core/llm"
)

// Task types used across the system. Each can be pinned to a provider in
// config/models.yaml.
const (
	TaskStructuredExtraction = "structured_extraction"
	TaskMetrics              = "metrics"
	TaskQuerySynthesis       = "query_synthesis"
	TaskOCR                  = "ocr"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Model       string `yaml:"model"`
	Description string `yaml:"description"`
}

type Manager struct {
	config    Config
	providers map[string]llm.Provider
	vision    llm.VisionProvider
	embedder  llm.Embedder
}

func NewManager(config Config) *Manager {
	gemini := &llm.GeminiProvider{}
	return &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"gemini":   gemini,
			"deepseek": &llm.DeepSeekProvider{},
		},
		vision:   gemini,
		embedder: llm.NewGeminiEmbedder(),
	}
}

// GetProvider picks the provider for a task type: per-agent override first,
// then the global active provider, then Gemini.
func (m *Manager) GetProvider(taskType string) llm.Provider {
	if agentConfig, ok := m.config.Agents[taskType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return m.providers["gemini"]
}

// OCR returns the first-pass OCR provider, pinned to the ocr task's model
// when one is configured. Gemini either way: DeepSeek has no document vision
// endpoint.
func (m *Manager) OCR() llm.VisionProvider {
	if agentConfig, ok := m.config.Agents[TaskOCR]; ok && agentConfig.Model != "" {
		return &llm.GeminiProvider{Model: agentConfig.Model}
	}
	return m.vision
}

// Vision returns the secondary vision fallback used when the OCR pass fails.
func (m *Manager) Vision() llm.VisionProvider {
	return m.vision
}

// Embedder returns the corpus embedder. One embedder per process; the corpus
// dimensionality depends on it.
func (m *Manager) Embedder() llm.Embedder {
	return m.embedder
}

func (m *Manager) GetActiveProvider() string {
	return m.config.ActiveProvider
}
