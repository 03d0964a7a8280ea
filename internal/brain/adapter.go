package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PromptRequest is the normalized generation request: one personality system
// prompt, an optional language directive, and the recent conversation
// transcript as role-labeled lines.
type PromptRequest struct {
	SystemPrompt      string
	LanguageDirective string
	Transcript        string
}

// Adapter bridges the chat runtime with a hosted language model. One blocking
// call per request, no internal retry.
type Adapter interface {
	Generate(ctx context.Context, req PromptRequest) (string, error)
}

// Config controls adapter construction.
type Config struct {
	Mode string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// NewAdapter builds the adapter for cfg.Mode. "auto" prefers Gemini, then
// OpenAI, then the mock, based on which credentials are present.
func NewAdapter(ctx context.Context, cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			return NewGeminiAdapter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		}
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIAdapter(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
		}
		return NewMockAdapter(), nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, errors.New("gemini api key is required for gemini mode")
		}
		return NewGeminiAdapter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("openai api key is required for openai mode")
		}
		return NewOpenAIAdapter(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported brain mode %q", cfg.Mode)
	}
}

// BuildPrompt flattens a request into the single text prompt sent to
// prompt-oriented providers.
func BuildPrompt(req PromptRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.SystemPrompt))
	if d := strings.TrimSpace(req.LanguageDirective); d != "" {
		b.WriteString("\n")
		b.WriteString(d)
	}
	b.WriteString("\n\nConversation:\n")
	b.WriteString(req.Transcript)
	return b.String()
}
