package providers

import (
	"fmt"
	"os"
)

// NewGeneratorFromEnv builds a TextGenerator for provider ("claude", "openai"
// or "gemini") from environment variables. Gemini is routed through its
// OpenAI-compatible endpoint, the same trick the teacher used for Kimi/GLM/
// Groq/etc.
func NewGeneratorFromEnv(provider string) (TextGenerator, error) {
	switch provider {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-3-5-sonnet-20241022"
		}
		return NewAnthropicGenerator(apiKey, model), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			model = "gpt-4o-mini"
		}
		baseURL := os.Getenv("OPENAI_BASE_URL")
		return NewOpenAIGenerator(apiKey, model, baseURL, "openai"), nil

	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			model = "gemini-1.5-flash"
		}
		baseURL := os.Getenv("GEMINI_BASE_URL")
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
		}
		return NewOpenAIGenerator(apiKey, model, baseURL, "gemini"), nil

	case "mock":
		return NewMockGenerator("generic"), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai, gemini, mock)", provider)
	}
}

// NewBuildWorkerFromEnv builds the BuildWorker for the building role. Only
// "mock" is recognized; any other kind returns an error. The sandbox-backed
// worker is constructed directly from internal/sandbox, not through here.
func NewBuildWorkerFromEnv(kind string) (BuildWorker, error) {
	switch kind {
	case "mock":
		return NewMockBuildWorker(), nil
	default:
		return nil, fmt.Errorf("unknown build worker kind: %s", kind)
	}
}
