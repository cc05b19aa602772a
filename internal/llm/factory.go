package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/agenthands/pillguide/internal/config"
)

func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)
	timeout := config.Seconds(cfg.TimeoutSeconds)

	switch provider {
	case "azure":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("azure provider needs an endpoint (AZURE_OPENAI_ENDPOINT)")
		}
		return NewAzureOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.APIVersion, timeout), nil

	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, timeout), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}

		log.Printf("Initializing Ollama via OpenAI-compatible API at %s", baseURL)

		// Ollama ignores the key but the client wants one
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}

		return NewOpenAIClient(apiKey, cfg.Model, baseURL, timeout), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
