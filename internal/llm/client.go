package llm

import (
	"context"
)

// Request is a single-turn chat exchange.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

type LLMClient interface {
	Generate(ctx context.Context, req Request) (string, error)
}
