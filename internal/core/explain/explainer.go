package explain

import (
	"context"
	"fmt"

	"github.com/agenthands/pillguide/internal/config"
	"github.com/agenthands/pillguide/internal/core/model"
	"github.com/agenthands/pillguide/internal/llm"
)

type Explainer struct {
	LLM         llm.LLMClient
	Prompts     config.ExplainPrompts
	Temperature float32
	MaxTokens   int
}

func NewExplainer(llmClient llm.LLMClient, prompts config.ExplainPrompts, temperature float32, maxTokens int) *Explainer {
	return &Explainer{
		LLM:         llmClient,
		Prompts:     prompts,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// Explain asks the model for a medication guide for the decided label. The user prompt
// receives the label, the confidence in percent and the OCR text, in that order.
func (e *Explainer) Explain(ctx context.Context, d model.Decision) (string, error) {
	prompt := fmt.Sprintf(e.Prompts.User, d.Label, d.Percent(), d.OCRText)

	response, err := e.LLM.Generate(ctx, llm.Request{
		System:      e.Prompts.System,
		User:        prompt,
		Temperature: e.Temperature,
		MaxTokens:   e.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate explanation: %w", err)
	}
	if response == "" {
		return "", fmt.Errorf("empty explanation")
	}

	return response, nil
}
