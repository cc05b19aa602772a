package reconcile

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/agenthands/pillguide/internal/config"
	"github.com/agenthands/pillguide/internal/core/common"
	"github.com/agenthands/pillguide/internal/core/model"
	"github.com/agenthands/pillguide/internal/llm"
)

type pickResult struct {
	Label string `json:"label"`
}

// LLMPicker asks a language model to choose among the candidates given the OCR text. Any
// answer that is not one of the candidate labels is discarded in favour of the
// similarity decision.
type LLMPicker struct {
	LLM        llm.LLMClient
	Prompts    config.PickPrompts
	Reconciler *Reconciler
}

func NewLLMPicker(client llm.LLMClient, prompts config.PickPrompts, r *Reconciler) *LLMPicker {
	return &LLMPicker{
		LLM:        client,
		Prompts:    prompts,
		Reconciler: r,
	}
}

func (p *LLMPicker) Reconcile(ctx context.Context, candidates []model.Candidate, ocrText string) model.Decision {
	fallback := p.Reconciler.Reconcile(candidates, ocrText)
	if len(candidates) == 0 || ocrText == "" {
		return fallback
	}

	label, err := p.pick(ctx, candidates, ocrText)
	if err != nil {
		log.Printf("llm pick failed, using similarity decision: %v", err)
		return fallback
	}

	for _, c := range candidates {
		if c.Label == label {
			return model.Decision{
				Label:      c.Label,
				Confidence: c.Probability,
				OCRText:    ocrText,
				Similarity: Similarity(Normalize(ocrText), Normalize(c.Label)),
				Source:     model.SourceLLM,
			}
		}
	}

	log.Printf("llm picked %q which is not a candidate, using similarity decision", label)
	return fallback
}

func (p *LLMPicker) pick(ctx context.Context, candidates []model.Candidate, ocrText string) (string, error) {
	var list strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&list, "- %s (probability: %.1f%%)\n", c.Label, c.Probability*100)
	}

	resp, err := p.LLM.Generate(ctx, llm.Request{
		System:      p.Prompts.System,
		User:        fmt.Sprintf(p.Prompts.User, ocrText, list.String()),
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate pick: %w", err)
	}

	result, err := common.ParseJSON[pickResult](resp)
	if err != nil {
		// plain-text answers are accepted as the label itself
		return strings.Trim(strings.TrimSpace(resp), `"'`), nil
	}
	return strings.TrimSpace(result.Label), nil
}
