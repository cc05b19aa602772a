package core

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/agenthands/pillguide/internal/config"
	"github.com/agenthands/pillguide/internal/core/explain"
	"github.com/agenthands/pillguide/internal/core/imageprep"
	"github.com/agenthands/pillguide/internal/core/model"
	"github.com/agenthands/pillguide/internal/core/reconcile"
	"github.com/agenthands/pillguide/internal/llm"
	"github.com/agenthands/pillguide/internal/vision"
)

// Pipeline runs one photo through classification, optional OCR, reconciliation and
// explanation. It never returns errors: every failure becomes one of Messages.
type Pipeline struct {
	Classifier vision.Classifier
	// Reader is nil when OCR is not configured.
	Reader     vision.TextReader
	Reconciler *reconcile.Reconciler
	// Picker is set when the llm reconcile strategy is selected.
	Picker    *reconcile.LLMPicker
	Explainer *explain.Explainer
	Images    *imageprep.Preparer
	Messages  config.Messages
}

func NewPipeline(classifier vision.Classifier, reader vision.TextReader, llmClient llm.LLMClient, cfg *config.Config) *Pipeline {
	r := reconcile.NewReconciler(cfg.Reconcile.Threshold, cfg.Messages.ClassificationFailed)

	p := &Pipeline{
		Classifier: classifier,
		Reader:     reader,
		Reconciler: r,
		Explainer:  explain.NewExplainer(llmClient, cfg.Prompts.Explain, cfg.LLM.Temperature, cfg.LLM.MaxTokens),
		Images:     imageprep.New(cfg.Image.MaxDim, cfg.Image.Quality),
		Messages:   cfg.Messages,
	}
	if cfg.Reconcile.Strategy == config.StrategyLLM {
		p.Picker = reconcile.NewLLMPicker(llmClient, cfg.Prompts.Pick, r)
	}
	return p
}

// Analyze classifies the photo and explains the result.
func (p *Pipeline) Analyze(ctx context.Context, raw []byte) model.Analysis {
	a, ok := p.classify(ctx, raw)
	if !ok {
		return a
	}
	a.Detail = p.Explain(ctx, a.Decision)
	return a
}

// Classify is Analyze without the explanation.
func (p *Pipeline) Classify(ctx context.Context, raw []byte) model.Analysis {
	a, _ := p.classify(ctx, raw)
	return a
}

// Reconcile applies the configured strategy to an already classified photo.
func (p *Pipeline) Reconcile(ctx context.Context, candidates []model.Candidate, ocrText string) model.Decision {
	if p.Picker != nil {
		return p.Picker.Reconcile(ctx, candidates, ocrText)
	}
	return p.Reconciler.Reconcile(candidates, ocrText)
}

// Explain returns the medication guide for d, or a display message when d carries no
// recognized pill or the language model cannot be reached.
func (p *Pipeline) Explain(ctx context.Context, d model.Decision) string {
	if !d.Matched() {
		return p.Messages.Retake
	}
	detail, err := p.Explainer.Explain(ctx, d)
	if err != nil {
		log.Printf("explanation for %q failed: %v", d.Label, err)
		return p.Messages.ConnectionFailed
	}
	return detail
}

// IsSentinel reports whether label is one of the display messages used in place of a pill
// name.
func (p *Pipeline) IsSentinel(label string) bool {
	switch label {
	case p.Messages.NoImage, p.Messages.BadImage, p.Messages.RecognitionFailed, p.Messages.ClassificationFailed:
		return true
	}
	return false
}

// Header is the one-line summary shown above the explanation.
func (p *Pipeline) Header(d model.Decision) string {
	if d.OCRText != "" {
		return fmt.Sprintf(p.Messages.HeaderWithText, d.Label, d.Percent(), d.OCRText)
	}
	return fmt.Sprintf(p.Messages.Header, d.Label, d.Percent())
}

// classify reports false when the photo itself was unusable and nothing else should run.
func (p *Pipeline) classify(ctx context.Context, raw []byte) (model.Analysis, bool) {
	a := model.Analysis{
		RequestID:  uuid.New().String(),
		Candidates: []model.Candidate{},
		Decision:   model.Decision{Source: model.SourceNone},
	}

	img, err := p.Images.Prepare(raw)
	if errors.Is(err, imageprep.ErrEmpty) {
		a.Header = p.Messages.NoImage
		return a, false
	}
	if err != nil {
		log.Printf("[%s] unusable image: %v", a.RequestID, err)
		a.Header = p.Messages.BadImage
		return a, false
	}

	candidates, err := p.Classifier.Classify(ctx, img)
	if err != nil {
		log.Printf("[%s] classification failed: %v", a.RequestID, err)
		a.Decision.Label = p.Messages.RecognitionFailed
		a.Header = p.Header(a.Decision)
		return a, true
	}
	a.Candidates = candidates

	var ocrText string
	if p.Reader != nil && len(candidates) > 0 {
		ocrText, err = p.Reader.ReadText(ctx, img)
		if err != nil {
			log.Printf("[%s] ocr failed, continuing without surface text: %v", a.RequestID, err)
			ocrText = ""
		}
	}

	a.Decision = p.Reconcile(ctx, candidates, ocrText)
	a.Header = p.Header(a.Decision)

	log.Printf("[%s] decided %q (source=%s, confidence=%.3f, similarity=%.2f, ocr=%q)",
		a.RequestID, a.Decision.Label, a.Decision.Source, a.Decision.Confidence, a.Decision.Similarity, ocrText)
	return a, true
}
