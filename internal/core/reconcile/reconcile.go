package reconcile

import (
	"github.com/agenthands/pillguide/internal/core/model"
)

// DefaultThreshold is the minimum similarity for the OCR text to override the classifier.
const DefaultThreshold = 0.25

type Reconciler struct {
	Threshold float64
	// NoResult is the label reported when there are no candidates.
	NoResult string
}

func NewReconciler(threshold float64, noResult string) *Reconciler {
	return &Reconciler{
		Threshold: threshold,
		NoResult:  noResult,
	}
}

// Top returns the highest-probability candidate, the first one on ties.
func Top(candidates []model.Candidate) (model.Candidate, bool) {
	if len(candidates) == 0 {
		return model.Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Probability > best.Probability {
			best = c
		}
	}
	return best, true
}

// Reconcile picks one label from candidates, using ocrText to re-rank them when it is
// close enough to one of the labels. The returned label is always a candidate label, or
// NoResult when candidates is empty.
func (r *Reconciler) Reconcile(candidates []model.Candidate, ocrText string) model.Decision {
	base, ok := Top(candidates)
	if !ok {
		return model.Decision{
			Label:   r.NoResult,
			OCRText: ocrText,
			Source:  model.SourceNone,
		}
	}

	fallback := model.Decision{
		Label:      base.Label,
		Confidence: base.Probability,
		OCRText:    ocrText,
		Source:     model.SourceClassifier,
	}
	if ocrText == "" {
		return fallback
	}

	norm := Normalize(ocrText)
	best := base
	bestSim := -1.0
	for _, c := range candidates {
		sim := Similarity(norm, Normalize(c.Label))
		if sim > bestSim || (sim == bestSim && c.Probability > best.Probability) {
			best, bestSim = c, sim
		}
	}

	if bestSim < r.Threshold {
		fallback.Similarity = bestSim
		return fallback
	}

	return model.Decision{
		Label:      best.Label,
		Confidence: best.Probability,
		OCRText:    ocrText,
		Similarity: bestSim,
		Source:     model.SourceOCR,
	}
}
