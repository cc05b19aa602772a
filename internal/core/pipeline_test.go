package core

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/pillguide/internal/config"
	"github.com/agenthands/pillguide/internal/core/model"
)

var pills = []model.Candidate{
	{Label: "TYLENOL500", Probability: 0.8},
	{Label: "ADVIL200", Probability: 0.15},
}

func photo(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := 0; i < 32; i++ {
		img.Set(i, i, color.RGBA{200, 10, 10, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAnalyze_WithOCR(t *testing.T) {
	classifier := &MockClassifier{Candidates: pills}
	reader := &MockReader{Text: "TYL5OO"}
	mockLLM := &MockLLM{Response: "- Acetaminophen pain reliever."}
	p := NewPipeline(classifier, reader, mockLLM, config.Default())

	a := p.Analyze(context.Background(), photo(t))

	assert.NotEmpty(t, a.RequestID)
	assert.Equal(t, "TYLENOL500", a.Decision.Label)
	assert.Equal(t, model.SourceOCR, a.Decision.Source)
	assert.Equal(t, "Predicted pill: TYLENOL500 (confidence: 80.0%) | Surface text: TYL5OO", a.Header)
	assert.Equal(t, "- Acetaminophen pain reliever.", a.Detail)
	assert.Equal(t, pills, a.Candidates)

	// the classifier receives the re-encoded JPEG, not the PNG upload
	require.NotEmpty(t, classifier.LastImage)
	assert.Equal(t, []byte{0xFF, 0xD8}, classifier.LastImage[:2])

	require.Len(t, mockLLM.Requests, 1)
	assert.Contains(t, mockLLM.Requests[0].User, "TYLENOL500")
	assert.Contains(t, mockLLM.Requests[0].User, "80.0%")
	assert.Contains(t, mockLLM.Requests[0].User, "'TYL5OO'")
}

func TestAnalyze_WithoutOCR(t *testing.T) {
	p := NewPipeline(&MockClassifier{Candidates: pills}, nil, &MockLLM{Response: "guide"}, config.Default())

	a := p.Analyze(context.Background(), photo(t))

	assert.Equal(t, "TYLENOL500", a.Decision.Label)
	assert.Equal(t, model.SourceClassifier, a.Decision.Source)
	assert.Equal(t, "Predicted pill: TYLENOL500 (confidence: 80.0%)", a.Header)
	assert.Equal(t, "guide", a.Detail)
}

func TestAnalyze_OCRFailureIsIgnored(t *testing.T) {
	reader := &MockReader{Err: fmt.Errorf("image analysis 500: boom")}
	p := NewPipeline(&MockClassifier{Candidates: pills}, reader, &MockLLM{Response: "guide"}, config.Default())

	a := p.Analyze(context.Background(), photo(t))

	assert.Equal(t, 1, reader.Calls)
	assert.Equal(t, "TYLENOL500", a.Decision.Label)
	assert.Empty(t, a.Decision.OCRText)
	assert.Equal(t, "guide", a.Detail)
}

func TestAnalyze_NoImage(t *testing.T) {
	classifier := &MockClassifier{Candidates: pills}
	mockLLM := &MockLLM{}
	p := NewPipeline(classifier, nil, mockLLM, config.Default())

	a := p.Analyze(context.Background(), nil)

	assert.Equal(t, "No image was uploaded.", a.Header)
	assert.Empty(t, a.Detail)
	assert.Zero(t, classifier.Calls)
	assert.Empty(t, mockLLM.Requests)
}

func TestAnalyze_BadImage(t *testing.T) {
	classifier := &MockClassifier{Candidates: pills}
	p := NewPipeline(classifier, nil, &MockLLM{}, config.Default())

	a := p.Analyze(context.Background(), []byte("not a photo"))

	assert.Equal(t, "The image could not be read.", a.Header)
	assert.Empty(t, a.Detail)
	assert.Zero(t, classifier.Calls)
}

func TestAnalyze_ClassifierFailure(t *testing.T) {
	reader := &MockReader{Text: "TYL5OO"}
	mockLLM := &MockLLM{Response: "guide"}
	p := NewPipeline(&MockClassifier{Err: fmt.Errorf("dial tcp: connection refused")}, reader, mockLLM, config.Default())

	a := p.Analyze(context.Background(), photo(t))

	assert.Equal(t, "recognition failed", a.Decision.Label)
	assert.Equal(t, model.SourceNone, a.Decision.Source)
	assert.Equal(t, "Predicted pill: recognition failed (confidence: 0.0%)", a.Header)
	assert.Equal(t, config.Default().Messages.Retake, a.Detail)
	assert.Zero(t, reader.Calls)
	assert.Empty(t, mockLLM.Requests)
}

func TestAnalyze_NoPredictions(t *testing.T) {
	reader := &MockReader{Text: "TYL5OO"}
	p := NewPipeline(&MockClassifier{}, reader, &MockLLM{Response: "guide"}, config.Default())

	a := p.Analyze(context.Background(), photo(t))

	assert.Equal(t, "classification failed", a.Decision.Label)
	assert.Equal(t, config.Default().Messages.Retake, a.Detail)
	assert.Zero(t, reader.Calls)
	assert.NotNil(t, a.Candidates)
}

func TestAnalyze_LLMFailure(t *testing.T) {
	p := NewPipeline(&MockClassifier{Candidates: pills}, nil, &MockLLM{Err: fmt.Errorf("503")}, config.Default())

	a := p.Analyze(context.Background(), photo(t))

	assert.Equal(t, "TYLENOL500", a.Decision.Label)
	assert.Equal(t, config.Default().Messages.ConnectionFailed, a.Detail)
}

func TestAnalyze_LLMStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Reconcile.Strategy = config.StrategyLLM
	mockLLM := &MockLLM{ResponseQueue: []string{`{"label": "ADVIL200"}`, "advil guide"}}
	p := NewPipeline(&MockClassifier{Candidates: pills}, &MockReader{Text: "XKQZ"}, mockLLM, cfg)

	a := p.Analyze(context.Background(), photo(t))

	assert.Equal(t, "ADVIL200", a.Decision.Label)
	assert.Equal(t, model.SourceLLM, a.Decision.Source)
	assert.Equal(t, "advil guide", a.Detail)
	assert.Len(t, mockLLM.Requests, 2)
}

func TestClassify_DoesNotExplain(t *testing.T) {
	mockLLM := &MockLLM{Response: "guide"}
	p := NewPipeline(&MockClassifier{Candidates: pills}, &MockReader{Text: "XKQZ"}, mockLLM, config.Default())

	a := p.Classify(context.Background(), photo(t))

	assert.Equal(t, "TYLENOL500", a.Decision.Label)
	assert.Equal(t, "XKQZ", a.Decision.OCRText)
	assert.Empty(t, a.Detail)
	assert.Empty(t, mockLLM.Requests)
}

func TestIsSentinel(t *testing.T) {
	cfg := config.Default()
	p := NewPipeline(&MockClassifier{}, nil, &MockLLM{}, cfg)

	assert.True(t, p.IsSentinel(cfg.Messages.NoImage))
	assert.True(t, p.IsSentinel(cfg.Messages.BadImage))
	assert.True(t, p.IsSentinel(cfg.Messages.RecognitionFailed))
	assert.True(t, p.IsSentinel(cfg.Messages.ClassificationFailed))
	assert.False(t, p.IsSentinel("TYLENOL500"))
}
