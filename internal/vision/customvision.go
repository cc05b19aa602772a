package vision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/agenthands/pillguide/internal/config"
	"github.com/agenthands/pillguide/internal/core/model"
)

type prediction struct {
	Probability float64            `json:"probability"`
	TagID       string             `json:"tagId"`
	TagName     string             `json:"tagName"`
	BoundingBox *model.BoundingBox `json:"boundingBox,omitempty"`
}

type predictionResponse struct {
	ID          string       `json:"id"`
	Project     string       `json:"project"`
	Iteration   string       `json:"iteration"`
	Predictions []prediction `json:"predictions"`
}

// CustomVision calls a published Custom Vision iteration. Both classification and
// object-detection projects answer with the same prediction list.
type CustomVision struct {
	url    string
	key    string
	client *resty.Client
}

func NewCustomVision(cfg config.VisionConfig) *CustomVision {
	return &CustomVision{
		url:    cfg.PredictionURL,
		key:    cfg.PredictionKey,
		client: resty.New().SetTimeout(config.Seconds(cfg.TimeoutSeconds)),
	}
}

// Classify returns the predictions in the order the service sent them.
func (c *CustomVision) Classify(ctx context.Context, image []byte) ([]model.Candidate, error) {
	if c.url == "" {
		return nil, fmt.Errorf("custom vision prediction url is not configured")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("Prediction-Key", c.key).
		SetBody(image).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("custom vision request: %w", err)
	}
	if resp.IsError() {
		return nil, statusError("custom vision", resp)
	}

	var out predictionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("custom vision response: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		candidates = append(candidates, model.Candidate{
			Label:       p.TagName,
			Probability: p.Probability,
			TagID:       p.TagID,
			BoundingBox: p.BoundingBox,
		})
	}
	return candidates, nil
}
