package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/agenthands/pillguide/internal/config"
)

const analyzePath = "/computervision/imageanalysis:analyze"

type readResponse struct {
	ModelVersion string `json:"modelVersion"`
	ReadResult   *struct {
		Blocks []struct {
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"blocks"`
	} `json:"readResult"`
}

// ImageAnalysis reads printed text with the Image Analysis 4.0 "read" feature.
type ImageAnalysis struct {
	endpoint   string
	key        string
	apiVersion string
	features   string
	language   string
	maxChars   int
	client     *resty.Client
}

func NewImageAnalysis(cfg config.OCRConfig) *ImageAnalysis {
	return &ImageAnalysis{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		key:        cfg.Key,
		apiVersion: cfg.APIVersion,
		features:   cfg.Features,
		language:   cfg.Language,
		maxChars:   cfg.MaxChars,
		client:     resty.New().SetTimeout(config.Seconds(cfg.TimeoutSeconds)),
	}
}

// ReadText returns every recognized line joined by single spaces, cut to the configured
// number of characters.
func (a *ImageAnalysis) ReadText(ctx context.Context, image []byte) (string, error) {
	req := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("Ocp-Apim-Subscription-Key", a.key).
		SetQueryParam("api-version", a.apiVersion).
		SetQueryParam("features", a.features).
		SetBody(image)
	if a.language != "" {
		req.SetQueryParam("language", a.language)
	}

	resp, err := req.Post(a.endpoint + analyzePath)
	if err != nil {
		return "", fmt.Errorf("image analysis request: %w", err)
	}
	if resp.IsError() {
		return "", statusError("image analysis", resp)
	}

	var out readResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("image analysis response: %w", err)
	}
	return flatten(out, a.maxChars), nil
}

func flatten(r readResponse, maxChars int) string {
	if r.ReadResult == nil {
		return ""
	}
	var lines []string
	for _, b := range r.ReadResult.Blocks {
		for _, l := range b.Lines {
			if s := strings.TrimSpace(l.Text); s != "" {
				lines = append(lines, s)
			}
		}
	}
	text := strings.Join(lines, " ")
	if maxChars > 0 {
		if rs := []rune(text); len(rs) > maxChars {
			text = string(rs[:maxChars])
		}
	}
	return text
}
