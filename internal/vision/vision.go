// Package vision wraps the hosted image services: Custom Vision prediction for
// classifying a pill and Image Analysis "read" for the text printed on it.
package vision

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/agenthands/pillguide/internal/core/model"
)

type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]model.Candidate, error)
}

type TextReader interface {
	ReadText(ctx context.Context, image []byte) (string, error)
}

func statusError(service string, resp *resty.Response) error {
	return fmt.Errorf("%s %d: %s", service, resp.StatusCode(), truncate(resp.String(), 512))
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if rs := []rune(s); len(rs) > n {
		return string(rs[:n]) + "..."
	}
	return s
}
