package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/pillguide/internal/config"
)

const readBody = `{
	"modelVersion": "2023-10-01",
	"readResult": {
		"blocks": [
			{"lines": [{"text": " TYL "}, {"text": ""}, {"text": "5OO"}]},
			{"lines": [{"text": "mg"}]}
		]
	}
}`

func TestImageAnalysis_ReadText(t *testing.T) {
	var gotPath, gotKey, gotVersion, gotFeatures, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotVersion = r.URL.Query().Get("api-version")
		gotFeatures = r.URL.Query().Get("features")
		gotLang = r.URL.Query().Get("language")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(readBody))
	}))
	defer srv.Close()

	cfg := config.Default().OCR
	cfg.Endpoint = srv.URL + "/"
	cfg.Key = "vk"
	a := NewImageAnalysis(cfg)

	text, err := a.ReadText(context.Background(), []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, "TYL 5OO mg", text)
	assert.Equal(t, "/computervision/imageanalysis:analyze", gotPath)
	assert.Equal(t, "vk", gotKey)
	assert.Equal(t, "2023-10-01", gotVersion)
	assert.Equal(t, "read", gotFeatures)
	assert.Empty(t, gotLang)
}

func TestImageAnalysis_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := config.Default().OCR
	cfg.Endpoint = srv.URL
	cfg.Key = "vk"

	_, err := NewImageAnalysis(cfg).ReadText(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image analysis 429")
}

func TestFlatten(t *testing.T) {
	var empty readResponse
	assert.Equal(t, "", flatten(empty, 120))

	long := strings.Repeat("가", 130)
	var r readResponse
	require.NoError(t, json.Unmarshal([]byte(`{"readResult":{"blocks":[{"lines":[{"text":"`+long+`"}]}]}}`), &r))

	out := flatten(r, 120)
	assert.Equal(t, 120, len([]rune(out)))
	assert.Equal(t, long, flatten(r, 0))
}
