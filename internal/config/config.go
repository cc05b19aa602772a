package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port           string `toml:"port"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// VisionConfig points at a Custom Vision prediction endpoint. PredictionURL is the full
// ".../classify/iterations/<name>/image" (or detect) URL.
type VisionConfig struct {
	PredictionURL  string `toml:"prediction_url"`
	PredictionKey  string `toml:"prediction_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type OCRConfig struct {
	Endpoint       string `toml:"endpoint"`
	Key            string `toml:"key"`
	APIVersion     string `toml:"api_version"`
	Features       string `toml:"features"`
	Language       string `toml:"language"`
	MaxChars       int    `toml:"max_chars"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Enabled reports whether both the endpoint and the key are set.
func (c OCRConfig) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Key) != ""
}

type LLMConfig struct {
	Provider       string  `toml:"provider"`
	Model          string  `toml:"model"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	APIVersion     string  `toml:"api_version"`
	Temperature    float32 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

type ReconcileConfig struct {
	Strategy  string  `toml:"strategy"`
	Threshold float64 `toml:"threshold"`
}

type ImageConfig struct {
	MaxDim  int `toml:"max_dim"`
	Quality int `toml:"quality"`
}

type ExplainPrompts struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

type PickPrompts struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

type Prompts struct {
	Explain ExplainPrompts `toml:"explain"`
	Pick    PickPrompts    `toml:"pick"`
}

// Messages are the display strings used in place of errors.
type Messages struct {
	NoImage              string `toml:"no_image"`
	BadImage             string `toml:"bad_image"`
	RecognitionFailed    string `toml:"recognition_failed"`
	ClassificationFailed string `toml:"classification_failed"`
	ConnectionFailed     string `toml:"connection_failed"`
	Retake               string `toml:"retake"`
	Header               string `toml:"header"`
	HeaderWithText       string `toml:"header_with_text"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Vision    VisionConfig    `toml:"vision"`
	OCR       OCRConfig       `toml:"ocr"`
	LLM       LLMConfig       `toml:"llm"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Image     ImageConfig     `toml:"image"`
	Prompts   Prompts         `toml:"prompts"`
	Messages  Messages        `toml:"messages"`
}

const (
	StrategySimilarity = "similarity"
	StrategyLLM        = "llm"
)

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			MaxUploadBytes: 10 << 20,
		},
		Vision: VisionConfig{
			TimeoutSeconds: 30,
		},
		OCR: OCRConfig{
			APIVersion:     "2023-10-01",
			Features:       "read",
			MaxChars:       120,
			TimeoutSeconds: 15,
		},
		LLM: LLMConfig{
			Provider:       "azure",
			Model:          "gpt-4o-mini",
			APIVersion:     "2024-02-15-preview",
			Temperature:    0.4,
			MaxTokens:      800,
			TimeoutSeconds: 60,
		},
		Reconcile: ReconcileConfig{
			Strategy:  StrategySimilarity,
			Threshold: 0.25,
		},
		Image: ImageConfig{
			MaxDim:  1024,
			Quality: 90,
		},
		Prompts: Prompts{
			Explain: ExplainPrompts{
				System: "You are a friendly pharmacist who helps people understand their medication. " +
					"Using the pill name predicted by the model and the letters/numbers read from the pill surface, " +
					"explain the medicine in English as bullet points: 1) what the medicine is, 2) its common effects, " +
					"3) basic dosage, 4) typical precautions and side effects. " +
					"This is a demonstration service, so product names or ingredients may not be 100% accurate. " +
					"Always end with the sentence 'Please consult a pharmacist or doctor for accurate guidance.'",
				User: "Pill name predicted by the model: %s\n" +
					"Model confidence: %.1f%%\n" +
					"Text read from the pill surface: '%s'\n\n" +
					"Explain the most likely medicine based on this information. " +
					"If the name is ambiguous or several candidates are possible, " +
					"say in the first bullet that the package or leaflet must be checked.",
			},
			Pick: PickPrompts{
				System: "You match medicine labels. Given the text read from a pill by OCR and the candidate " +
					"medicine names predicted by an image classifier, choose the single most likely name. " +
					"Answer only with JSON of the form {\"label\": \"<name>\"} using a name exactly as it appears in the candidate list.",
				User: "OCR text: %s\n\nCandidates:\n%s\nReturn the most likely medicine name.",
			},
		},
		Messages: Messages{
			NoImage:              "No image was uploaded.",
			BadImage:             "The image could not be read.",
			RecognitionFailed:    "recognition failed",
			ClassificationFailed: "classification failed",
			ConnectionFailed:     "connection failed: the explanation service could not be reached. Please try again.",
			Retake:               "The pill could not be recognized, so no medication information can be generated. Please take the photo again.",
			Header:               "Predicted pill: %s (confidence: %.1f%%)",
			HeaderWithText:       "Predicted pill: %s (confidence: %.1f%%) | Surface text: %s",
		},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overrides file settings with the process environment.
func (c *Config) ApplyEnv() {
	setString(&c.Server.Port, "PORT")

	setString(&c.Vision.PredictionURL, "PREDICTION_URL")
	setString(&c.Vision.PredictionKey, "PREDICTION_KEY")

	setString(&c.OCR.Endpoint, "AZURE_VISION_ENDPOINT")
	setString(&c.OCR.Key, "AZURE_VISION_KEY")
	setInt(&c.OCR.MaxChars, "OCR_MAX_CHARS")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	if strings.EqualFold(c.LLM.Provider, "azure") {
		setString(&c.LLM.BaseURL, "AZURE_OPENAI_ENDPOINT")
		setString(&c.LLM.APIKey, "AZURE_OPENAI_KEY")
		setString(&c.LLM.APIVersion, "AZURE_OPENAI_API_VERSION")
		setString(&c.LLM.Model, "DEPLOYMENT_NAME")
	}

	setString(&c.Reconcile.Strategy, "RECONCILE_STRATEGY")
	if v := os.Getenv("SIM_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Reconcile.Threshold = f
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Vision.PredictionURL == "" {
		errs = append(errs, errors.New("vision.prediction_url (PREDICTION_URL) is required"))
	}
	if c.Vision.PredictionKey == "" {
		errs = append(errs, errors.New("vision.prediction_key (PREDICTION_KEY) is required"))
	}
	if c.LLM.Provider == "" {
		errs = append(errs, errors.New("llm.provider (LLM_PROVIDER) is required"))
	}
	switch c.Reconcile.Strategy {
	case StrategySimilarity, StrategyLLM:
	default:
		errs = append(errs, fmt.Errorf("unknown reconcile.strategy %q", c.Reconcile.Strategy))
	}
	if c.Reconcile.Threshold < 0 || c.Reconcile.Threshold > 1 {
		errs = append(errs, fmt.Errorf("reconcile.threshold must be within [0,1], got %v", c.Reconcile.Threshold))
	}
	return errors.Join(errs...)
}

func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
