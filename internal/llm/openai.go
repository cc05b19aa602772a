package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey string, model string, baseURL string, timeout time.Duration) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: timeout}
	return newOpenAIClient(config, model)
}

// NewAzureOpenAIClient talks to an Azure OpenAI resource. model is the deployment name and
// is sent verbatim.
func NewAzureOpenAIClient(apiKey string, deployment string, endpoint string, apiVersion string, timeout time.Duration) *OpenAIClient {
	config := openai.DefaultAzureConfig(apiKey, strings.TrimRight(endpoint, "/"))
	if apiVersion != "" {
		config.APIVersion = apiVersion
	}
	config.AzureModelMapperFunc = func(model string) string { return model }
	config.HTTPClient = &http.Client{Timeout: timeout}
	return newOpenAIClient(config, deployment)
}

func newOpenAIClient(config openai.ClientConfig, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	// go-openai drops a zero temperature from the body, so send the smallest positive one
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) > 0 {
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("no response choices")
}
