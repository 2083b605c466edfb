package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls an OpenAI-compatible chat completions API (OpenAI, Groq).
type OpenAIClient struct {
	provider  string
	apiKey    string
	model     string
	maxTokens int
	client    *openai.Client
}

// NewOpenAIClient создает клиент OpenAI-совместимого провайдера.
func NewOpenAIClient(provider, apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if trimmed := strings.TrimRight(baseURL, "/"); trimmed != "" {
		cfg.BaseURL = trimmed
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		provider:  strings.ToLower(provider),
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    openai.NewClientWithConfig(cfg),
	}
}

// Chat отправляет сообщения провайдеру и возвращает текст ответа и ответ API в JSON.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", nil, fmt.Errorf("%s api key is missing", c.provider)
	}

	request := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: 0.2,
		MaxTokens:   resolveMaxTokens(c.maxTokens),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	for _, message := range normalizeMessages(messages) {
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{Role: message.Role, Content: message.Content})
	}

	if len(request.Messages) == 0 {
		return "", nil, fmt.Errorf("%s request has no content", c.provider)
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", nil, fmt.Errorf("%s api error: %s", c.provider, apiErr.Message)
		}
		return "", nil, err
	}

	body, err := json.Marshal(response)
	if err != nil {
		return "", nil, err
	}

	if len(response.Choices) == 0 {
		return "", body, fmt.Errorf("%s response missing choices", c.provider)
	}

	return response.Choices[0].Message.Content, body, nil
}
