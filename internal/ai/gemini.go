package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Gemini generateContent endpoint.
// Output is constrained to JSON matching the assistant reply schema.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	maxTokens  int
	schema     json.RawMessage
	httpClient *http.Client
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *geminiConfig   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiConfig struct {
	Temperature      float64         `json:"temperature,omitempty"`
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewGeminiClient создает клиент Gemini с заданными параметрами.
func NewGeminiClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *GeminiClient {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultGeminiBaseURL
	}

	return &GeminiClient{
		apiKey:     apiKey,
		endpoint:   fmt.Sprintf("%s/models/%s:generateContent", base, model),
		maxTokens:  resolveMaxTokens(maxTokens),
		schema:     replySchema,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Chat отправляет сообщения в Gemini и возвращает текст ответа и сырой ответ API.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", nil, errors.New("gemini api key is missing")
	}

	request, err := c.newRequest(messages)
	if err != nil {
		return "", nil, err
	}

	body, status, err := c.post(ctx, request)
	if err != nil {
		return "", body, err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if status >= http.StatusBadRequest {
			return "", body, fmt.Errorf("gemini api error: status %d", status)
		}
		return "", body, fmt.Errorf("decode gemini response: %w", err)
	}
	if parsed.Error != nil {
		return "", body, fmt.Errorf("gemini api error: %s", parsed.Error.Message)
	}
	if status >= http.StatusBadRequest {
		return "", body, fmt.Errorf("gemini api error: status %d", status)
	}

	text, err := parsed.text()
	return text, body, err
}

// newRequest раскладывает сообщения: системные идут в systemInstruction,
// остальные в contents с ролями user и model.
func (c *GeminiClient) newRequest(messages []Message) (geminiRequest, error) {
	var request geminiRequest
	var system []geminiPart

	for _, message := range normalizeMessages(messages) {
		part := geminiPart{Text: message.Content}
		switch message.Role {
		case roleSystem:
			system = append(system, part)
		case roleAssistant:
			request.Contents = append(request.Contents, geminiContent{Role: "model", Parts: []geminiPart{part}})
		default:
			request.Contents = append(request.Contents, geminiContent{Role: roleUser, Parts: []geminiPart{part}})
		}
	}

	if len(request.Contents) == 0 {
		return geminiRequest{}, errors.New("gemini request has no user content")
	}
	if len(system) > 0 {
		request.SystemInstruction = &geminiContent{Parts: system}
	}

	request.GenerationConfig = &geminiConfig{
		Temperature:      0.2,
		MaxOutputTokens:  c.maxTokens,
		ResponseMimeType: "application/json",
		ResponseSchema:   c.schema,
	}
	return request, nil
}

func (c *GeminiClient) post(ctx context.Context, request geminiRequest) ([]byte, int, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return body, resp.StatusCode, err
}

// text склеивает части первого кандидата. Заблокированный или обрезанный
// по лимиту токенов ответ считается ошибкой: JSON в нем неполный.
func (r geminiResponse) text() (string, error) {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", r.PromptFeedback.BlockReason)
	}
	if len(r.Candidates) == 0 {
		return "", errors.New("gemini response missing candidates")
	}

	candidate := r.Candidates[0]
	switch candidate.FinishReason {
	case "", "STOP":
	default:
		return "", fmt.Errorf("gemini finished with %s", candidate.FinishReason)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", errors.New("gemini response missing content")
	}
	return b.String(), nil
}
