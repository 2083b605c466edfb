package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"example.com/freddy/backend/internal/models"
)

const FallbackMessage = "I couldn't process that. Please try again."

const defaultTimeout = 30 * time.Second

// Request содержит контекст леджера для одного сообщения пользователя.
type Request struct {
	Text         string
	History      []models.ChatMessage
	Budgets      []models.Budget
	Incomes      []models.IncomeStream
	Transactions []models.Transaction
	Currency     models.Currency
}

// Reply описывает структурированный ответ ассистента.
type Reply struct {
	Message string          `json:"message"`
	Actions []models.Action `json:"actions"`
}

// Exchange описывает обмен с моделью для журнала запросов.
type Exchange struct {
	Provider        string
	Model           string
	Prompt          string
	RequestPayload  []byte
	ResponsePayload []byte
	RawResponse     []byte
	Err             error
}

// Success сообщает, был ли ответ модели принят без отката.
func (e Exchange) Success() bool {
	return e.Err == nil
}

// FallbackReply возвращает ответ, который используется при любой ошибке модели.
func FallbackReply() Reply {
	return Reply{
		Message: FallbackMessage,
		Actions: []models.Action{{Type: models.ActionNone}},
	}
}

type AssistantOptions struct {
	Provider string
	Model    string
	Timeout  time.Duration
}

type Assistant struct {
	client   Client
	provider string
	model    string
	timeout  time.Duration
}

// NewAssistant создает мост к модели поверх клиента.
func NewAssistant(client Client, opts AssistantOptions) *Assistant {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Assistant{
		client:   client,
		provider: opts.Provider,
		model:    opts.Model,
		timeout:  timeout,
	}
}

// Reply отправляет сообщение модели. Ошибка модели не возвращается:
// вместо нее используется FallbackReply, а причина сохраняется в Exchange.
func (a *Assistant) Reply(ctx context.Context, req Request) (Reply, Exchange) {
	prompt := buildPrompt(req)
	exchange := Exchange{
		Provider: a.provider,
		Model:    a.model,
		Prompt:   prompt,
	}

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
	if payload, err := json.Marshal(messages); err == nil {
		exchange.RequestPayload = payload
	}

	if a.client == nil {
		exchange.Err = errors.New("ai client is not configured")
		return FallbackReply(), exchange
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	content, raw, err := a.client.Chat(callCtx, messages)
	exchange.RawResponse = raw
	if err != nil {
		exchange.Err = err
		return FallbackReply(), exchange
	}

	var decoded wireReply
	if err := parseJSON(content, &decoded); err != nil {
		exchange.Err = fmt.Errorf("parse reply: %w", err)
		return FallbackReply(), exchange
	}

	reply, err := decoded.validate()
	if err != nil {
		exchange.Err = err
		return FallbackReply(), exchange
	}

	if payload, err := json.Marshal(reply); err == nil {
		exchange.ResponsePayload = payload
	}

	return reply, exchange
}

func parseJSON(input string, target any) error {
	payload := extractJSON(input)
	if payload == "" {
		return errors.New("ai response does not contain json")
	}

	return json.Unmarshal([]byte(payload), target)
}

func extractJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return trimmed[start : end+1]
}

// wireReply повторяет схему ответа: оба поля обязательны.
type wireReply struct {
	Message *string          `json:"message"`
	Actions *[]models.Action `json:"actions"`
}

func (w wireReply) validate() (Reply, error) {
	if w.Message == nil || strings.TrimSpace(*w.Message) == "" {
		return Reply{}, errors.New("reply message is required")
	}
	if w.Actions == nil {
		return Reply{}, errors.New("reply actions are required")
	}

	for i, action := range *w.Actions {
		if !action.Type.IsKnown() {
			return Reply{}, fmt.Errorf("action %d: invalid type %q", i, action.Type)
		}
	}

	return Reply{Message: strings.TrimSpace(*w.Message), Actions: *w.Actions}, nil
}
