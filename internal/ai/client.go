package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultMaxTokens = 2048

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client interface {
	Chat(ctx context.Context, messages []Message) (string, []byte, error)
}

// ClientConfig описывает подключение к провайдеру модели.
type ClientConfig struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// NewClient выбирает реализацию клиента по имени провайдера.
func NewClient(cfg ClientConfig) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gemini":
		return NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxTokens), nil
	case "groq", "openai":
		return NewOpenAIClient(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}

const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
)

// normalizeMessages приводит роли к system/user/assistant и отбрасывает пустые сообщения.
func normalizeMessages(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, message := range messages {
		text := strings.TrimSpace(message.Content)
		if text == "" {
			continue
		}

		role := roleUser
		switch strings.ToLower(strings.TrimSpace(message.Role)) {
		case roleSystem:
			role = roleSystem
		case roleAssistant, "model":
			role = roleAssistant
		}
		out = append(out, Message{Role: role, Content: text})
	}
	return out
}
