package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/auth"
	"example.com/freddy/backend/internal/ledger"
	"example.com/freddy/backend/internal/models"
	"example.com/freddy/backend/internal/service"
)

type ChatHandler struct {
	Ledgers *service.Ledgers
}

// NewChatHandler создает обработчик чата с ассистентом.
func NewChatHandler(ledgers *service.Ledgers) *ChatHandler {
	return &ChatHandler{Ledgers: ledgers}
}

type ChatRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type ChatResponse struct {
	UserMessage  models.ChatMessage `json:"user_message"`
	ModelMessage models.ChatMessage `json:"model_message"`
	Outcomes     []ledger.Outcome   `json:"outcomes"`
	Fallback     bool               `json:"fallback"`
	Ledger       models.Snapshot    `json:"ledger"`
}

// Send отправляет сообщение ассистенту и применяет его действия к леджеру.
func (h *ChatHandler) Send(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	result, err := h.Ledgers.Chat(c.Request().Context(), ledgerID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			return badRequest(c, "message is empty")
		case errors.Is(err, service.ErrAssistantBusy):
			return conflict(c, "assistant is still answering")
		case errors.Is(err, service.ErrNotOnboarded):
			return conflict(c, "onboarding required")
		default:
			slog.Error("chat failed", "ledger_id", ledgerID, "error", err)
			return serverError(c)
		}
	}

	return c.JSON(http.StatusOK, ChatResponse{
		UserMessage:  result.UserMessage,
		ModelMessage: result.ModelMessage,
		Outcomes:     result.Outcomes,
		Fallback:     result.Fallback,
		Ledger:       result.Snapshot,
	})
}

// Messages возвращает историю чата.
func (h *ChatHandler) Messages(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	snapshot, err := h.Ledgers.Snapshot(c.Request().Context(), ledgerID)
	if err != nil {
		slog.Error("failed to load messages", "ledger_id", ledgerID, "error", err)
		return serverError(c)
	}

	return c.JSON(http.StatusOK, map[string][]models.ChatMessage{"messages": snapshot.Messages})
}
