package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/auth"
)

type SessionHandler struct {
	Tokens *auth.TokenManager
}

// NewSessionHandler создает обработчик выдачи токенов леджера.
func NewSessionHandler(tokens *auth.TokenManager) *SessionHandler {
	return &SessionHandler{Tokens: tokens}
}

type SessionResponse struct {
	LedgerID    string    `json:"ledger_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Create заводит новый анонимный леджер и выдает токен доступа к нему.
func (h *SessionHandler) Create(c echo.Context) error {
	token, err := h.Tokens.NewLedger()
	if err != nil {
		slog.Error("failed to issue ledger token", "error", err)
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, SessionResponse{
		LedgerID:    token.LedgerID,
		AccessToken: token.Token,
		ExpiresAt:   token.ExpiresAt,
	})
}

// Refresh продлевает токен текущего леджера.
func (h *SessionHandler) Refresh(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	token, err := h.Tokens.Issue(ledgerID)
	if err != nil {
		slog.Error("failed to refresh ledger token", "ledger_id", ledgerID, "error", err)
		return serverError(c)
	}

	return c.JSON(http.StatusOK, SessionResponse{
		LedgerID:    token.LedgerID,
		AccessToken: token.Token,
		ExpiresAt:   token.ExpiresAt,
	})
}
