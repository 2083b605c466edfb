package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/auth"
	"example.com/freddy/backend/internal/models"
	"example.com/freddy/backend/internal/service"
)

type LedgerHandler struct {
	Ledgers *service.Ledgers
}

// NewLedgerHandler создает обработчик состояния леджера.
func NewLedgerHandler(ledgers *service.Ledgers) *LedgerHandler {
	return &LedgerHandler{Ledgers: ledgers}
}

type SettingsRequest struct {
	Currency *models.Currency `json:"currency"`
	Payday   *AmountInput     `json:"payday"`
}

// Get возвращает полный снимок леджера.
func (h *LedgerHandler) Get(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	snapshot, err := h.Ledgers.Snapshot(c.Request().Context(), ledgerID)
	if err != nil {
		slog.Error("failed to load ledger", "ledger_id", ledgerID, "error", err)
		return serverError(c)
	}

	return c.JSON(http.StatusOK, snapshot)
}

// Summary возвращает агрегаты для дашборда.
func (h *LedgerHandler) Summary(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	summary, err := h.Ledgers.Summary(c.Request().Context(), ledgerID)
	if err != nil {
		slog.Error("failed to summarize ledger", "ledger_id", ledgerID, "error", err)
		return serverError(c)
	}

	return c.JSON(http.StatusOK, summary)
}

// UpdateSettings меняет валюту и день выплаты.
func (h *LedgerHandler) UpdateSettings(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	var payday *string
	if req.Payday != nil {
		value := string(*req.Payday)
		payday = &value
	}

	snapshot, err := h.Ledgers.UpdateSettings(c.Request().Context(), ledgerID, req.Currency, payday)
	return respondMutation(c, snapshot, err)
}
