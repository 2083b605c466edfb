package handlers

import (
	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/auth"
)

type IncomeRequest struct {
	Source string      `json:"source" validate:"max=100"`
	Amount AmountInput `json:"amount"`
}

// CreateIncome добавляет источник дохода.
func (h *LedgerHandler) CreateIncome(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req IncomeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	amount, ok := req.Amount.Float()
	if !ok {
		return rejected(c, h.Ledgers, ledgerID)
	}

	snapshot, _, err := h.Ledgers.AddIncome(c.Request().Context(), ledgerID, req.Source, amount)
	return respondMutation(c, snapshot, err)
}

// UpdateIncome меняет источник дохода.
func (h *LedgerHandler) UpdateIncome(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req IncomeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	amount, ok := req.Amount.Float()
	if !ok {
		return rejected(c, h.Ledgers, ledgerID)
	}

	snapshot, err := h.Ledgers.UpdateIncome(c.Request().Context(), ledgerID, c.Param("id"), req.Source, amount)
	return respondMutation(c, snapshot, err)
}

// DeleteIncome удаляет источник дохода.
func (h *LedgerHandler) DeleteIncome(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	snapshot, err := h.Ledgers.DeleteIncome(c.Request().Context(), ledgerID, c.Param("id"))
	return respondMutation(c, snapshot, err)
}
