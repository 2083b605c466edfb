package handlers

import (
	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/auth"
	"example.com/freddy/backend/internal/ledger"
)

type TransactionRequest struct {
	Amount      AmountInput `json:"amount"`
	Description string      `json:"description" validate:"max=200"`
}

// UpdateTransaction меняет сумму и описание транзакции.
func (h *LedgerHandler) UpdateTransaction(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	amount, ok := ledger.ParseAmount(string(req.Amount))
	if !ok {
		return rejected(c, h.Ledgers, ledgerID)
	}

	snapshot, err := h.Ledgers.EditTransaction(c.Request().Context(), ledgerID, c.Param("id"), amount, req.Description)
	return respondMutation(c, snapshot, err)
}

// DeleteTransaction удаляет транзакцию.
func (h *LedgerHandler) DeleteTransaction(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	snapshot, err := h.Ledgers.DeleteTransaction(c.Request().Context(), ledgerID, c.Param("id"))
	return respondMutation(c, snapshot, err)
}
