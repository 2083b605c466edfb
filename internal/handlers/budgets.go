package handlers

import (
	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/auth"
	"example.com/freddy/backend/internal/ledger"
)

type ExpenseRequest struct {
	Amount AmountInput `json:"amount"`
}

type BudgetRequest struct {
	Limit    AmountInput `json:"limit"`
	Category string      `json:"category" validate:"max=100"`
}

// LogExpense записывает ручной расход в бюджет.
func (h *LedgerHandler) LogExpense(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	amount, ok := ledger.ParseAmount(string(req.Amount))
	if !ok {
		return rejected(c, h.Ledgers, ledgerID)
	}

	snapshot, err := h.Ledgers.LogExpense(c.Request().Context(), ledgerID, c.Param("id"), amount)
	return respondMutation(c, snapshot, err)
}

// UpdateBudget меняет лимит и категорию бюджета.
func (h *LedgerHandler) UpdateBudget(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	limit, ok := ledger.ParseAmount(string(req.Limit))
	if !ok {
		return rejected(c, h.Ledgers, ledgerID)
	}

	snapshot, err := h.Ledgers.UpdateBudget(c.Request().Context(), ledgerID, c.Param("id"), limit, req.Category)
	return respondMutation(c, snapshot, err)
}

// DeleteBudget удаляет бюджет и его транзакции.
func (h *LedgerHandler) DeleteBudget(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	snapshot, err := h.Ledgers.DeleteBudget(c.Request().Context(), ledgerID, c.Param("id"))
	return respondMutation(c, snapshot, err)
}
