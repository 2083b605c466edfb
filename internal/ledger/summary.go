package ledger

import (
	"math"

	"example.com/freddy/backend/internal/models"
)

const closeToLimitPercent = 85

type BudgetUsage struct {
	BudgetID  string  `json:"budget_id"`
	Category  string  `json:"category"`
	Color     string  `json:"color"`
	Limit     float64 `json:"limit"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	Percent   float64 `json:"percent"`
	IsOver    bool    `json:"is_over"`
	IsClose   bool    `json:"is_close"`
}

type Summary struct {
	Currency     models.Currency `json:"currency"`
	Payday       int             `json:"payday"`
	TotalIncome  float64         `json:"total_income"`
	TotalLimit   float64         `json:"total_limit"`
	TotalSpent   float64         `json:"total_spent"`
	Surplus      float64         `json:"surplus"`
	Transactions int             `json:"transactions"`
	Budgets      []BudgetUsage   `json:"budgets"`
}

// TotalIncome суммирует все источники дохода.
func TotalIncome(incomes []models.IncomeStream) float64 {
	var total float64
	for _, income := range incomes {
		total += income.Amount
	}
	return total
}

// TotalLimit суммирует лимиты бюджетов.
func TotalLimit(budgets []models.Budget) float64 {
	var total float64
	for _, budget := range budgets {
		total += budget.Limit
	}
	return total
}

// Summarize считает агрегаты для дашборда.
func Summarize(s models.Snapshot) Summary {
	summary := Summary{
		Currency:     s.SelectedCurrency,
		Payday:       s.Payday,
		TotalIncome:  TotalIncome(s.Incomes),
		TotalLimit:   TotalLimit(s.Budgets),
		Transactions: len(s.Transactions),
		Budgets:      make([]BudgetUsage, 0, len(s.Budgets)),
	}

	for _, budget := range s.Budgets {
		summary.TotalSpent += budget.Spent
		summary.Budgets = append(summary.Budgets, usageOf(budget))
	}

	summary.Surplus = summary.TotalIncome - summary.TotalSpent
	return summary
}

func usageOf(budget models.Budget) BudgetUsage {
	percent := 0.0
	if budget.Limit > 0 {
		percent = math.Min(budget.Spent/budget.Limit*100, 100)
	}

	remaining := budget.Limit - budget.Spent
	isOver := remaining < 0

	return BudgetUsage{
		BudgetID:  budget.ID,
		Category:  budget.Category,
		Color:     budget.Color,
		Limit:     budget.Limit,
		Spent:     budget.Spent,
		Remaining: remaining,
		Percent:   percent,
		IsOver:    isOver,
		IsClose:   !isOver && percent > closeToLimitPercent,
	}
}
