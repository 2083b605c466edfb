package ledger

import (
	"errors"
	"strings"

	"example.com/freddy/backend/internal/models"
)

// Outcome описывает результат применения одного действия ассистента.
type Outcome struct {
	Index   int               `json:"index"`
	Type    models.ActionType `json:"type"`
	Applied bool              `json:"applied"`
	Reason  string            `json:"reason,omitempty"`
	Advice  string            `json:"advice,omitempty"`
}

// ApplyActions последовательно применяет действия из одного ответа ассистента.
// Применение не атомарно: отклоненное действие не откатывает предыдущие.
func (e *Engine) ApplyActions(s models.Snapshot, actions []models.Action) (models.Snapshot, []Outcome) {
	outcomes := make([]Outcome, 0, len(actions))

	for i, action := range actions {
		outcome := Outcome{Index: i, Type: action.Type}
		data := models.ActionData{}
		if action.Data != nil {
			data = *action.Data
		}

		var (
			next models.Snapshot
			err  error
		)

		switch action.Type {
		case models.ActionLogExpense:
			if data.Amount == nil || strings.TrimSpace(data.Category) == "" {
				outcome.Reason = "amount and category are required"
				break
			}
			next, err = e.ResolveExpenseAction(s, data.Category, *data.Amount, data.Item)
			s, outcome = settle(s, next, err, outcome)
		case models.ActionCreateBudget:
			if data.Limit == nil || strings.TrimSpace(data.Category) == "" {
				outcome.Reason = "category and limit are required"
				break
			}
			initial := 0.0
			if data.Amount != nil {
				initial = *data.Amount
			}
			next, err = e.ResolveCreateBudgetAction(s, data.Category, *data.Limit, initial, data.Item)
			s, outcome = settle(s, next, err, outcome)
		case models.ActionTransferBudget:
			if data.Amount == nil || strings.TrimSpace(data.FromCategory) == "" || strings.TrimSpace(data.ToCategory) == "" {
				outcome.Reason = "amount, fromCategory and toCategory are required"
				break
			}
			next, err = e.TransferBudget(s, data.FromCategory, data.ToCategory, *data.Amount)
			s, outcome = settle(s, next, err, outcome)
		case models.ActionGiveAdvice:
			outcome.Advice = strings.TrimSpace(data.Advice)
			outcome.Applied = outcome.Advice != ""
			if !outcome.Applied {
				outcome.Reason = "advice is empty"
			}
		case models.ActionRequestBudgetCreation:
			outcome.Reason = "awaiting confirmation"
		case models.ActionNone:
		default:
			outcome.Reason = "unknown action type"
		}

		outcomes = append(outcomes, outcome)
	}

	return s, outcomes
}

// TransferBudget переносит часть лимита между двумя существующими бюджетами.
func (e *Engine) TransferBudget(s models.Snapshot, fromCategory, toCategory string, amount float64) (models.Snapshot, error) {
	if !validAmount(amount) {
		return s, ErrInvalidInput
	}

	from := categoryIndex(s.Budgets, fromCategory)
	to := categoryIndex(s.Budgets, toCategory)
	if from < 0 || to < 0 {
		return s, ErrNotFound
	}
	if from == to || s.Budgets[from].Limit-amount <= 0 {
		return s, ErrInvalidInput
	}

	next := clone(s)
	next.Budgets[from].Limit -= amount
	next.Budgets[to].Limit += amount
	return next, nil
}

func settle(current, next models.Snapshot, err error, outcome Outcome) (models.Snapshot, Outcome) {
	if err != nil {
		outcome.Reason = reasonFor(err)
		return current, outcome
	}

	outcome.Applied = true
	return next, outcome
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateCategory):
		return "budget already exists"
	case errors.Is(err, ErrNotFound):
		return "budget not found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid amount"
	default:
		return err.Error()
	}
}
