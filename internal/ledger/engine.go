package ledger

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/freddy/backend/internal/models"
)

const (
	// DefaultBudgetLimit задает лимит бюджета, созданного автоматически по расходу.
	DefaultBudgetLimit = 1000

	manualLogDescription = "Manual Log"
	expenseDescription   = "Expense"
	dateLayout           = "1/2/2006"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateCategory = fmt.Errorf("%w: category already exists", ErrInvalidInput)
)

// Engine применяет изменения к снимку состояния и возвращает новый снимок.
// Входной снимок никогда не модифицируется.
type Engine struct {
	Now   func() time.Time
	NewID func() string
}

// NewEngine создает движок с системными часами и UUID-идентификаторами.
func NewEngine() *Engine {
	return &Engine{Now: time.Now, NewID: uuid.NewString}
}

// ParseAmount разбирает сумму из пользовательского ввода.
// Возвращает false для нечисловых, бесконечных и неположительных значений.
func ParseAmount(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return value, validAmount(value)
}

func validAmount(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value > 0
}

// LogExpense добавляет ручной расход к бюджету.
func (e *Engine) LogExpense(s models.Snapshot, budgetID string, amount float64) (models.Snapshot, error) {
	if !validAmount(amount) {
		return s, ErrInvalidInput
	}

	idx := budgetIndex(s.Budgets, budgetID)
	if idx < 0 {
		return s, ErrNotFound
	}

	next := clone(s)
	next.Budgets[idx].Spent += amount
	next.Transactions = e.prependTransaction(next, next.Budgets[idx], amount, manualLogDescription)
	return next, nil
}

// UpdateBudget меняет лимит и название категории бюджета.
// Категория уже записанных транзакций не переименовывается.
func (e *Engine) UpdateBudget(s models.Snapshot, budgetID string, limit float64, category string) (models.Snapshot, error) {
	category = strings.TrimSpace(category)
	if !validAmount(limit) || category == "" {
		return s, ErrInvalidInput
	}

	idx := budgetIndex(s.Budgets, budgetID)
	if idx < 0 {
		return s, ErrNotFound
	}

	if other := categoryIndex(s.Budgets, category); other >= 0 && other != idx {
		return s, ErrDuplicateCategory
	}

	next := clone(s)
	next.Budgets[idx].Limit = limit
	next.Budgets[idx].Category = category
	return next, nil
}

// DeleteBudget удаляет бюджет вместе со всеми его транзакциями.
func (e *Engine) DeleteBudget(s models.Snapshot, budgetID string) (models.Snapshot, error) {
	idx := budgetIndex(s.Budgets, budgetID)
	if idx < 0 {
		return s, ErrNotFound
	}

	budget := s.Budgets[idx]
	next := clone(s)
	next.Budgets = slices.Delete(next.Budgets, idx, idx+1)
	next.Transactions = slices.DeleteFunc(next.Transactions, func(tx models.Transaction) bool {
		return owns(budget, tx)
	})
	return next, nil
}

// DeleteTransaction удаляет транзакцию и возвращает ее сумму в бюджет.
func (e *Engine) DeleteTransaction(s models.Snapshot, txID string) (models.Snapshot, error) {
	idx := transactionIndex(s.Transactions, txID)
	if idx < 0 {
		return s, ErrNotFound
	}

	tx := s.Transactions[idx]
	next := clone(s)
	next.Transactions = slices.Delete(next.Transactions, idx, idx+1)
	adjustOwners(next.Budgets, tx, -tx.Amount)
	return next, nil
}

// EditTransaction меняет сумму и описание транзакции, применяя разницу к бюджету.
func (e *Engine) EditTransaction(s models.Snapshot, txID string, amount float64, description string) (models.Snapshot, error) {
	description = strings.TrimSpace(description)
	if !validAmount(amount) || description == "" {
		return s, ErrInvalidInput
	}

	idx := transactionIndex(s.Transactions, txID)
	if idx < 0 {
		return s, ErrNotFound
	}

	next := clone(s)
	tx := next.Transactions[idx]
	diff := amount - tx.Amount
	next.Transactions[idx].Amount = amount
	next.Transactions[idx].Description = description
	adjustOwners(next.Budgets, tx, diff)
	return next, nil
}

// ResolveExpenseAction записывает расход в бюджет с совпадающей категорией,
// создавая бюджет с лимитом по умолчанию, если такого нет.
func (e *Engine) ResolveExpenseAction(s models.Snapshot, category string, amount float64, item string) (models.Snapshot, error) {
	category = strings.TrimSpace(category)
	if !validAmount(amount) || category == "" {
		return s, ErrInvalidInput
	}

	next := clone(s)
	idx := categoryIndex(next.Budgets, category)
	if idx >= 0 {
		next.Budgets[idx].Spent += amount
	} else {
		next.Budgets = append(next.Budgets, e.newBudget(next.Budgets, category, DefaultBudgetLimit, amount))
		idx = len(next.Budgets) - 1
	}

	next.Transactions = e.prependTransaction(next, next.Budgets[idx], amount, describe(item))
	return next, nil
}

// ResolveCreateBudgetAction создает бюджет, если категории еще нет.
// Начальная сумма, если она больше нуля, записывается транзакцией.
func (e *Engine) ResolveCreateBudgetAction(s models.Snapshot, category string, limit, initialAmount float64, item string) (models.Snapshot, error) {
	category = strings.TrimSpace(category)
	if !validAmount(limit) || category == "" {
		return s, ErrInvalidInput
	}
	if math.IsNaN(initialAmount) || math.IsInf(initialAmount, 0) || initialAmount < 0 {
		return s, ErrInvalidInput
	}

	if categoryIndex(s.Budgets, category) >= 0 {
		return s, ErrDuplicateCategory
	}

	next := clone(s)
	budget := e.newBudget(next.Budgets, category, limit, initialAmount)
	next.Budgets = append(next.Budgets, budget)
	if initialAmount > 0 {
		next.Transactions = e.prependTransaction(next, budget, initialAmount, describe(item))
	}
	return next, nil
}

func (e *Engine) newBudget(existing []models.Budget, category string, limit, spent float64) models.Budget {
	return models.Budget{
		ID:       e.NewID(),
		Category: category,
		Limit:    limit,
		Spent:    spent,
		Color:    ColorFor(len(existing)),
	}
}

func (e *Engine) prependTransaction(s models.Snapshot, budget models.Budget, amount float64, description string) []models.Transaction {
	tx := models.Transaction{
		ID:          e.NewID(),
		BudgetID:    budget.ID,
		Amount:      amount,
		Category:    budget.Category,
		Description: description,
		Date:        e.Now().Format(dateLayout),
		Currency:    string(s.SelectedCurrency),
	}
	return append([]models.Transaction{tx}, s.Transactions...)
}

// ColorFor возвращает цвет палитры для бюджета с указанным порядковым номером.
func ColorFor(position int) string {
	return models.BudgetColors[position%len(models.BudgetColors)]
}

func describe(item string) string {
	if trimmed := strings.TrimSpace(item); trimmed != "" {
		return trimmed
	}
	return expenseDescription
}

// owns сообщает, принадлежит ли транзакция бюджету. Транзакции без budgetId
// (записанные до появления этого поля) сопоставляются по названию категории.
func owns(budget models.Budget, tx models.Transaction) bool {
	if tx.BudgetID != "" {
		return tx.BudgetID == budget.ID
	}
	return tx.Category == budget.Category
}

func adjustOwners(budgets []models.Budget, tx models.Transaction, delta float64) {
	for i := range budgets {
		if !owns(budgets[i], tx) {
			continue
		}
		budgets[i].Spent = math.Max(0, budgets[i].Spent+delta)
	}
}

func budgetIndex(budgets []models.Budget, id string) int {
	return slices.IndexFunc(budgets, func(b models.Budget) bool { return b.ID == id })
}

func categoryIndex(budgets []models.Budget, category string) int {
	category = strings.TrimSpace(category)
	return slices.IndexFunc(budgets, func(b models.Budget) bool {
		return strings.EqualFold(strings.TrimSpace(b.Category), category)
	})
}

func transactionIndex(transactions []models.Transaction, id string) int {
	return slices.IndexFunc(transactions, func(tx models.Transaction) bool { return tx.ID == id })
}

func clone(s models.Snapshot) models.Snapshot {
	s.Budgets = slices.Clone(s.Budgets)
	s.Incomes = slices.Clone(s.Incomes)
	s.Messages = slices.Clone(s.Messages)
	s.Transactions = slices.Clone(s.Transactions)
	return s
}
