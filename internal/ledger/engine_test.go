package ledger

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"example.com/freddy/backend/internal/models"
)

func newTestEngine() *Engine {
	counter := 0
	return &Engine{
		Now: func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) },
		NewID: func() string {
			counter++
			return fmt.Sprintf("id-%d", counter)
		},
	}
}

func snapshotWithBudget(category string, limit float64) models.Snapshot {
	s := Fresh()
	s.IsOnboarded = true
	s.Budgets = []models.Budget{{ID: "b1", Category: category, Limit: limit, Color: "#007AFF"}}
	return s
}

// TestParseAmount проверяет разбор сумм из пользовательского ввода.
func TestParseAmount(t *testing.T) {
	valid := map[string]float64{"12": 12, " 4.5 ": 4.5, "1e3": 1000}
	for raw, want := range valid {
		got, ok := ParseAmount(raw)
		if !ok || got != want {
			t.Fatalf("ParseAmount(%q) = %v, %v; want %v", raw, got, ok, want)
		}
	}

	for _, raw := range []string{"", "abc", "0", "-5", "NaN", "Inf", "12abc"} {
		if _, ok := ParseAmount(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

// TestLogExpenseConservation проверяет, что spent равен сумме записанных расходов.
func TestLogExpenseConservation(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)

	var err error
	for _, amount := range []float64{10, 25.5, 4.5} {
		s, err = engine.LogExpense(s, "b1", amount)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if s.Budgets[0].Spent != 40 {
		t.Fatalf("expected spent 40, got %v", s.Budgets[0].Spent)
	}
	if len(s.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(s.Transactions))
	}

	newest := s.Transactions[0]
	if newest.Amount != 4.5 || newest.Description != "Manual Log" || newest.Category != "Food" {
		t.Fatalf("unexpected newest transaction: %+v", newest)
	}
	if newest.Date != "3/5/2024" || newest.BudgetID != "b1" || newest.Currency != "$" {
		t.Fatalf("unexpected transaction metadata: %+v", newest)
	}

	s, err = engine.DeleteTransaction(s, newest.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Budgets[0].Spent != 35.5 {
		t.Fatalf("expected spent 35.5 after delete, got %v", s.Budgets[0].Spent)
	}
}

// TestLogExpenseIgnoresInvalidInput проверяет, что неверный ввод не меняет состояние.
func TestLogExpenseIgnoresInvalidInput(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)

	for _, amount := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		next, err := engine.LogExpense(s, "b1", amount)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %v, got %v", amount, err)
		}
		if next.Budgets[0].Spent != 0 || len(next.Transactions) != 0 {
			t.Fatalf("expected unchanged snapshot for %v", amount)
		}
	}

	if _, err := engine.LogExpense(s, "missing", 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestEngineDoesNotMutateInput проверяет, что входной снимок остается прежним.
func TestEngineDoesNotMutateInput(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)

	if _, err := engine.LogExpense(s, "b1", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Budgets[0].Spent != 0 || len(s.Transactions) != 0 {
		t.Fatalf("input snapshot was mutated: %+v", s)
	}
}

// TestDeleteTransactionNeverNegative проверяет, что spent не уходит ниже нуля.
func TestDeleteTransactionNeverNegative(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)
	s.Budgets[0].Spent = 5
	s.Transactions = []models.Transaction{{ID: "t1", BudgetID: "b1", Amount: 20, Category: "Food"}}

	s, err := engine.DeleteTransaction(s, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Budgets[0].Spent != 0 {
		t.Fatalf("expected spent floored at 0, got %v", s.Budgets[0].Spent)
	}
	if len(s.Transactions) != 0 {
		t.Fatalf("expected transaction removed")
	}
}

// TestDeleteThenReaddRestoresSpent проверяет обратимость удаления транзакции.
func TestDeleteThenReaddRestoresSpent(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)

	s, _ = engine.LogExpense(s, "b1", 30)
	s, _ = engine.LogExpense(s, "b1", 12)
	before := s.Budgets[0].Spent

	removed := s.Transactions[0]
	s, _ = engine.DeleteTransaction(s, removed.ID)
	s, _ = engine.LogExpense(s, "b1", removed.Amount)

	if s.Budgets[0].Spent != before {
		t.Fatalf("expected spent %v, got %v", before, s.Budgets[0].Spent)
	}
}

// TestEditTransactionAppliesDiff проверяет, что разница считается от текущей суммы.
func TestEditTransactionAppliesDiff(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)
	s, _ = engine.LogExpense(s, "b1", 100)
	txID := s.Transactions[0].ID

	s, err := engine.EditTransaction(s, txID, 150, "Dinner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Budgets[0].Spent != 150 {
		t.Fatalf("expected spent 150, got %v", s.Budgets[0].Spent)
	}

	s, _ = engine.EditTransaction(s, txID, 150, "Dinner")
	if s.Budgets[0].Spent != 150 {
		t.Fatalf("expected repeated edit to be a zero diff, got %v", s.Budgets[0].Spent)
	}

	s, _ = engine.EditTransaction(s, txID, 40, "Lunch")
	if s.Budgets[0].Spent != 40 {
		t.Fatalf("expected spent 40, got %v", s.Budgets[0].Spent)
	}
	if s.Transactions[0].Description != "Lunch" || s.Transactions[0].Amount != 40 {
		t.Fatalf("unexpected transaction: %+v", s.Transactions[0])
	}

	if _, err := engine.EditTransaction(s, txID, 0, "Lunch"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := engine.EditTransaction(s, txID, 10, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty description, got %v", err)
	}
}

// TestUpdateBudget проверяет изменение лимита и категории.
func TestUpdateBudget(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)
	s.Budgets = append(s.Budgets, models.Budget{ID: "b2", Category: "Transport", Limit: 200})
	s.Budgets[0].Spent = 50

	s, err := engine.UpdateBudget(s, "b1", 800, " Groceries ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Budgets[0].Limit != 800 || s.Budgets[0].Category != "Groceries" || s.Budgets[0].Spent != 50 {
		t.Fatalf("unexpected budget: %+v", s.Budgets[0])
	}

	if _, err := engine.UpdateBudget(s, "b1", 800, "transport"); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
	if _, err := engine.UpdateBudget(s, "b1", -1, "Food"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := engine.UpdateBudget(s, "b1", 10, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty category, got %v", err)
	}
}

// TestDeleteBudgetCascades проверяет каскадное удаление транзакций бюджета.
func TestDeleteBudgetCascades(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)
	s.Budgets = append(s.Budgets, models.Budget{ID: "b2", Category: "Transport", Limit: 200})
	s, _ = engine.LogExpense(s, "b1", 10)
	s, _ = engine.LogExpense(s, "b2", 20)
	s, _ = engine.LogExpense(s, "b1", 30)

	s, err := engine.DeleteBudget(s, "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.Budgets) != 1 || s.Budgets[0].ID != "b2" {
		t.Fatalf("unexpected budgets: %+v", s.Budgets)
	}
	if len(s.Transactions) != 1 || s.Transactions[0].Category != "Transport" {
		t.Fatalf("unexpected transactions: %+v", s.Transactions)
	}
}

// TestDeleteBudgetAfterRename проверяет, что переименование не отрывает историю.
func TestDeleteBudgetAfterRename(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)
	s, _ = engine.LogExpense(s, "b1", 10)
	s, _ = engine.UpdateBudget(s, "b1", 500, "Groceries")

	if s.Transactions[0].Category != "Food" {
		t.Fatalf("expected historical category to be kept, got %q", s.Transactions[0].Category)
	}

	s, _ = engine.DeleteBudget(s, "b1")
	if len(s.Transactions) != 0 {
		t.Fatalf("expected renamed budget transactions to be removed, got %+v", s.Transactions)
	}
}

// TestLegacyTransactionsMatchByCategory проверяет транзакции без budgetId.
func TestLegacyTransactionsMatchByCategory(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)
	s.Budgets[0].Spent = 30
	s.Transactions = []models.Transaction{
		{ID: "t1", Amount: 10, Category: "Food"},
		{ID: "t2", Amount: 20, Category: "Food"},
		{ID: "t3", Amount: 5, Category: "Other"},
	}

	s, _ = engine.DeleteTransaction(s, "t1")
	if s.Budgets[0].Spent != 20 {
		t.Fatalf("expected spent 20, got %v", s.Budgets[0].Spent)
	}

	s, _ = engine.UpdateBudget(s, "b1", 500, "Groceries")
	s, _ = engine.DeleteBudget(s, "b1")
	if len(s.Transactions) != 2 {
		t.Fatalf("expected legacy transactions to survive a rename, got %+v", s.Transactions)
	}
}

// TestResolveExpenseActionCreatesBudget проверяет автосоздание бюджета.
func TestResolveExpenseActionCreatesBudget(t *testing.T) {
	engine := newTestEngine()
	s := Fresh()

	s, err := engine.ResolveExpenseAction(s, "Food", 4500, "tangerine")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.Budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(s.Budgets))
	}
	budget := s.Budgets[0]
	if budget.Category != "Food" || budget.Limit != 1000 || budget.Spent != 4500 || budget.Color != "#007AFF" {
		t.Fatalf("unexpected budget: %+v", budget)
	}

	if len(s.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(s.Transactions))
	}
	tx := s.Transactions[0]
	if tx.Amount != 4500 || tx.Category != "Food" || tx.Description != "tangerine" || tx.BudgetID != budget.ID {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

// TestResolveExpenseActionCaseInsensitive проверяет сопоставление без учета регистра.
func TestResolveExpenseActionCaseInsensitive(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)

	s, err := engine.ResolveExpenseAction(s, "food", 100, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.Budgets) != 1 || s.Budgets[0].Spent != 100 {
		t.Fatalf("expected existing budget to be incremented, got %+v", s.Budgets)
	}
	if s.Transactions[0].Description != "Expense" || s.Transactions[0].Category != "Food" {
		t.Fatalf("unexpected transaction: %+v", s.Transactions[0])
	}
}

// TestResolveExpenseActionCyclesColors проверяет циклическую палитру.
func TestResolveExpenseActionCyclesColors(t *testing.T) {
	engine := newTestEngine()
	s := Fresh()

	for i := 0; i < 7; i++ {
		s, _ = engine.ResolveExpenseAction(s, fmt.Sprintf("Category %d", i), 1, "")
	}

	if s.Budgets[6].Color != s.Budgets[0].Color {
		t.Fatalf("expected colour to wrap around, got %s and %s", s.Budgets[0].Color, s.Budgets[6].Color)
	}
	if s.Budgets[1].Color != "#FF2D55" {
		t.Fatalf("unexpected second colour %s", s.Budgets[1].Color)
	}
}

// TestResolveCreateBudgetAction проверяет создание бюджета по действию ассистента.
func TestResolveCreateBudgetAction(t *testing.T) {
	engine := newTestEngine()
	s := snapshotWithBudget("Food", 500)

	next, err := engine.ResolveCreateBudgetAction(s, "FOOD", 900, 50, "x")
	if !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
	if len(next.Budgets) != 1 || len(next.Transactions) != 0 {
		t.Fatalf("expected no-op for existing category")
	}

	next, err = engine.ResolveCreateBudgetAction(s, "Personal", 5000, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next.Budgets) != 2 || next.Budgets[1].Spent != 0 || len(next.Transactions) != 0 {
		t.Fatalf("unexpected state: %+v", next)
	}

	next, err = engine.ResolveCreateBudgetAction(s, "Personal", 5000, 5000, "my sister")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Budgets[1].Spent != 5000 || len(next.Transactions) != 1 || next.Transactions[0].Description != "my sister" {
		t.Fatalf("unexpected state: %+v", next)
	}
}
