package ledger

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"example.com/freddy/backend/internal/models"
)

const welcomeMessage = "Account structure verified. Active."

// CycleMarker кодирует месяц даты как year*12 + month (месяцы с нуля).
func CycleMarker(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// ParsePayday разбирает день выплаты; допустимы значения от 1 до 31.
func ParsePayday(raw string) (int, bool) {
	day, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}

// CompleteOnboarding переносит результат онбординга в снимок и
// начинает историю чата приветственным сообщением.
// Доходы и бюджеты проверяются так же, как в мастере: при нарушении
// возвращается исходный снимок и ErrInvalidInput.
func (e *Engine) CompleteOnboarding(s models.Snapshot, incomes []models.IncomeStream, budgets []models.Budget, currency models.Currency, payday int) (models.Snapshot, error) {
	if err := CheckIncomes(incomes); err != nil {
		return s, err
	}
	if err := CheckBudgets(budgets); err != nil {
		return s, err
	}
	if TotalIncome(incomes) <= 0 || TotalLimit(budgets) > TotalIncome(incomes) {
		return s, ErrInvalidInput
	}

	next := clone(s)
	now := e.Now()

	next.Incomes = make([]models.IncomeStream, 0, len(incomes))
	for _, income := range incomes {
		income.ID = e.NewID()
		income.Source = strings.TrimSpace(income.Source)
		next.Incomes = append(next.Incomes, income)
	}

	next.Budgets = make([]models.Budget, 0, len(budgets))
	for i, budget := range budgets {
		budget.ID = e.NewID()
		budget.Category = strings.TrimSpace(budget.Category)
		budget.Spent = 0
		if budget.Color == "" {
			budget.Color = ColorFor(i)
		}
		next.Budgets = append(next.Budgets, budget)
	}

	if !currency.IsValid() {
		currency = models.CurrencyUSD
	}
	if payday < 1 || payday > 31 {
		payday = 1
	}

	next.Transactions = []models.Transaction{}
	next.Messages = []models.ChatMessage{{
		ID:        e.NewID(),
		Role:      models.RoleModel,
		Text:      welcomeMessage,
		Timestamp: now.UnixMilli(),
	}}
	next.SelectedCurrency = currency
	next.Payday = payday
	next.LastResetMonth = CycleMarker(now)
	next.IsOnboarded = true
	return next, nil
}

// AppendMessage добавляет сообщение в конец истории чата.
func (e *Engine) AppendMessage(s models.Snapshot, role models.Role, text string) (models.Snapshot, models.ChatMessage) {
	message := models.ChatMessage{
		ID:        e.NewID(),
		Role:      role,
		Text:      text,
		Timestamp: e.Now().UnixMilli(),
	}

	next := clone(s)
	next.Messages = append(next.Messages, message)
	return next, message
}

// AddIncome добавляет источник дохода.
func (e *Engine) AddIncome(s models.Snapshot, source string, amount float64) (models.Snapshot, models.IncomeStream, error) {
	if !validIncome(amount) {
		return s, models.IncomeStream{}, ErrInvalidInput
	}

	income := models.IncomeStream{ID: e.NewID(), Source: strings.TrimSpace(source), Amount: amount}
	next := clone(s)
	next.Incomes = append(next.Incomes, income)
	return next, income, nil
}

// UpdateIncome меняет название и сумму источника дохода.
func (e *Engine) UpdateIncome(s models.Snapshot, incomeID, source string, amount float64) (models.Snapshot, error) {
	if !validIncome(amount) {
		return s, ErrInvalidInput
	}

	idx := incomeIndex(s.Incomes, incomeID)
	if idx < 0 {
		return s, ErrNotFound
	}

	next := clone(s)
	next.Incomes[idx].Source = strings.TrimSpace(source)
	next.Incomes[idx].Amount = amount
	return next, nil
}

// DeleteIncome удаляет источник дохода.
func (e *Engine) DeleteIncome(s models.Snapshot, incomeID string) (models.Snapshot, error) {
	idx := incomeIndex(s.Incomes, incomeID)
	if idx < 0 {
		return s, ErrNotFound
	}

	next := clone(s)
	next.Incomes = slices.Delete(next.Incomes, idx, idx+1)
	return next, nil
}

// SetPayday меняет день начала цикла.
func (e *Engine) SetPayday(s models.Snapshot, raw string) (models.Snapshot, error) {
	day, ok := ParsePayday(raw)
	if !ok {
		return s, ErrInvalidInput
	}

	s.Payday = day
	return s, nil
}

// SetCurrency меняет валюту отображения. Пересчет сумм не выполняется.
func (e *Engine) SetCurrency(s models.Snapshot, currency models.Currency) (models.Snapshot, error) {
	if !currency.IsValid() {
		return s, ErrInvalidInput
	}

	s.SelectedCurrency = currency
	return s, nil
}

// CheckIncomes проверяет суммы доходов: ноль допустим, отрицательные нет.
func CheckIncomes(incomes []models.IncomeStream) error {
	for _, income := range incomes {
		if !validIncome(income.Amount) {
			return ErrInvalidInput
		}
	}
	return nil
}

// CheckBudgets проверяет, что у каждого бюджета есть название и положительный
// лимит, а категории не повторяются без учета регистра.
func CheckBudgets(budgets []models.Budget) error {
	seen := make(map[string]struct{}, len(budgets))
	for _, budget := range budgets {
		category := strings.ToLower(strings.TrimSpace(budget.Category))
		if category == "" || !validAmount(budget.Limit) {
			return ErrInvalidInput
		}
		if _, ok := seen[category]; ok {
			return ErrDuplicateCategory
		}
		seen[category] = struct{}{}
	}
	return nil
}

func validIncome(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount >= 0
}

func incomeIndex(incomes []models.IncomeStream, id string) int {
	return slices.IndexFunc(incomes, func(i models.IncomeStream) bool { return i.ID == id })
}
