package onboarding

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"example.com/freddy/backend/internal/ledger"
	"example.com/freddy/backend/internal/models"
)

type Step int

const (
	StepCurrencySelection Step = iota + 1
	StepCycleDay
	StepIncomeCollection
	StepBudgetAllocation
	StepComplete
)

const (
	MessageMissingCycleDay = "Please define a cycle datum."
	MessageZeroIncome      = "Inflows cannot be zero."
	MessageOverAllocated   = "Allocations exceed your projected capital."
	MessageNegativeIncome  = "Inflows cannot be negative."
	MessageInvalidBudget   = "Each allocation needs a name and a limit above zero."
	MessageDuplicateBudget = "Allocation names must be unique."
)

var stepNames = map[Step]string{
	StepCurrencySelection: "currency",
	StepCycleDay:          "cycle_day",
	StepIncomeCollection:  "income",
	StepBudgetAllocation:  "budgets",
	StepComplete:          "complete",
}

// String возвращает имя шага для API.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStep разбирает имя шага.
func ParseStep(name string) (Step, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for step, stepName := range stepNames {
		if stepName == name {
			return step, true
		}
	}
	return 0, false
}

// ValidationError содержит сообщение, которое показывается на шаге мастера.
type ValidationError struct {
	Step    Step
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Draft struct {
	Currency models.Currency       `json:"currency"`
	Payday   string                `json:"payday"`
	Incomes  []models.IncomeStream `json:"incomes"`
	Budgets  []models.Budget       `json:"budgets"`
}

// Result содержит итог онбординга, который передается в леджер.
type Result struct {
	Incomes  []models.IncomeStream
	Budgets  []models.Budget
	Currency models.Currency
	Payday   int
}

// DefaultDraft возвращает черновик с начальными значениями мастера.
func DefaultDraft() Draft {
	return Draft{
		Currency: models.CurrencyUSD,
		Payday:   "1",
		Incomes: []models.IncomeStream{
			{ID: "1", Source: "Primary Salary", Amount: 5000},
		},
		Budgets: []models.Budget{
			{ID: "1", Category: "Rent & Living", Limit: 2000, Color: ledger.ColorFor(0)},
			{ID: "2", Category: "Lifestyle", Limit: 800, Color: ledger.ColorFor(1)},
			{ID: "3", Category: "Savings", Limit: 500, Color: ledger.ColorFor(2)},
		},
	}
}

// Wizard реализует линейный мастер из четырех шагов.
type Wizard struct {
	step  Step
	draft Draft
}

// New создает мастер на первом шаге.
func New(draft Draft) *Wizard {
	return &Wizard{step: StepCurrencySelection, draft: draft}
}

// Step возвращает текущий шаг.
func (w *Wizard) Step() Step {
	return w.step
}

// Draft возвращает копию черновика.
func (w *Wizard) Draft() Draft {
	d := w.draft
	d.Incomes = slices.Clone(d.Incomes)
	d.Budgets = slices.Clone(d.Budgets)
	return d
}

// TotalIncome суммирует доходы черновика.
func (w *Wizard) TotalIncome() float64 {
	return ledger.TotalIncome(w.draft.Incomes)
}

// TotalBudget суммирует лимиты черновика.
func (w *Wizard) TotalBudget() float64 {
	return ledger.TotalLimit(w.draft.Budgets)
}

// Remaining возвращает нераспределенный остаток дохода.
func (w *Wizard) Remaining() float64 {
	return w.TotalIncome() - w.TotalBudget()
}

// Next проверяет условие перехода и переходит на следующий шаг.
func (w *Wizard) Next() error {
	switch w.step {
	case StepCurrencySelection:
		if !w.draft.Currency.IsValid() {
			w.draft.Currency = models.CurrencyUSD
		}
	case StepCycleDay:
		if w.draft.Payday == "" {
			return &ValidationError{Step: w.step, Message: MessageMissingCycleDay}
		}
	case StepIncomeCollection:
		if ledger.CheckIncomes(w.draft.Incomes) != nil {
			return &ValidationError{Step: w.step, Message: MessageNegativeIncome}
		}
		if w.TotalIncome() <= 0 {
			return &ValidationError{Step: w.step, Message: MessageZeroIncome}
		}
	case StepBudgetAllocation:
		if err := ledger.CheckBudgets(w.draft.Budgets); err != nil {
			message := MessageInvalidBudget
			if errors.Is(err, ledger.ErrDuplicateCategory) {
				message = MessageDuplicateBudget
			}
			return &ValidationError{Step: w.step, Message: message}
		}
		if w.TotalBudget() > w.TotalIncome() {
			return &ValidationError{Step: w.step, Message: MessageOverAllocated}
		}
	default:
		return nil
	}

	w.step++
	return nil
}

// Back возвращает мастер на один шаг назад.
func (w *Wizard) Back() {
	if w.step > StepCurrencySelection && w.step < StepComplete {
		w.step--
	}
}

// Result возвращает итог, если мастер завершен.
func (w *Wizard) Result() (Result, bool) {
	if w.step != StepComplete {
		return Result{}, false
	}

	payday, err := strconv.Atoi(strings.TrimSpace(w.draft.Payday))
	if err != nil || payday == 0 {
		payday = 1
	}

	d := w.Draft()
	return Result{
		Incomes:  d.Incomes,
		Budgets:  d.Budgets,
		Currency: d.Currency,
		Payday:   payday,
	}, true
}

// Run проводит черновик через все шаги до завершения.
func Run(draft Draft) (Result, error) {
	w := New(draft)
	for w.Step() != StepComplete {
		if err := w.Next(); err != nil {
			return Result{}, err
		}
	}

	result, _ := w.Result()
	return result, nil
}

// Advance проверяет шаг from для черновика и возвращает следующий шаг.
func Advance(draft Draft, from Step) (Step, error) {
	w := New(draft)
	w.step = from
	if err := w.Next(); err != nil {
		return from, err
	}
	return w.Step(), nil
}

// Retreat возвращает шаг, на который ведет кнопка "назад" с шага from.
func Retreat(draft Draft, from Step) Step {
	w := New(draft)
	w.step = from
	w.Back()
	return w.Step()
}

// EditOp задает правку черновика.
type EditOp string

const (
	EditSetCurrency  EditOp = "set_currency"
	EditSetPayday    EditOp = "set_payday"
	EditAddIncome    EditOp = "add_income"
	EditUpdateIncome EditOp = "update_income"
	EditRemoveIncome EditOp = "remove_income"
	EditAddBudget    EditOp = "add_budget"
	EditUpdateBudget EditOp = "update_budget"
	EditRemoveBudget EditOp = "remove_budget"
)

var (
	ErrUnknownEdit         = errors.New("unknown draft edit")
	ErrUnknownItem         = errors.New("draft item not found")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// Edit описывает одну правку черновика. Name означает источник дохода
// или категорию бюджета, Amount означает сумму дохода или лимит.
type Edit struct {
	Op       EditOp
	ID       string
	Name     string
	Amount   float64
	Currency models.Currency
	Payday   string
}

// Apply применяет правку к черновику. Шаг мастера не меняется.
func (w *Wizard) Apply(edit Edit) error {
	switch edit.Op {
	case EditSetCurrency:
		if !w.SetCurrency(edit.Currency) {
			return ErrUnsupportedCurrency
		}
	case EditSetPayday:
		w.SetPayday(edit.Payday)
	case EditAddIncome:
		w.AddIncome()
	case EditUpdateIncome:
		if !w.UpdateIncome(edit.ID, edit.Name, edit.Amount) {
			return ErrUnknownItem
		}
	case EditRemoveIncome:
		w.RemoveIncome(edit.ID)
	case EditAddBudget:
		w.AddBudget()
	case EditUpdateBudget:
		if !w.UpdateBudget(edit.ID, edit.Name, edit.Amount) {
			return ErrUnknownItem
		}
	case EditRemoveBudget:
		w.RemoveBudget(edit.ID)
	default:
		return ErrUnknownEdit
	}
	return nil
}

// SetCurrency выбирает валюту.
func (w *Wizard) SetCurrency(currency models.Currency) bool {
	if !currency.IsValid() {
		return false
	}
	w.draft.Currency = currency
	return true
}

// SetPayday сохраняет введенный день цикла без проверки.
func (w *Wizard) SetPayday(raw string) {
	w.draft.Payday = raw
}

// AddIncome добавляет пустой источник дохода.
func (w *Wizard) AddIncome() models.IncomeStream {
	income := models.IncomeStream{ID: w.nextID()}
	w.draft.Incomes = append(w.draft.Incomes, income)
	return income
}

// UpdateIncome меняет источник дохода черновика.
func (w *Wizard) UpdateIncome(id, source string, amount float64) bool {
	idx := slices.IndexFunc(w.draft.Incomes, func(i models.IncomeStream) bool { return i.ID == id })
	if idx < 0 {
		return false
	}
	if amount < 0 {
		amount = 0
	}
	w.draft.Incomes[idx].Source = source
	w.draft.Incomes[idx].Amount = amount
	return true
}

// RemoveIncome удаляет источник дохода черновика.
func (w *Wizard) RemoveIncome(id string) {
	w.draft.Incomes = slices.DeleteFunc(w.draft.Incomes, func(i models.IncomeStream) bool { return i.ID == id })
}

// AddBudget добавляет бюджет с лимитом по умолчанию.
func (w *Wizard) AddBudget() models.Budget {
	budget := models.Budget{
		ID:    w.nextID(),
		Limit: ledger.DefaultBudgetLimit,
		Color: ledger.ColorFor(len(w.draft.Budgets)),
	}
	w.draft.Budgets = append(w.draft.Budgets, budget)
	return budget
}

// UpdateBudget меняет категорию и лимит бюджета черновика.
func (w *Wizard) UpdateBudget(id, category string, limit float64) bool {
	idx := slices.IndexFunc(w.draft.Budgets, func(b models.Budget) bool { return b.ID == id })
	if idx < 0 {
		return false
	}
	if limit < 0 {
		limit = 0
	}
	w.draft.Budgets[idx].Category = category
	w.draft.Budgets[idx].Limit = limit
	return true
}

// RemoveBudget удаляет бюджет черновика.
func (w *Wizard) RemoveBudget(id string) {
	w.draft.Budgets = slices.DeleteFunc(w.draft.Budgets, func(b models.Budget) bool { return b.ID == id })
}

func (w *Wizard) nextID() string {
	return uuid.NewString()
}
