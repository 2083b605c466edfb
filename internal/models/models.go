package models

type Role string

type Currency string

type ActionType string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"

	CurrencyUSD Currency = "$"
	CurrencyNGN Currency = "₦"
	CurrencyEUR Currency = "€"
	CurrencyGBP Currency = "£"
	CurrencyJPY Currency = "¥"
	CurrencyINR Currency = "₹"

	ActionLogExpense            ActionType = "LOG_EXPENSE"
	ActionCreateBudget          ActionType = "CREATE_BUDGET"
	ActionRequestBudgetCreation ActionType = "REQUEST_BUDGET_CREATION"
	ActionTransferBudget        ActionType = "TRANSFER_BUDGET"
	ActionGiveAdvice            ActionType = "GIVE_ADVICE"
	ActionNone                  ActionType = "NONE"
)

// Currencies перечисляет поддерживаемые валюты в порядке отображения.
var Currencies = []Currency{CurrencyUSD, CurrencyNGN, CurrencyEUR, CurrencyGBP, CurrencyJPY, CurrencyINR}

// BudgetColors задает палитру, по которой циклически раскрашиваются бюджеты.
var BudgetColors = []string{"#007AFF", "#FF2D55", "#34C759", "#FFCC00", "#5856D6", "#AF52DE"}

// IsValid сообщает, входит ли символ в список поддерживаемых валют.
func (c Currency) IsValid() bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// IsKnown сообщает, относится ли тип действия к известному набору.
func (t ActionType) IsKnown() bool {
	switch t {
	case ActionLogExpense, ActionCreateBudget, ActionRequestBudgetCreation, ActionTransferBudget, ActionGiveAdvice, ActionNone:
		return true
	default:
		return false
	}
}

type Budget struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Limit    float64 `json:"limit"`
	Spent    float64 `json:"spent"`
	Color    string  `json:"color"`
}

type IncomeStream struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

type Transaction struct {
	ID          string  `json:"id"`
	BudgetID    string  `json:"budgetId,omitempty"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Currency    string  `json:"currency"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Snapshot хранит полное состояние леджера, сохраняемое одним JSON-документом.
type Snapshot struct {
	IsOnboarded      bool           `json:"isOnboarded"`
	Budgets          []Budget       `json:"budgets"`
	Incomes          []IncomeStream `json:"incomes"`
	Messages         []ChatMessage  `json:"messages"`
	Transactions     []Transaction  `json:"transactions"`
	SelectedCurrency Currency       `json:"selectedCurrency"`
	Payday           int            `json:"payday"`
	LastResetMonth   int            `json:"lastResetMonth"`
}

type ActionData struct {
	Amount       *float64 `json:"amount,omitempty"`
	Category     string   `json:"category,omitempty"`
	Item         string   `json:"item,omitempty"`
	Limit        *float64 `json:"limit,omitempty"`
	FromCategory string   `json:"fromCategory,omitempty"`
	ToCategory   string   `json:"toCategory,omitempty"`
	Advice       string   `json:"advice,omitempty"`
}

// Action описывает одну инструкцию ассистента по изменению состояния.
type Action struct {
	Type ActionType  `json:"type"`
	Data *ActionData `json:"data,omitempty"`
}
