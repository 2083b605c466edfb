package ledger

import (
	"encoding/json"
	"fmt"

	"example.com/freddy/backend/internal/models"
)

type storedSnapshot struct {
	IsOnboarded      any                   `json:"isOnboarded"`
	Budgets          []models.Budget       `json:"budgets"`
	Incomes          []models.IncomeStream `json:"incomes"`
	Messages         []models.ChatMessage  `json:"messages"`
	Transactions     []models.Transaction  `json:"transactions"`
	SelectedCurrency models.Currency       `json:"selectedCurrency"`
	Payday           int                   `json:"payday"`
	LastResetMonth   *int                  `json:"lastResetMonth"`
}

// Fresh возвращает снимок леджера, которому требуется онбординг.
func Fresh() models.Snapshot {
	return models.Snapshot{
		Budgets:          []models.Budget{},
		Incomes:          []models.IncomeStream{},
		Messages:         []models.ChatMessage{},
		Transactions:     []models.Transaction{},
		SelectedCurrency: models.CurrencyUSD,
		Payday:           1,
		LastResetMonth:   -1,
	}
}

// DecodeSnapshot разбирает сохраненный снимок. При пустых или поврежденных
// данных возвращает Fresh() вместе с ошибкой разбора.
func DecodeSnapshot(raw []byte) (models.Snapshot, error) {
	if len(raw) == 0 {
		return Fresh(), nil
	}

	var stored storedSnapshot
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Fresh(), fmt.Errorf("decode snapshot: %w", err)
	}

	snapshot := Fresh()
	onboarded, _ := stored.IsOnboarded.(bool)
	snapshot.IsOnboarded = onboarded
	if stored.Budgets != nil {
		snapshot.Budgets = stored.Budgets
	}
	if stored.Incomes != nil {
		snapshot.Incomes = stored.Incomes
	}
	if stored.Messages != nil {
		snapshot.Messages = stored.Messages
	}
	if stored.Transactions != nil {
		snapshot.Transactions = stored.Transactions
	}
	if stored.SelectedCurrency.IsValid() {
		snapshot.SelectedCurrency = stored.SelectedCurrency
	}
	if stored.Payday >= 1 && stored.Payday <= 31 {
		snapshot.Payday = stored.Payday
	}
	if stored.LastResetMonth != nil {
		snapshot.LastResetMonth = *stored.LastResetMonth
	}

	return snapshot, nil
}

// EncodeSnapshot сериализует снимок; пустые коллекции пишутся как [].
func EncodeSnapshot(s models.Snapshot) ([]byte, error) {
	if s.Budgets == nil {
		s.Budgets = []models.Budget{}
	}
	if s.Incomes == nil {
		s.Incomes = []models.IncomeStream{}
	}
	if s.Messages == nil {
		s.Messages = []models.ChatMessage{}
	}
	if s.Transactions == nil {
		s.Transactions = []models.Transaction{}
	}

	return json.Marshal(s)
}
