package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"example.com/freddy/backend/internal/ai"
	"example.com/freddy/backend/internal/ledger"
	"example.com/freddy/backend/internal/models"
	"example.com/freddy/backend/internal/notifications"
	"example.com/freddy/backend/internal/onboarding"
	"example.com/freddy/backend/internal/repository"
)

var (
	ErrNotOnboarded     = errors.New("ledger is not onboarded")
	ErrAlreadyOnboarded = errors.New("ledger is already onboarded")
	ErrAssistantBusy    = errors.New("assistant is busy")
	ErrEmptyMessage     = errors.New("message is empty")
)

type Assistant interface {
	Reply(ctx context.Context, req ai.Request) (ai.Reply, ai.Exchange)
}

type Publisher interface {
	Publish(ledgerID string, event notifications.Event)
}

type Options struct {
	Store     repository.SnapshotStore
	Log       repository.AssistantLog
	Assistant Assistant
	Publisher Publisher
	Engine    *ledger.Engine
	KeyPrefix string
	Logger    *slog.Logger
}

// Ledgers владеет состоянием всех леджеров: один писатель на леджер,
// сохранение после каждой мутации и уведомление подписчиков.
type Ledgers struct {
	store     repository.SnapshotStore
	log       repository.AssistantLog
	assistant Assistant
	publisher Publisher
	engine    *ledger.Engine
	keyPrefix string
	logger    *slog.Logger

	mu     sync.Mutex
	states map[string]*ledgerState
}

// ledgerState живет в карте, пока есть хотя бы одна операция над леджером.
type ledgerState struct {
	mu   sync.Mutex
	busy bool
	refs int
}

// ChatResult описывает итог одного сообщения пользователя.
type ChatResult struct {
	UserMessage  models.ChatMessage
	ModelMessage models.ChatMessage
	Outcomes     []ledger.Outcome
	Fallback     bool
	Snapshot     models.Snapshot
}

// NewLedgers создает координатор леджеров.
func NewLedgers(opts Options) *Ledgers {
	engine := opts.Engine
	if engine == nil {
		engine = ledger.NewEngine()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var assistant Assistant = ai.NewAssistant(nil, ai.AssistantOptions{})
	if opts.Assistant != nil {
		assistant = opts.Assistant
	}

	return &Ledgers{
		store:     opts.Store,
		log:       opts.Log,
		assistant: assistant,
		publisher: opts.Publisher,
		engine:    engine,
		keyPrefix: opts.KeyPrefix,
		logger:    logger,
		states:    make(map[string]*ledgerState),
	}
}

// Key возвращает ключ хранилища для леджера.
func (l *Ledgers) Key(ledgerID string) string {
	return l.keyPrefix + ":" + ledgerID
}

// Snapshot возвращает текущее состояние леджера.
func (l *Ledgers) Snapshot(ctx context.Context, ledgerID string) (models.Snapshot, error) {
	state := l.acquire(ledgerID)
	defer l.release(ledgerID, state)
	state.mu.Lock()
	defer state.mu.Unlock()

	return l.load(ctx, ledgerID)
}

// Summary возвращает агрегаты дашборда.
func (l *Ledgers) Summary(ctx context.Context, ledgerID string) (ledger.Summary, error) {
	snapshot, err := l.Snapshot(ctx, ledgerID)
	if err != nil {
		return ledger.Summary{}, err
	}
	return ledger.Summarize(snapshot), nil
}

// CompleteOnboarding заполняет леджер итогом мастера.
func (l *Ledgers) CompleteOnboarding(ctx context.Context, ledgerID string, result onboarding.Result) (models.Snapshot, error) {
	state := l.acquire(ledgerID)
	defer l.release(ledgerID, state)
	state.mu.Lock()
	defer state.mu.Unlock()

	current, err := l.load(ctx, ledgerID)
	if err != nil {
		return models.Snapshot{}, err
	}
	if current.IsOnboarded {
		return current, ErrAlreadyOnboarded
	}

	next, err := l.engine.CompleteOnboarding(current, result.Incomes, result.Budgets, result.Currency, result.Payday)
	if err != nil {
		return current, err
	}
	if err := l.save(ctx, ledgerID, next); err != nil {
		return current, err
	}

	l.publish(ledgerID, notifications.EventLedgerUpdated, "onboarding_completed")
	return next, nil
}

// LogExpense добавляет расход в бюджет.
func (l *Ledgers) LogExpense(ctx context.Context, ledgerID, budgetID string, amount float64) (models.Snapshot, error) {
	return l.mutate(ctx, ledgerID, "expense_logged", func(s models.Snapshot) (models.Snapshot, error) {
		return l.engine.LogExpense(s, budgetID, amount)
	})
}

// UpdateBudget меняет лимит и категорию бюджета.
func (l *Ledgers) UpdateBudget(ctx context.Context, ledgerID, budgetID string, limit float64, category string) (models.Snapshot, error) {
	return l.mutate(ctx, ledgerID, "budget_updated", func(s models.Snapshot) (models.Snapshot, error) {
		return l.engine.UpdateBudget(s, budgetID, limit, category)
	})
}

// DeleteBudget удаляет бюджет вместе с его транзакциями.
func (l *Ledgers) DeleteBudget(ctx context.Context, ledgerID, budgetID string) (models.Snapshot, error) {
	return l.mutate(ctx, ledgerID, "budget_deleted", func(s models.Snapshot) (models.Snapshot, error) {
		return l.engine.DeleteBudget(s, budgetID)
	})
}

// EditTransaction меняет сумму и описание транзакции.
func (l *Ledgers) EditTransaction(ctx context.Context, ledgerID, txID string, amount float64, description string) (models.Snapshot, error) {
	return l.mutate(ctx, ledgerID, "transaction_updated", func(s models.Snapshot) (models.Snapshot, error) {
		return l.engine.EditTransaction(s, txID, amount, description)
	})
}

// DeleteTransaction удаляет транзакцию и возвращает сумму в бюджет.
func (l *Ledgers) DeleteTransaction(ctx context.Context, ledgerID, txID string) (models.Snapshot, error) {
	return l.mutate(ctx, ledgerID, "transaction_deleted", func(s models.Snapshot) (models.Snapshot, error) {
		return l.engine.DeleteTransaction(s, txID)
	})
}

// AddIncome добавляет источник дохода.
func (l *Ledgers) AddIncome(ctx context.Context, ledgerID, source string, amount float64) (models.Snapshot, models.IncomeStream, error) {
	var income models.IncomeStream
	snapshot, err := l.mutate(ctx, ledgerID, "income_added", func(s models.Snapshot) (models.Snapshot, error) {
		next, created, err := l.engine.AddIncome(s, source, amount)
		income = created
		return next, err
	})
	return snapshot, income, err
}

// UpdateIncome меняет источник дохода.
func (l *Ledgers) UpdateIncome(ctx context.Context, ledgerID, incomeID, source string, amount float64) (models.Snapshot, error) {
	return l.mutate(ctx, ledgerID, "income_updated", func(s models.Snapshot) (models.Snapshot, error) {
		return l.engine.UpdateIncome(s, incomeID, source, amount)
	})
}

// DeleteIncome удаляет источник дохода.
func (l *Ledgers) DeleteIncome(ctx context.Context, ledgerID, incomeID string) (models.Snapshot, error) {
	return l.mutate(ctx, ledgerID, "income_deleted", func(s models.Snapshot) (models.Snapshot, error) {
		return l.engine.DeleteIncome(s, incomeID)
	})
}

// UpdateSettings меняет валюту и день выплаты. Пустые значения не трогаются.
func (l *Ledgers) UpdateSettings(ctx context.Context, ledgerID string, currency *models.Currency, payday *string) (models.Snapshot, error) {
	return l.mutate(ctx, ledgerID, "settings_updated", func(s models.Snapshot) (models.Snapshot, error) {
		next := s
		var err error
		if currency != nil {
			if next, err = l.engine.SetCurrency(next, *currency); err != nil {
				return s, err
			}
		}
		if payday != nil {
			if next, err = l.engine.SetPayday(next, *payday); err != nil {
				return s, err
			}
		}
		return next, nil
	})
}

// Chat отправляет сообщение ассистенту и применяет его действия.
// Модель вызывается вне блокировки леджера; параллельный чат того же леджера отклоняется.
func (l *Ledgers) Chat(ctx context.Context, ledgerID, text string) (ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatResult{}, ErrEmptyMessage
	}

	state := l.acquire(ledgerID)
	defer l.release(ledgerID, state)
	request, userMessage, err := l.beginChat(ctx, ledgerID, state, text)
	if err != nil {
		return ChatResult{}, err
	}

	l.publish(ledgerID, notifications.EventAssistantThinking, nil)

	reply, exchange := l.assistant.Reply(ctx, request)
	l.record(ctx, ledgerID, exchange)

	state.mu.Lock()
	defer state.mu.Unlock()
	state.busy = false

	current, err := l.load(ctx, ledgerID)
	if err != nil {
		return ChatResult{}, err
	}

	next, outcomes := l.engine.ApplyActions(current, reply.Actions)
	next, modelMessage := l.engine.AppendMessage(next, models.RoleModel, withAdvice(reply.Message, outcomes))

	if err := l.save(ctx, ledgerID, next); err != nil {
		return ChatResult{}, err
	}

	l.publish(ledgerID, notifications.EventAssistantReplied, modelMessage)

	return ChatResult{
		UserMessage:  userMessage,
		ModelMessage: modelMessage,
		Outcomes:     outcomes,
		Fallback:     !exchange.Success(),
		Snapshot:     next,
	}, nil
}

func (l *Ledgers) beginChat(ctx context.Context, ledgerID string, state *ledgerState, text string) (ai.Request, models.ChatMessage, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.busy {
		return ai.Request{}, models.ChatMessage{}, ErrAssistantBusy
	}

	current, err := l.load(ctx, ledgerID)
	if err != nil {
		return ai.Request{}, models.ChatMessage{}, err
	}
	if !current.IsOnboarded {
		return ai.Request{}, models.ChatMessage{}, ErrNotOnboarded
	}

	next, userMessage := l.engine.AppendMessage(current, models.RoleUser, text)
	if err := l.save(ctx, ledgerID, next); err != nil {
		return ai.Request{}, models.ChatMessage{}, err
	}

	request := ai.Request{
		Text:         text,
		History:      next.Messages,
		Budgets:      next.Budgets,
		Incomes:      next.Incomes,
		Transactions: next.Transactions,
		Currency:     next.SelectedCurrency,
	}

	state.busy = true
	return request, userMessage, nil
}

func (l *Ledgers) mutate(ctx context.Context, ledgerID, reason string, apply func(models.Snapshot) (models.Snapshot, error)) (models.Snapshot, error) {
	state := l.acquire(ledgerID)
	defer l.release(ledgerID, state)
	state.mu.Lock()
	defer state.mu.Unlock()

	current, err := l.load(ctx, ledgerID)
	if err != nil {
		return models.Snapshot{}, err
	}
	if !current.IsOnboarded {
		return current, ErrNotOnboarded
	}

	next, err := apply(current)
	if err != nil {
		return current, err
	}

	if err := l.save(ctx, ledgerID, next); err != nil {
		return current, err
	}

	l.publish(ledgerID, notifications.EventLedgerUpdated, reason)
	return next, nil
}

func (l *Ledgers) load(ctx context.Context, ledgerID string) (models.Snapshot, error) {
	raw, err := l.store.Load(ctx, l.Key(ledgerID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ledger.Fresh(), nil
		}
		return models.Snapshot{}, fmt.Errorf("load ledger: %w", err)
	}

	snapshot, err := ledger.DecodeSnapshot(raw)
	if err != nil {
		l.logger.Warn("ledger snapshot is corrupt, onboarding required", "ledger_id", ledgerID, "error", err)
	}
	return snapshot, nil
}

func (l *Ledgers) save(ctx context.Context, ledgerID string, snapshot models.Snapshot) error {
	if !snapshot.IsOnboarded {
		return nil
	}

	payload, err := ledger.EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := l.store.Save(ctx, l.Key(ledgerID), payload); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (l *Ledgers) record(ctx context.Context, ledgerID string, exchange ai.Exchange) {
	if !exchange.Success() {
		l.logger.Warn("assistant fallback", "ledger_id", ledgerID, "provider", exchange.Provider, "error", exchange.Err)
	}
	if l.log == nil {
		return
	}

	entry := repository.AssistantRequest{
		LedgerID:        ledgerID,
		Provider:        exchange.Provider,
		Model:           exchange.Model,
		Prompt:          exchange.Prompt,
		RequestPayload:  exchange.RequestPayload,
		ResponsePayload: exchange.ResponsePayload,
		RawResponse:     string(exchange.RawResponse),
		Success:         exchange.Success(),
	}
	if exchange.Err != nil {
		message := exchange.Err.Error()
		entry.ErrorMessage = &message
	}

	if err := l.log.LogRequest(context.WithoutCancel(ctx), entry); err != nil {
		l.logger.Error("failed to log assistant request", "ledger_id", ledgerID, "error", err)
	}
}

func (l *Ledgers) publish(ledgerID, eventType string, data any) {
	if l.publisher == nil {
		return
	}
	l.publisher.Publish(ledgerID, notifications.Event{Type: eventType, Data: data})
}

func (l *Ledgers) acquire(ledgerID string) *ledgerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[ledgerID]
	if !ok {
		state = &ledgerState{}
		l.states[ledgerID] = state
	}
	state.refs++
	return state
}

// release удаляет состояние последнего владельца. Занятый чат держит ссылку
// до ответа модели, поэтому флаг busy не теряется.
func (l *Ledgers) release(ledgerID string, state *ledgerState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state.refs--
	if state.refs == 0 {
		delete(l.states, ledgerID)
	}
}

func withAdvice(message string, outcomes []ledger.Outcome) string {
	for _, outcome := range outcomes {
		if outcome.Advice == "" || strings.Contains(message, outcome.Advice) {
			continue
		}
		message = strings.TrimSpace(message + "\n\n" + outcome.Advice)
	}
	return message
}
