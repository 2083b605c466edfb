package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/freddy/backend/internal/ai"
	"example.com/freddy/backend/internal/ledger"
	"example.com/freddy/backend/internal/models"
	"example.com/freddy/backend/internal/notifications"
	"example.com/freddy/backend/internal/onboarding"
	"example.com/freddy/backend/internal/repository"
)

const testLedger = "0b6f6c1e-8d0e-4c55-9d0b-4c1b7d1f2a10"

type scriptedAssistant struct {
	reply    ai.Reply
	err      error
	requests []ai.Request
	block    chan struct{}
	started  chan struct{}
}

func (a *scriptedAssistant) Reply(_ context.Context, req ai.Request) (ai.Reply, ai.Exchange) {
	a.requests = append(a.requests, req)
	if a.started != nil {
		close(a.started)
	}
	if a.block != nil {
		<-a.block
	}
	exchange := ai.Exchange{Provider: "fake", Model: "fake-1", Prompt: req.Text, Err: a.err}
	if a.err != nil {
		return ai.FallbackReply(), exchange
	}
	return a.reply, exchange
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) Publish(_ string, event notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

func newTestLedgers(assistant Assistant) (*Ledgers, *repository.MemoryStore, *recordingPublisher) {
	counter := 0
	engine := &ledger.Engine{
		Now: func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) },
		NewID: func() string {
			counter++
			return fmt.Sprintf("id-%d", counter)
		},
	}
	store := repository.NewMemoryStore()
	publisher := &recordingPublisher{}

	return NewLedgers(Options{
		Store:     store,
		Log:       store,
		Assistant: assistant,
		Publisher: publisher,
		Engine:    engine,
		KeyPrefix: "freddy_premium_v17_fixed",
	}), store, publisher
}

func onboard(t *testing.T, ledgers *Ledgers) models.Snapshot {
	t.Helper()

	draft := onboarding.DefaultDraft()
	draft.Budgets = append(draft.Budgets, models.Budget{ID: "4", Category: "Food", Limit: 1000})
	result, err := onboarding.Run(draft)
	if err != nil {
		t.Fatalf("onboarding: %v", err)
	}

	snapshot, err := ledgers.CompleteOnboarding(context.Background(), testLedger, result)
	if err != nil {
		t.Fatalf("complete onboarding: %v", err)
	}
	return snapshot
}

func amount(v float64) *float64 {
	return &v
}

// TestFreshLedger проверяет состояние нового леджера.
func TestFreshLedger(t *testing.T) {
	ledgers, store, _ := newTestLedgers(nil)

	snapshot, err := ledgers.Snapshot(context.Background(), testLedger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.IsOnboarded {
		t.Fatal("expected onboarding to be required")
	}

	if _, err := ledgers.LogExpense(context.Background(), testLedger, "b1", 10); !errors.Is(err, ErrNotOnboarded) {
		t.Fatalf("expected ErrNotOnboarded, got %v", err)
	}
	if _, err := store.Load(context.Background(), ledgers.Key(testLedger)); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("expected nothing to be persisted before onboarding")
	}
}

// TestCompleteOnboardingPersists проверяет сохранение под ключом леджера.
func TestCompleteOnboardingPersists(t *testing.T) {
	ledgers, store, publisher := newTestLedgers(nil)
	onboard(t, ledgers)

	raw, err := store.Load(context.Background(), "freddy_premium_v17_fixed:"+testLedger)
	if err != nil {
		t.Fatalf("expected snapshot to be saved: %v", err)
	}
	if !strings.Contains(string(raw), `"isOnboarded":true`) {
		t.Fatalf("unexpected payload %s", raw)
	}

	if _, err := ledgers.CompleteOnboarding(context.Background(), testLedger, onboarding.Result{}); !errors.Is(err, ErrAlreadyOnboarded) {
		t.Fatalf("expected ErrAlreadyOnboarded, got %v", err)
	}
	if got := publisher.types(); len(got) != 1 || got[0] != notifications.EventLedgerUpdated {
		t.Fatalf("unexpected events %v", got)
	}
}

// TestMutationsPersist проверяет, что изменения переживают перезагрузку.
func TestMutationsPersist(t *testing.T) {
	ledgers, _, _ := newTestLedgers(nil)
	snapshot := onboard(t, ledgers)
	ctx := context.Background()
	budgetID := snapshot.Budgets[0].ID

	if _, err := ledgers.LogExpense(ctx, testLedger, budgetID, 120); err != nil {
		t.Fatalf("log expense: %v", err)
	}

	_, err := ledgers.LogExpense(ctx, testLedger, budgetID, -1)
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	currency := models.CurrencyGBP
	payday := "25"
	if _, err := ledgers.UpdateSettings(ctx, testLedger, &currency, &payday); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	reloaded, err := ledgers.Snapshot(ctx, testLedger)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Budgets[0].Spent != 120 || len(reloaded.Transactions) != 1 {
		t.Fatalf("unexpected budgets after reload: %+v", reloaded.Budgets)
	}
	if reloaded.SelectedCurrency != models.CurrencyGBP || reloaded.Payday != 25 {
		t.Fatalf("unexpected settings after reload: %+v", reloaded)
	}

	bad := "40"
	if _, err := ledgers.UpdateSettings(ctx, testLedger, nil, &bad); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// TestCorruptSnapshot проверяет возврат к онбордингу при поврежденных данных.
func TestCorruptSnapshot(t *testing.T) {
	ledgers, store, _ := newTestLedgers(nil)
	_ = store.Save(context.Background(), ledgers.Key(testLedger), []byte("{broken"))

	snapshot, err := ledgers.Snapshot(context.Background(), testLedger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.IsOnboarded {
		t.Fatal("expected onboarding to be required")
	}
}

// TestChatAppliesActions проверяет полный цикл сообщения ассистенту.
func TestChatAppliesActions(t *testing.T) {
	assistant := &scriptedAssistant{reply: ai.Reply{
		Message: "Logged.",
		Actions: []models.Action{
			{Type: models.ActionLogExpense, Data: &models.ActionData{Amount: amount(4500), Category: "food", Item: "tangerine"}},
			{Type: models.ActionRequestBudgetCreation, Data: &models.ActionData{Amount: amount(5000), Category: "Personal"}},
			{Type: models.ActionGiveAdvice, Data: &models.ActionData{Advice: "Keep snacks under control."}},
		},
	}}
	ledgers, store, publisher := newTestLedgers(assistant)
	onboard(t, ledgers)

	result, err := ledgers.Chat(context.Background(), testLedger, "  I spent 4500 on tangerine ")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if result.UserMessage.Text != "I spent 4500 on tangerine" || result.UserMessage.Role != models.RoleUser {
		t.Fatalf("unexpected user message %+v", result.UserMessage)
	}
	if result.ModelMessage.Text != "Logged.\n\nKeep snacks under control." || result.Fallback {
		t.Fatalf("unexpected model message %+v", result.ModelMessage)
	}
	if len(result.Outcomes) != 3 || !result.Outcomes[0].Applied || result.Outcomes[1].Applied {
		t.Fatalf("unexpected outcomes %+v", result.Outcomes)
	}

	food := result.Snapshot.Budgets[3]
	if food.Category != "Food" || food.Spent != 4500 {
		t.Fatalf("unexpected food budget %+v", food)
	}
	if len(result.Snapshot.Messages) != 3 {
		t.Fatalf("expected welcome, user and model messages, got %d", len(result.Snapshot.Messages))
	}

	history := assistant.requests[0].History
	if len(history) != 2 || history[1].Text != "I spent 4500 on tangerine" || history[1].Role != models.RoleUser {
		t.Fatalf("expected history to end with the current message, got %+v", history)
	}
	if len(store.Requests()) != 1 || !store.Requests()[0].Success {
		t.Fatalf("expected one successful log entry, got %+v", store.Requests())
	}

	events := publisher.types()
	if events[len(events)-1] != notifications.EventAssistantReplied {
		t.Fatalf("unexpected events %v", events)
	}
}

// TestChatFallback проверяет ответ по умолчанию при ошибке модели.
func TestChatFallback(t *testing.T) {
	assistant := &scriptedAssistant{err: errors.New("upstream down")}
	ledgers, store, _ := newTestLedgers(assistant)
	snapshot := onboard(t, ledgers)

	result, err := ledgers.Chat(context.Background(), testLedger, "hello")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !result.Fallback || result.ModelMessage.Text != ai.FallbackMessage {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Snapshot.Budgets[0].Spent != snapshot.Budgets[0].Spent {
		t.Fatal("fallback must not change budgets")
	}

	entries := store.Requests()
	if len(entries) != 1 || entries[0].Success || entries[0].ErrorMessage == nil {
		t.Fatalf("expected failed log entry, got %+v", entries)
	}
}

// TestChatValidation проверяет отказ для пустого сообщения и неонбординга.
func TestChatValidation(t *testing.T) {
	ledgers, _, _ := newTestLedgers(&scriptedAssistant{})

	if _, err := ledgers.Chat(context.Background(), testLedger, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := ledgers.Chat(context.Background(), testLedger, "hi"); !errors.Is(err, ErrNotOnboarded) {
		t.Fatalf("expected ErrNotOnboarded, got %v", err)
	}
}

// TestChatBusy проверяет отказ второго сообщения, пока ассистент отвечает,
// и применение действий к актуальному состоянию.
func TestChatBusy(t *testing.T) {
	assistant := &scriptedAssistant{
		reply: ai.Reply{Message: "Done.", Actions: []models.Action{
			{Type: models.ActionLogExpense, Data: &models.ActionData{Amount: amount(10), Category: "Food"}},
		}},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	ledgers, _, _ := newTestLedgers(assistant)
	snapshot := onboard(t, ledgers)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := ledgers.Chat(ctx, testLedger, "10 on food")
		done <- err
	}()

	<-assistant.started

	if _, err := ledgers.Chat(ctx, testLedger, "again"); !errors.Is(err, ErrAssistantBusy) {
		t.Fatalf("expected ErrAssistantBusy, got %v", err)
	}

	if _, err := ledgers.LogExpense(ctx, testLedger, snapshot.Budgets[3].ID, 5); err != nil {
		t.Fatalf("manual edit while the assistant is busy: %v", err)
	}

	close(assistant.block)
	if err := <-done; err != nil {
		t.Fatalf("chat: %v", err)
	}

	final, _ := ledgers.Snapshot(ctx, testLedger)
	if final.Budgets[3].Spent != 15 {
		t.Fatalf("expected both expenses to be kept, got %v", final.Budgets[3].Spent)
	}
}

// TestChatHistoryIncludesCurrentMessage проверяет, что текущее сообщение попадает в историю запроса.
func TestChatHistoryIncludesCurrentMessage(t *testing.T) {
	assistant := &scriptedAssistant{reply: ai.Reply{Message: "Noted.", Actions: []models.Action{{Type: models.ActionNone}}}}
	ledgers, _, _ := newTestLedgers(assistant)
	onboard(t, ledgers)

	for _, text := range []string{"one", "two", "three"} {
		if _, err := ledgers.Chat(context.Background(), testLedger, text); err != nil {
			t.Fatalf("chat %q: %v", text, err)
		}
	}

	last := assistant.requests[len(assistant.requests)-1]
	if last.Text != "three" {
		t.Fatalf("unexpected request text %q", last.Text)
	}
	if got := last.History[len(last.History)-1]; got.Text != "three" || got.Role != models.RoleUser {
		t.Fatalf("expected current message at the end of history, got %+v", got)
	}
	if len(last.History) != 6 {
		t.Fatalf("expected welcome plus five chat messages, got %d", len(last.History))
	}
}

// TestLedgerStatesReleased проверяет, что состояние леджера не копится после операций.
func TestLedgerStatesReleased(t *testing.T) {
	assistant := &scriptedAssistant{reply: ai.Reply{Message: "Noted.", Actions: []models.Action{{Type: models.ActionNone}}}}
	ledgers, _, _ := newTestLedgers(assistant)
	snapshot := onboard(t, ledgers)

	ctx := context.Background()
	if _, err := ledgers.LogExpense(ctx, testLedger, snapshot.Budgets[0].ID, 10); err != nil {
		t.Fatalf("log expense: %v", err)
	}
	if _, err := ledgers.Chat(ctx, testLedger, "hello"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if _, err := ledgers.Snapshot(ctx, "another-ledger"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	ledgers.mu.Lock()
	defer ledgers.mu.Unlock()
	if len(ledgers.states) != 0 {
		t.Fatalf("expected no retained ledger states, got %d", len(ledgers.states))
	}
}
