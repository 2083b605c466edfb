package notifications

import (
	"sync"
	"time"
)

const (
	EventLedgerUpdated     = "ledger_updated"
	EventAssistantThinking = "assistant_thinking"
	EventAssistantReplied  = "assistant_replied"
)

const subscriberBuffer = 16

type Event struct {
	Type      string    `json:"type"`
	LedgerID  string    `json:"ledgerId"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Hub раздает события леджера всем открытым SSE-подпискам этого леджера.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	now         func() time.Time
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		now:         time.Now,
	}
}

// Subscribe подписывает клиента на события леджера и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(ledgerID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[ledgerID]
	if !ok {
		subs = make(map[chan Event]struct{})
		h.subscribers[ledgerID] = subs
	}
	subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if subs, exists := h.subscribers[ledgerID]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, ledgerID)
				}
			}
			close(ch)
		})
	}
}

// Publish отправляет событие подписчикам леджера. Медленные подписчики пропускают событие.
func (h *Hub) Publish(ledgerID string, event Event) {
	event.LedgerID = ledgerID
	event.Timestamp = h.now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[ledgerID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers возвращает число активных подписок леджера.
func (h *Hub) Subscribers(ledgerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[ledgerID])
}
