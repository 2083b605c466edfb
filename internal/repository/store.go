package repository

import "context"

// SnapshotStore хранит сериализованные снимки леджеров по ключу.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// AssistantLog сохраняет журнал обращений к модели.
type AssistantLog interface {
	LogRequest(ctx context.Context, entry AssistantRequest) error
}

type AssistantRequest struct {
	ID              string
	LedgerID        string
	Provider        string
	Model           string
	Prompt          string
	RequestPayload  []byte
	ResponsePayload []byte
	RawResponse     string
	Success         bool
	ErrorMessage    *string
}
