package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore создает хранилище снимков в SQLite.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load возвращает снимок по ключу.
func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM ledger_snapshots WHERE storage_key = ?`,
		key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return []byte(payload), nil
}

// Save перезаписывает снимок целиком.
func (s *SQLiteStore) Save(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_snapshots (storage_key, payload, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (storage_key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		key,
		string(payload),
	)
	return err
}

// LogRequest сохраняет лог запроса к ассистенту.
func (s *SQLiteStore) LogRequest(ctx context.Context, entry AssistantRequest) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assistant_requests
		 (id, ledger_id, provider, model, prompt, request_payload, response_payload, raw_response, success, error_message)
		 VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`,
		entry.ID,
		entry.LedgerID,
		entry.Provider,
		entry.Model,
		entry.Prompt,
		string(entry.RequestPayload),
		string(entry.ResponsePayload),
		entry.RawResponse,
		entry.Success,
		entry.ErrorMessage,
	)
	return err
}
