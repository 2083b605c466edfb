package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore создает хранилище снимков в PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load возвращает снимок по ключу.
func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT payload::text FROM ledger_snapshots WHERE storage_key = $1`,
		key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return payload, nil
}

// Save перезаписывает снимок целиком.
func (s *PostgresStore) Save(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO ledger_snapshots (storage_key, payload, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (storage_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		key,
		string(payload),
	)
	return err
}

// LogRequest сохраняет лог запроса к ассистенту.
func (s *PostgresStore) LogRequest(ctx context.Context, entry AssistantRequest) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO assistant_requests
		 (id, ledger_id, provider, model, prompt, request_payload, response_payload, raw_response, success, error_message)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::jsonb, NULLIF($7, '')::jsonb, $8, $9, $10)`,
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
