package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists session records in PostgreSQL for multi-instance
// deployments. Layout mirrors the SQLite store: two blob entries per
// session, replaced transactionally.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS session_entries (
		session_id TEXT NOT NULL,
		entry TEXT NOT NULL,
		payload BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (session_id, entry)
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT entry, payload FROM session_entries WHERE session_id = $1`, sessionID)
	if err != nil {
		return Record{}, fmt.Errorf("query session entries: %w", err)
	}
	defer rows.Close()

	var turnsBlob, stateBlob []byte
	for rows.Next() {
		var entry string
		var payload []byte
		if err := rows.Scan(&entry, &payload); err != nil {
			return Record{}, fmt.Errorf("scan session entry: %w", err)
		}
		switch entry {
		case entryTurns:
			turnsBlob = payload
		case entryState:
			stateBlob = payload
		}
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("iterate session entries: %w", err)
	}

	return decodeRecord(turnsBlob, stateBlob), nil
}

func (s *PostgresStore) Persist(ctx context.Context, sessionID string, rec Record) error {
	turnsBlob, stateBlob, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin persist tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	upsert := `
	INSERT INTO session_entries (session_id, entry, payload, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (session_id, entry) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

	if _, err := tx.Exec(ctx, upsert, sessionID, entryTurns, turnsBlob, now); err != nil {
		return fmt.Errorf("persist turns entry: %w", err)
	}
	if _, err := tx.Exec(ctx, upsert, sessionID, entryState, stateBlob, now); err != nil {
		return fmt.Errorf("persist state entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit persist tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM session_entries WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear session entries: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
