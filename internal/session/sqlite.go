package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists session records in a local SQLite file. This is the
// default backend for single-user deployments; both entries of a session are
// replaced inside one transaction so a reader never sees a torn record.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS session_entries (
		session_id TEXT NOT NULL,
		entry TEXT NOT NULL,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, entry)
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry, payload FROM session_entries WHERE session_id = ?`, sessionID)
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

func (s *SQLiteStore) Persist(ctx context.Context, sessionID string, rec Record) error {
	turnsBlob, stateBlob, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persist tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Unix()
	upsert := `
	INSERT INTO session_entries (session_id, entry, payload, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (session_id, entry) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

	if _, err := tx.ExecContext(ctx, upsert, sessionID, entryTurns, turnsBlob, now); err != nil {
		return fmt.Errorf("persist turns entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, sessionID, entryState, stateBlob, now); err != nil {
		return fmt.Errorf("persist state entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit persist tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_entries WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session entries: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
