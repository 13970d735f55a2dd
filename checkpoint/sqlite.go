package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fingen/agent/core"
)

// SQLite is a durable Store backed by a local SQLite database, so
// conversations survive process restarts.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a checkpoint database at path.
// ":memory:" gives a non-durable database with the same behavior.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	// WAL mode allows readers alongside the single writer. The pragmas
	// only apply to file-backed databases; ":memory:" is passed through.
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping checkpoint database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		session_id TEXT PRIMARY KEY,
		state      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init checkpoint schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Get returns the last saved state for the session, or nil if none.
func (s *SQLite) Get(ctx context.Context, sessionID string) (*core.MessageState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE session_id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var state core.MessageState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode checkpoint for session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Put saves the state keyed by its session ID.
func (s *SQLite) Put(ctx context.Context, state *core.MessageState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		state.SessionID, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
