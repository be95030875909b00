// Package session is the per-conversation rolling memory. Sessions are
// created lazily on first append, turns are immutable once written, and
// history beyond the retention limit is evicted oldest-first so prompts
// stay bounded across long conversations.
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

// Roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation, appended in strict order.
type Turn struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store persists sessions in SQLite.
type Store struct {
	db       *sql.DB
	maxTurns int
}

// Open creates or opens the session database at the given path. maxTurns
// bounds per-session history; older turns are evicted first.
func Open(path string, maxTurns int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating session db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging session db: %w", err)
	}

	s := &Store{db: db, maxTurns: maxTurns}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating session db: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory session store (useful for testing).
func OpenMemory(maxTurns int) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory session db: %w", err)
	}
	// Every pooled connection would otherwise get its own empty memory DB.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, maxTurns: maxTurns}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating session db: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id),
    role TEXT NOT NULL CHECK(role IN ('user','assistant')),
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
`

// History returns a session's turns in append order. Unknown sessions
// yield an empty history, matching create-on-first-use semantics.
func (s *Store) History(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Append records a turn, creating the session on first use and evicting
// the oldest turns beyond the retention limit in the same transaction.
//
// Turns land in request-completion order: callers that need strict
// conversational ordering must not issue overlapping requests for one
// session ID. That contract belongs to the caller, not this store.
func (s *Store) Append(ctx context.Context, sessionID string, turn Turn) error {
	if turn.Role != RoleUser && turn.Role != RoleAssistant {
		return fmt.Errorf("invalid turn role %q", turn.Role)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning append tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id) VALUES (?)`, sessionID); err != nil {
		return fmt.Errorf("creating session %s: %w", sessionID, err)
	}

	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, turn.Role, turn.Content, createdAt); err != nil {
		return fmt.Errorf("appending turn to %s: %w", sessionID, err)
	}

	// FIFO eviction: keep only the newest maxTurns rows.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM turns WHERE session_id = ? AND id NOT IN (
		    SELECT id FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`, sessionID, sessionID, s.maxTurns); err != nil {
		return fmt.Errorf("evicting old turns for %s: %w", sessionID, err)
	}

	return tx.Commit()
}
