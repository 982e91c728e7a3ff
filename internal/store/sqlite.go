package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voxhub/toolproxy/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	sessionMu sync.Mutex // Mutex for session writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		last_touched_at INTEGER NOT NULL,
		discovered_json TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_touched ON sessions(last_touched_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertSession stores a new session record.
func (s *SQLiteStore) InsertSession(ctx context.Context, sess *domain.Session) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	discovered, err := json.Marshal(sess.Discovered)
	if err != nil {
		return fmt.Errorf("marshal discovery log: %w", err)
	}
	if sess.Discovered == nil {
		discovered = []byte("[]")
	}

	query := `
	INSERT INTO sessions (session_id, created_at, last_touched_at, discovered_json)
	VALUES (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.CreatedAt.Unix(), sess.LastTouchedAt.Unix(), string(discovered),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT session_id, created_at, last_touched_at, discovered_json
		FROM sessions WHERE session_id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var sess domain.Session
	var createdAt, lastTouched int64
	var discoveredJSON string

	err := row.Scan(&sess.ID, &createdAt, &lastTouched, &discoveredJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.LastTouchedAt = time.Unix(lastTouched, 0)
	if err := json.Unmarshal([]byte(discoveredJSON), &sess.Discovered); err != nil {
		return nil, fmt.Errorf("parse discovery log: %w", err)
	}

	return &sess, nil
}

// TouchSession updates the last_touched_at timestamp for a session.
func (s *SQLiteStore) TouchSession(ctx context.Context, id string, touchedAt time.Time) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	query := `UPDATE sessions SET last_touched_at = ? WHERE session_id = ?`
	result, err := s.db.ExecContext(ctx, query, touchedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %q not found", id)
	}
	return nil
}

// AppendDiscovery appends tool slugs to the session's discovery log.
func (s *SQLiteStore) AppendDiscovery(ctx context.Context, id string, slugs []string, touchedAt time.Time) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin discovery append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var discoveredJSON string
	row := tx.QueryRowContext(ctx, `SELECT discovered_json FROM sessions WHERE session_id = ?`, id)
	if err := row.Scan(&discoveredJSON); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("session %q not found", id)
		}
		return fmt.Errorf("read discovery log: %w", err)
	}

	var discovered []string
	if err := json.Unmarshal([]byte(discoveredJSON), &discovered); err != nil {
		return fmt.Errorf("parse discovery log: %w", err)
	}
	discovered = append(discovered, slugs...)

	updated, err := json.Marshal(discovered)
	if err != nil {
		return fmt.Errorf("marshal discovery log: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET discovered_json = ?, last_touched_at = ? WHERE session_id = ?`,
		string(updated), touchedAt.Unix(), id,
	); err != nil {
		return fmt.Errorf("append discovery log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit discovery append: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose last activity is older than TTL.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_touched_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
