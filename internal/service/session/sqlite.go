package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/voxlate/internal/model/session"
)

const activeSessionKey = "active_session_id"

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	messages   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore persists sessions in a local SQLite database. Messages are kept
// as one JSON document per session so every save is a single-row upsert.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDBPath returns the default database location under the user config dir.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "voxlate", "sessions.sqlite")
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageError("create database dir", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageError("open database", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageError("ping database", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, storageError("apply schema", err)
	}

	return &SQLiteStore{db: db, now: Clock}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession() session.Session {
	return newSession(s.now)
}

// ListSessions returns every session, most recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]session.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, messages, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, created_at DESC
	`)
	if err != nil {
		return nil, storageError("query sessions", err)
	}
	defer rows.Close()

	var out []session.Session
	for rows.Next() {
		item, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate sessions", err)
	}
	return out, nil
}

// GetSession loads one session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (session.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, messages, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`, id)

	item, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, ErrSessionNotFound
	}
	return item, err
}

// SaveSession upserts the full session record.
func (s *SQLiteStore) SaveSession(ctx context.Context, item session.Session) error {
	if err := validateForSave(item); err != nil {
		return err
	}

	messages := item.Messages
	if messages == nil {
		messages = []session.Message{}
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			messages = excluded.messages,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, item.ID, item.Title, string(payload), item.CreatedAt.UnixMilli(), item.UpdatedAt.UnixMilli())
	if err != nil {
		return storageError("save session", err)
	}
	return nil
}

// DeleteSession removes a session; deleting an unknown id is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return storageError("delete session", err)
	}
	return nil
}

// GetActiveSessionID returns the persisted pointer, or "" when unset.
func (s *SQLiteStore) GetActiveSessionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, activeSessionKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageError("read active session", err)
	}
	return id, nil
}

// SetActiveSessionID persists the pointer.
func (s *SQLiteStore) SetActiveSessionID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, activeSessionKey, id)
	if err != nil {
		return storageError("write active session", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (session.Session, error) {
	var (
		item      session.Session
		messages  string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&item.ID, &item.Title, &messages, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, err
		}
		return session.Session{}, storageError("scan session", err)
	}

	item.Messages = make([]session.Message, 0)
	if messages != "" {
		if err := json.Unmarshal([]byte(messages), &item.Messages); err != nil {
			return session.Session{}, storageError("decode messages", err)
		}
	}
	item.CreatedAt = time.UnixMilli(createdAt).UTC()
	item.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return item, nil
}
