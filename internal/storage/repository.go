package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"minitracker/internal/core"
	"minitracker/internal/session"

	_ "modernc.org/sqlite"
)

// SQLiteSessionStore persists sessions in a local SQLite file so that a CLI
// login survives across invocations and web sessions survive restarts.
type SQLiteSessionStore struct {
	db *sql.DB
}

var _ session.Store = (*SQLiteSessionStore)(nil)

func NewSQLiteSessionStore(dbPath string) (*SQLiteSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer keeps SQLITE_BUSY out of concurrent web requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := MigrateSessions(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Session schema ready", "component", "storage", "db_path", dbPath, "schema_version", version)

	return &SQLiteSessionStore{db: db}, nil
}

func (r *SQLiteSessionStore) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteSessionStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteSessionStore) Save(ctx context.Context, s *core.Session) error {
	if !s.Valid() || s.ID == "" {
		return session.ErrInvalidSession
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token, user_id, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			role = excluded.role`,
		s.ID, s.Token, s.UserID, s.Role.String(), createdAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	slog.DebugContext(ctx, "Session saved", "component", "storage", "session_id", s.ID, "user_id", s.UserID)
	return nil
}

func (r *SQLiteSessionStore) Get(ctx context.Context, id string) (*core.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, token, user_id, role, created_at FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM current_session WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear current session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session: %w", err)
	}

	slog.DebugContext(ctx, "Session deleted", "component", "storage", "session_id", id)
	return nil
}

func (r *SQLiteSessionStore) Current(ctx context.Context) (*core.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.token, s.user_id, s.role, s.created_at
		FROM current_session c
		JOIN sessions s ON s.id = c.session_id
		WHERE c.slot = 1`)
	return scanSession(row)
}

func (r *SQLiteSessionStore) SetCurrent(ctx context.Context, id string) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO current_session (slot, session_id) VALUES (1, ?)
		ON CONFLICT(slot) DO UPDATE SET session_id = excluded.session_id`, id)
	if err != nil {
		return fmt.Errorf("set current session: %w", err)
	}
	return nil
}

func scanSession(row *sql.Row) (*core.Session, error) {
	var (
		s         core.Session
		role      string
		createdAt int64
	)
	err := row.Scan(&s.ID, &s.Token, &s.UserID, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	s.Role, err = core.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &s, nil
}
