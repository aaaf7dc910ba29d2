package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/logger"
)

// SQLiteStore implements Store using SQLite. Documents are kept as the same
// JSON text the file store writes, one row per document.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection so the schema is visible to every goroutine.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db, log: logger.Component("sqlitestore")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			file TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// GetTemplate implements TemplateStore.
func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	safe, err := templateID(id)
	if err != nil {
		return nil, err
	}
	var body string
	err = s.db.QueryRowContext(ctx, `SELECT body FROM templates WHERE id = ?`, safe).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", safe, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", safe, err)
	}
	t, _, err := parseTemplate(safe, []byte(body))
	return t, err
}

// PutTemplate implements TemplateStore.
func (s *SQLiteStore) PutTemplate(ctx context.Context, id string, t *domain.Template) (string, error) {
	safe, err := templateID(id)
	if err != nil {
		return "", err
	}
	data, err := encodeDocument(t)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, body) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`, safe, string(data))
	if err != nil {
		return "", fmt.Errorf("failed to put template %s: %w", safe, err)
	}
	return safe + jsonExt, nil
}

// DeleteTemplate implements TemplateStore.
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	safe, err := templateID(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, safe)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", safe, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", safe, err)
	}
	if n == 0 {
		return fmt.Errorf("template %s: %w", safe, ErrNotFound)
	}
	return nil
}

// ListTemplates implements TemplateStore.
func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]domain.TemplateSummary, error) {
	entries, err := s.scan(ctx, `SELECT id, body FROM templates`)
	if err != nil {
		return nil, err
	}
	return listTemplates(entries, s.log), nil
}

// GetSession implements SessionStore.
func (s *SQLiteStore) GetSession(ctx context.Context, file string) (*domain.SessionFile, error) {
	name, err := SessionFilename(file)
	if err != nil {
		return nil, err
	}
	var body string
	err = s.db.QueryRowContext(ctx, `SELECT body FROM sessions WHERE file = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", name, err)
	}
	return parseSession(name, []byte(body))
}

// PutSession implements SessionStore.
func (s *SQLiteStore) PutSession(ctx context.Context, file string, sess *domain.SessionFile) error {
	name, err := SessionFilename(file)
	if err != nil {
		return err
	}
	data, err := encodeDocument(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (file, body) VALUES (?, ?)
		ON CONFLICT(file) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`, name, string(data))
	if err != nil {
		return fmt.Errorf("failed to put session %s: %w", name, err)
	}
	return nil
}

// ListSessions implements SessionStore.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	entries, err := s.scan(ctx, `SELECT file, body FROM sessions`)
	if err != nil {
		return nil, err
	}
	return listSessions(entries, s.log), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) scan(ctx context.Context, query string) ([]rawEntry, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var entries []rawEntry
	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, rawEntry{name: name, data: []byte(body)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// insertRaw stores a body verbatim. Tests use it to plant malformed rows.
func (s *SQLiteStore) insertRaw(ctx context.Context, table, key, body string) error {
	var query string
	switch table {
	case "templates":
		query = `INSERT OR REPLACE INTO templates (id, body) VALUES (?, ?)`
	case "sessions":
		query = `INSERT OR REPLACE INTO sessions (file, body) VALUES (?, ?)`
	default:
		return fmt.Errorf("unknown table %q", table)
	}
	_, err := s.db.ExecContext(ctx, query, key, body)
	return err
}
