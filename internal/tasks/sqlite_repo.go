package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Fixed-width so created_at sorts correctly as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteStore) Close() error { return r.db.Close() }

// Create inserts all drafts in one transaction so a batch is all-or-nothing.
func (r *SQLiteStore) Create(ctx context.Context, drafts ...Draft) ([]Task, error) {
	if err := validateDrafts(drafts); err != nil {
		return nil, storeErr("create", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("create", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (id, title, description, is_completed, priority, category, due_date, created_at)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, storeErr("create", err)
	}
	defer stmt.Close()

	now := r.now()
	out := make([]Task, 0, len(drafts))
	for _, d := range drafts {
		t := Task{
			ID:          uuid.NewString(),
			Title:       d.Title,
			Description: d.Description,
			Priority:    Priority(d.Priority),
			Category:    d.Category,
			DueDate:     d.DueDate,
			CreatedAt:   now,
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Title, nullString(t.Description), string(t.Priority), t.Category,
			nullDate(t.DueDate), now.Format(sqliteTimeLayout),
		); err != nil {
			return nil, storeErr("create", err)
		}
		out = append(out, t)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("create", err)
	}
	return out, nil
}

func (r *SQLiteStore) ListAll(ctx context.Context) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, is_completed, priority, category, due_date, created_at
		FROM tasks
		ORDER BY created_at DESC, rowid ASC
	`)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		var (
			t       Task
			desc    sql.NullString
			due     sql.NullString
			prio    string
			created string
		)
		if err := rows.Scan(&t.ID, &t.Title, &desc, &t.IsCompleted, &prio, &t.Category, &due, &created); err != nil {
			return nil, storeErr("list", err)
		}
		t.Priority = Priority(prio)
		if desc.Valid {
			t.Description = &desc.String
		}
		if due.Valid {
			d, err := ParseDate(due.String)
			if err != nil {
				return nil, storeErr("list", fmt.Errorf("task %s: bad due_date %q: %w", t.ID, due.String, err))
			}
			t.DueDate = &d
		}
		ts, err := time.Parse(sqliteTimeLayout, created)
		if err != nil {
			return nil, storeErr("list", fmt.Errorf("task %s: bad created_at %q: %w", t.ID, created, err))
		}
		t.CreatedAt = ts
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}

func (r *SQLiteStore) UpdateCompletion(ctx context.Context, id string, completed bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET is_completed = ? WHERE id = ?`, completed, id)
	return storeErr("update", err)
}

func (r *SQLiteStore) DeleteOne(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return storeErr("delete", err)
}

func (r *SQLiteStore) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id IN (`+placeholders+`)`, args...)
	return storeErr("delete", err)
}

// ApplyMigrations ensures schema exists
func (r *SQLiteStore) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL CHECK (length(trim(title)) > 0),
	description TEXT,
	is_completed INTEGER NOT NULL DEFAULT 0,
	priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
	category TEXT NOT NULL DEFAULT 'Personal',
	due_date TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_created_at_idx ON tasks (created_at DESC);
	`)
	return err
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDate(d *Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
