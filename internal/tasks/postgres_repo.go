package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// PostgresStore talks to a hosted Postgres "tasks" table. The database
// assigns id, created_at and seq; seq orders rows that share created_at.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PostgresStore{db: db}, nil
}

func (r *PostgresStore) Close() error { return r.db.Close() }

func (r *PostgresStore) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Create sends the whole batch as one multi-row INSERT ... RETURNING via
// unnest, so the batch is a single statement.
func (r *PostgresStore) Create(ctx context.Context, drafts ...Draft) ([]Task, error) {
	if err := validateDrafts(drafts); err != nil {
		return nil, storeErr("create", err)
	}
	if len(drafts) == 0 {
		return []Task{}, nil
	}

	var (
		titles     = make([]string, len(drafts))
		descs      = make([]sql.NullString, len(drafts))
		priorities = make([]string, len(drafts))
		categories = make([]string, len(drafts))
		dues       = make([]sql.NullString, len(drafts))
	)
	for i, d := range drafts {
		titles[i] = d.Title
		descs[i] = nullString(d.Description)
		priorities[i] = d.Priority
		categories[i] = d.Category
		dues[i] = nullDate(d.DueDate)
	}

	rows, err := r.db.QueryContext(ctx, `
		INSERT INTO tasks (title, description, is_completed, priority, category, due_date, created_at)
		SELECT t.title, t.description, false, t.priority, t.category, t.due_date::date, now()
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[])
			WITH ORDINALITY AS t(title, description, priority, category, due_date, ord)
		ORDER BY t.ord
		RETURNING id, title, description, is_completed, priority, category, due_date, created_at, seq
	`, pq.Array(titles), pq.Array(descs), pq.Array(priorities), pq.Array(categories), pq.Array(dues))
	if err != nil {
		return nil, storeErr("create", err)
	}
	defer rows.Close()

	out, err := scanPostgresTasks(rows)
	if err != nil {
		return nil, storeErr("create", err)
	}
	return out, nil
}

func (r *PostgresStore) ListAll(ctx context.Context) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, is_completed, priority, category, due_date, created_at, seq
		FROM tasks
		ORDER BY created_at DESC, seq ASC
	`)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	out, err := scanPostgresTasks(rows)
	if err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}

func (r *PostgresStore) UpdateCompletion(ctx context.Context, id string, completed bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET is_completed = $1 WHERE id::text = $2`, completed, id)
	return storeErr("update", err)
}

func (r *PostgresStore) DeleteOne(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id::text = $1`, id)
	return storeErr("delete", err)
}

func (r *PostgresStore) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id::text = ANY($1)`, pq.Array(ids))
	return storeErr("delete", err)
}

// ApplyMigrations ensures schema exists
func (r *PostgresStore) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title TEXT NOT NULL CHECK (length(btrim(title)) > 0),
	description TEXT,
	is_completed BOOLEAN NOT NULL DEFAULT false,
	priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
	category TEXT NOT NULL DEFAULT 'Personal',
	due_date DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	seq BIGSERIAL NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_created_at_idx ON tasks (created_at DESC, seq);
	`)
	return err
}

func scanPostgresTasks(rows *sql.Rows) ([]Task, error) {
	out := []Task{}
	for rows.Next() {
		var (
			t    Task
			desc sql.NullString
			due  sql.NullTime
			prio string
			seq  int64
		)
		if err := rows.Scan(&t.ID, &t.Title, &desc, &t.IsCompleted, &prio, &t.Category, &due, &t.CreatedAt, &seq); err != nil {
			return nil, err
		}
		t.Priority = Priority(prio)
		if desc.Valid {
			t.Description = &desc.String
		}
		if due.Valid {
			t.DueDate = &Date{Time: due.Time.UTC()}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
