package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func newTempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	dsn, err := SQLiteFileDSN(dbPath)
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	repo, err := NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(dir)
	})
	if err := repo.ApplyMigrations(context.Background()); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repo
}

func TestSQLiteStore_CreateAndList(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, Draft{Title: "", Priority: "low"})
	if !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}

	clock := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	due, _ := ParseDate("2026-05-10")
	a, err := repo.Create(ctx, Draft{
		Title:       "first",
		Description: ptr("with notes"),
		Priority:    "high",
		Category:    "Work",
		DueDate:     &due,
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if len(a) != 1 || a[0].ID == "" || a[0].IsCompleted {
		t.Fatalf("bad first task: %+v", a)
	}

	clock = clock.Add(time.Second)
	b, err := repo.Create(ctx,
		Draft{Title: "second", Priority: "low", Category: "Personal"},
		Draft{Title: "third", Priority: "medium", Category: "Personal"},
	)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if len(b) != 2 || b[0].Title != "second" || b[1].Title != "third" {
		t.Fatalf("batch should come back in input order: %+v", b)
	}

	list, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(list))
	}
	if list[2].ID != a[0].ID {
		t.Fatalf("oldest task should be last: %v", ids(list))
	}

	got := list[2]
	if got.Description == nil || *got.Description != "with notes" {
		t.Errorf("description not stored: %v", got.Description)
	}
	if got.DueDate == nil || got.DueDate.String() != "2026-05-10" {
		t.Errorf("due date not stored: %v", got.DueDate)
	}
	if got.Priority != PriorityHigh || got.Category != "Work" {
		t.Errorf("unexpected row %+v", got)
	}
	if !got.CreatedAt.Equal(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at not round-tripped: %v", got.CreatedAt)
	}
	if list[0].Description != nil || list[0].DueDate != nil {
		t.Errorf("expected null description and due date, got %+v", list[0])
	}
}

func TestSQLiteStore_UpdateAndDelete(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	created, err := repo.Create(ctx,
		Draft{Title: "a", Priority: "low", Category: "Work"},
		Draft{Title: "b", Priority: "low", Category: "Work"},
		Draft{Title: "c", Priority: "low", Category: "Work"},
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.UpdateCompletion(ctx, created[0].ID, true); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteOne(ctx, created[1].ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteOne(ctx, created[1].ID); err != nil {
		t.Fatalf("deleting twice should succeed, got %v", err)
	}

	list, _ := repo.ListAll(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}
	for _, task := range list {
		if task.ID == created[0].ID && !task.IsCompleted {
			t.Errorf("completion not persisted")
		}
	}

	if err := repo.DeleteMany(ctx, nil); err != nil {
		t.Fatalf("empty delete should be a no-op, got %v", err)
	}
	if err := repo.DeleteMany(ctx, []string{created[0].ID, created[2].ID, "ghost"}); err != nil {
		t.Fatal(err)
	}
	if list, _ := repo.ListAll(ctx); len(list) != 0 {
		t.Fatalf("expected empty table, got %d", len(list))
	}
}

func TestSQLiteStore_BatchIsAtomic(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	_, err := repo.Create(ctx,
		Draft{Title: "ok", Priority: "low", Category: "Work"},
		Draft{Title: "bad", Priority: "urgent", Category: "Work"},
	)
	if !errors.Is(err, ErrBadPriority) {
		t.Fatalf("expected ErrBadPriority, got %v", err)
	}
	if list, _ := repo.ListAll(ctx); len(list) != 0 {
		t.Fatalf("no rows should be written, got %d", len(list))
	}
}

func TestSQLiteStore_BatchOrderSurvivesList(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	created, err := repo.Create(ctx,
		Draft{Title: "one", Priority: "low", Category: "Goal"},
		Draft{Title: "two", Priority: "low", Category: "Goal"},
		Draft{Title: "three", Priority: "low", Category: "Goal"},
	)
	if err != nil {
		t.Fatal(err)
	}
	list, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids(list), ids(created)) {
		t.Fatalf("expected creation order %v, got %v", ids(created), ids(list))
	}
}

func TestSQLiteStore_CorruptRowIsAnError(t *testing.T) {
	tests := map[string]string{
		"bad created_at": `INSERT INTO tasks (id, title, priority, category, created_at) VALUES ('x', 't', 'low', 'Work', 'yesterday')`,
		"bad due_date":   `INSERT INTO tasks (id, title, priority, category, due_date, created_at) VALUES ('x', 't', 'low', 'Work', '31/12/2026', '2026-01-01T00:00:00.000000000Z')`,
	}
	for name, insert := range tests {
		t.Run(name, func(t *testing.T) {
			repo := newTempDB(t)
			ctx := context.Background()
			if _, err := repo.db.ExecContext(ctx, insert); err != nil {
				t.Fatal(err)
			}

			list, err := repo.ListAll(ctx)
			var se *StoreError
			if !errors.As(err, &se) || se.Op != "list" {
				t.Fatalf("expected list StoreError, got %v (%d rows)", err, len(list))
			}
		})
	}
}
