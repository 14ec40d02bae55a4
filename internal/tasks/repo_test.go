package tasks

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestInMemoryStore_CreateAndList(t *testing.T) {
	s := NewInMemoryStore()
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	old, err := s.Create(ctx, Draft{Title: "old", Priority: "low", Category: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Minute)
	fresh, err := s.Create(ctx, Draft{Title: "fresh", Priority: "high", Category: "Work"})
	if err != nil {
		t.Fatal(err)
	}

	if old[0].ID == "" || old[0].ID == fresh[0].ID {
		t.Fatalf("expected distinct ids, got %q and %q", old[0].ID, fresh[0].ID)
	}
	if old[0].IsCompleted || !old[0].CreatedAt.Equal(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected row %+v", old[0])
	}

	list, err := s.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Title != "fresh" || list[1].Title != "old" {
		t.Fatalf("expected newest first, got %v", ids(list))
	}
}

func TestInMemoryStore_RejectsInvalidRows(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, Draft{Title: "", Priority: "low"}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := s.Create(ctx, Draft{Title: "x", Priority: "urgent"}); !errors.Is(err, ErrBadPriority) {
		t.Fatalf("expected ErrBadPriority, got %v", err)
	}
	// a bad row rejects the whole batch
	if _, err := s.Create(ctx, Draft{Title: "ok", Priority: "low"}, Draft{Title: " ", Priority: "low"}); err == nil {
		t.Fatal("expected batch to fail")
	}
	if list, _ := s.ListAll(ctx); len(list) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(list))
	}
}

func TestInMemoryStore_UpdateAndDelete(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	created, _ := s.Create(ctx,
		Draft{Title: "a", Priority: "low", Category: "Work"},
		Draft{Title: "b", Priority: "low", Category: "Work"},
	)

	if err := s.UpdateCompletion(ctx, created[0].ID, true); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateCompletion(ctx, "nope", true); err != nil {
		t.Fatalf("update of unknown id should be a no-op, got %v", err)
	}

	if err := s.DeleteOne(ctx, created[1].ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteOne(ctx, created[1].ID); err != nil {
		t.Fatalf("second delete should succeed, got %v", err)
	}

	list, _ := s.ListAll(ctx)
	if len(list) != 1 || !list[0].IsCompleted {
		t.Fatalf("unexpected state %+v", list)
	}

	if err := s.DeleteMany(ctx, []string{created[0].ID, "ghost"}); err != nil {
		t.Fatal(err)
	}
	if list, _ := s.ListAll(ctx); len(list) != 0 {
		t.Fatalf("expected empty, got %d", len(list))
	}
}

func TestInMemoryStore_CanceledContext(t *testing.T) {
	s := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListAll(ctx)
	var se *StoreError
	if !errors.As(err, &se) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected StoreError wrapping context.Canceled, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, "memory", "")
	if err != nil || s == nil {
		t.Fatalf("memory: %v", err)
	}
	_ = closeFn()

	if _, _, err := Open(ctx, "mongo", ""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestInMemoryStore_BatchOrderSurvivesList(t *testing.T) {
	s := NewInMemoryStore()
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	_, _ = s.Create(ctx, Draft{Title: "old", Priority: "low", Category: "Work"})
	clock = clock.Add(time.Minute)
	batch, err := s.Create(ctx,
		Draft{Title: "a", Priority: "low", Category: "Goal"},
		Draft{Title: "b", Priority: "low", Category: "Goal"},
		Draft{Title: "c", Priority: "low", Category: "Goal"},
	)
	if err != nil {
		t.Fatal(err)
	}

	list, _ := s.ListAll(ctx)
	if len(list) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(list))
	}
	if !slices.Equal(ids(list[:3]), ids(batch)) || list[3].Title != "old" {
		t.Fatalf("expected batch in creation order before older rows, got %v", ids(list))
	}
}

func TestOpenPostgresUnreachable(t *testing.T) {
	_, _, err := Open(context.Background(), "postgres", "postgres://zentask@127.0.0.1:1/zentask?sslmode=disable&connect_timeout=2")
	if err == nil {
		t.Fatal("expected startup to fail when postgres is unreachable")
	}
}
