package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrNotFound      = errors.New("task not found")
	ErrBadPriority   = errors.New("priority must be low, medium or high")
)

// StoreError wraps any failure coming back from the persistence boundary.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Store is the client for the remote "tasks" table. Last write wins; there
// are no transactions or concurrency tokens across calls.
type Store interface {
	// ListAll returns every task, newest created_at first. Rows of one batch
	// share created_at and keep the order they were created in.
	ListAll(ctx context.Context) ([]Task, error)
	// Create inserts the drafts with is_completed=false and returns the
	// canonical rows in the order given.
	Create(ctx context.Context, drafts ...Draft) ([]Task, error)
	// UpdateCompletion patches is_completed only.
	UpdateCompletion(ctx context.Context, id string, completed bool) error
	// DeleteOne and DeleteMany ignore ids that do not exist.
	DeleteOne(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

// validateDrafts mirrors the table constraints: non-empty title and a
// priority inside the enum.
func validateDrafts(drafts []Draft) error {
	for _, d := range drafts {
		if strings.TrimSpace(d.Title) == "" {
			return ErrTitleRequired
		}
		if !Priority(d.Priority).Valid() {
			return ErrBadPriority
		}
	}
	return nil
}

type InMemoryStore struct {
	mu    sync.Mutex
	seq   int64
	store map[string]memRow
	now   func() time.Time
}

type memRow struct {
	seq  int64
	task Task
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		store: make(map[string]memRow),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryStore) Create(ctx context.Context, drafts ...Draft) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("create", err)
	}
	if err := validateDrafts(drafts); err != nil {
		return nil, storeErr("create", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]Task, 0, len(drafts))
	for _, d := range drafts {
		r.seq++
		t := Task{
			ID:          uuid.NewString(),
			Title:       d.Title,
			Description: d.Description,
			IsCompleted: false,
			Priority:    Priority(d.Priority),
			Category:    d.Category,
			DueDate:     d.DueDate,
			CreatedAt:   now,
		}
		r.store[t.ID] = memRow{seq: r.seq, task: t}
		out = append(out, t)
	}
	return out, nil
}

func (r *InMemoryStore) ListAll(ctx context.Context) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]memRow, 0, len(r.store))
	for _, row := range r.store {
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b memRow) int {
		if c := b.task.CreatedAt.Compare(a.task.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]Task, len(rows))
	for i, row := range rows {
		out[i] = row.task
	}
	return out, nil
}

func (r *InMemoryStore) UpdateCompletion(ctx context.Context, id string, completed bool) error {
	if err := ctx.Err(); err != nil {
		return storeErr("update", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.store[id]
	if !ok {
		// update-by-filter matching nothing is not a failure
		return nil
	}
	row.task.IsCompleted = completed
	r.store[id] = row
	return nil
}

func (r *InMemoryStore) DeleteOne(ctx context.Context, id string) error {
	return r.DeleteMany(ctx, []string{id})
}

func (r *InMemoryStore) DeleteMany(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return storeErr("delete", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.store, id)
	}
	return nil
}
