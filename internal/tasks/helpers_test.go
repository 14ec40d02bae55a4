package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/s1natex/zentask/internal/suggest"
)

var errInjected = errors.New("injected failure")

// flakyStore wraps an InMemoryStore and fails the ops listed in failOn.
type flakyStore struct {
	*InMemoryStore

	mu     sync.Mutex
	failOn map[string]bool
	calls  map[string]int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{
		InMemoryStore: NewInMemoryStore(),
		failOn:        map[string]bool{},
		calls:         map[string]int{},
	}
}

func (s *flakyStore) fail(op string) { s.mu.Lock(); s.failOn[op] = true; s.mu.Unlock() }

func (s *flakyStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *flakyStore) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if s.failOn[op] {
		return &StoreError{Op: op, Err: errInjected}
	}
	return nil
}

func (s *flakyStore) ListAll(ctx context.Context) ([]Task, error) {
	if err := s.enter("list"); err != nil {
		return nil, err
	}
	return s.InMemoryStore.ListAll(ctx)
}

func (s *flakyStore) Create(ctx context.Context, drafts ...Draft) ([]Task, error) {
	if err := s.enter("create"); err != nil {
		return nil, err
	}
	return s.InMemoryStore.Create(ctx, drafts...)
}

func (s *flakyStore) UpdateCompletion(ctx context.Context, id string, completed bool) error {
	if err := s.enter("update"); err != nil {
		return err
	}
	return s.InMemoryStore.UpdateCompletion(ctx, id, completed)
}

func (s *flakyStore) DeleteOne(ctx context.Context, id string) error {
	if err := s.enter("delete"); err != nil {
		return err
	}
	return s.InMemoryStore.DeleteOne(ctx, id)
}

func (s *flakyStore) DeleteMany(ctx context.Context, ids []string) error {
	if err := s.enter("delete_many"); err != nil {
		return err
	}
	return s.InMemoryStore.DeleteMany(ctx, ids)
}

// stubSuggester returns canned AI results and records the calls it got.
type stubSuggester struct {
	mu        sync.Mutex
	subtasks  suggest.Result[string]
	goalTasks suggest.Result[suggest.TaskSuggestion]
	goals     []string
	subCalls  int
}

func (s *stubSuggester) ExpandIntoSubtasks(_ context.Context, _, _ string) suggest.Result[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subCalls++
	return s.subtasks
}

func (s *stubSuggester) ExpandGoalIntoTasks(_ context.Context, goal string) suggest.Result[suggest.TaskSuggestion] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, goal)
	return s.goalTasks
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }
