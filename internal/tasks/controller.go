package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/s1natex/zentask/internal/suggest"
)

// Suggester is the AI boundary the controller needs.
type Suggester interface {
	ExpandIntoSubtasks(ctx context.Context, title, description string) suggest.Result[string]
	ExpandGoalIntoTasks(ctx context.Context, goal string) suggest.Result[suggest.TaskSuggestion]
}

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

const (
	goalCategory            = "Goal"
	goalDescriptionTemplate = "AI Suggested task for: %s"
)

// Controller owns the in-memory task list. Every mutation is confirmed by
// the store first and then folded in with Reduce; nothing is applied
// optimistically, so a failed write leaves the list untouched.
type Controller struct {
	store  Store
	ai     Suggester
	logger *slog.Logger

	mu       sync.RWMutex
	phase    Phase
	list     []Task
	subtasks map[string][]string
}

func NewController(store Store, ai Suggester, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		ai:       ai,
		logger:   logger,
		phase:    PhaseLoading,
		list:     []Task{},
		subtasks: make(map[string][]string),
	}
}

// Load hydrates the list from the store. A failed read is logged and
// treated as an empty list; the controller ends up Ready either way.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	c.phase = PhaseLoading
	c.mu.Unlock()

	fetched, err := c.store.ListAll(ctx)
	if err != nil {
		c.logger.Error("tasks_load_failed", slog.String("error", err.Error()))
		fetched = []Task{}
	}

	c.mu.Lock()
	c.list = Reduce(c.list, Loaded{Tasks: fetched})
	c.phase = PhaseReady
	c.mu.Unlock()
}

func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Tasks returns the filtered view of the current list.
func (c *Controller) Tasks(f Filter) []Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return FilterTasks(c.list, f)
}

func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ComputeStats(c.list)
}

func (c *Controller) Get(id string) (Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.list {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Add persists one draft and prepends the canonical task once confirmed.
func (c *Controller) Add(ctx context.Context, d Draft) (Task, error) {
	created, err := c.persist(ctx, []Draft{d})
	if err != nil {
		return Task{}, err
	}
	if len(created) == 0 {
		return Task{}, &StoreError{Op: "create", Err: fmt.Errorf("store returned no rows")}
	}
	return created[0], nil
}

// Toggle sets is_completed on id. The local task changes only after the
// store accepts the patch.
func (c *Controller) Toggle(ctx context.Context, id string, completed bool) (Task, error) {
	if _, ok := c.Get(id); !ok {
		return Task{}, ErrNotFound
	}
	if err := c.store.UpdateCompletion(ctx, id, completed); err != nil {
		c.logger.Warn("task_update_failed", slog.String("id", id), slog.String("error", err.Error()))
		return Task{}, err
	}

	c.mu.Lock()
	c.list = Reduce(c.list, CompletionSet{ID: id, Completed: completed})
	c.mu.Unlock()

	t, _ := c.Get(id)
	return t, nil
}

// Delete removes id. Deleting an unknown id succeeds and changes nothing.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteOne(ctx, id); err != nil {
		c.logger.Warn("task_delete_failed", slog.String("id", id), slog.String("error", err.Error()))
		return err
	}
	c.removeLocal([]string{id})
	return nil
}

// ClearCompleted deletes every completed task in one call and returns how
// many were removed. With nothing completed it does not touch the store.
func (c *Controller) ClearCompleted(ctx context.Context) (int, error) {
	done := c.Tasks(FilterCompleted)
	if len(done) == 0 {
		return 0, nil
	}
	ids := make([]string, len(done))
	for i, t := range done {
		ids[i] = t.ID
	}
	if err := c.store.DeleteMany(ctx, ids); err != nil {
		c.logger.Warn("task_clear_failed", slog.Int("count", len(ids)), slog.String("error", err.Error()))
		return 0, err
	}
	c.removeLocal(ids)
	return len(ids), nil
}

// PlanGoal turns AI suggestions for goal into tasks, persisted in one batch
// and prepended in suggestion order. A blank goal or an empty/failed AI
// answer creates nothing and is not an error.
func (c *Controller) PlanGoal(ctx context.Context, goal string) ([]Task, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" || c.ai == nil {
		return []Task{}, nil
	}

	res := c.ai.ExpandGoalIntoTasks(ctx, goal)
	if res.Failed() || len(res.Items) == 0 {
		return []Task{}, nil
	}

	drafts := make([]Draft, 0, len(res.Items))
	for _, s := range res.Items {
		category := s.Category
		if strings.TrimSpace(category) == "" {
			category = goalCategory
		}
		desc := fmt.Sprintf(goalDescriptionTemplate, goal)
		drafts = append(drafts, Draft{
			Title:       s.Title,
			Description: &desc,
			Priority:    s.Priority,
			Category:    category,
		})
	}
	return c.persist(ctx, drafts)
}

// Breakdown returns AI subtasks for the task id. A non-empty answer is
// remembered until the task is deleted; an empty one is retried next time.
func (c *Controller) Breakdown(ctx context.Context, id string) ([]string, error) {
	t, ok := c.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	c.mu.RLock()
	cached, hit := c.subtasks[id]
	c.mu.RUnlock()
	if hit {
		return append([]string{}, cached...), nil
	}
	if c.ai == nil {
		return []string{}, nil
	}

	desc := ""
	if t.Description != nil {
		desc = *t.Description
	}
	res := c.ai.ExpandIntoSubtasks(ctx, t.Title, desc)
	if !res.Failed() && len(res.Items) > 0 {
		c.mu.Lock()
		c.subtasks[id] = append([]string{}, res.Items...)
		c.mu.Unlock()
	}
	return res.Items, nil
}

// persist normalizes drafts, sends them as one create and prepends the
// returned rows.
func (c *Controller) persist(ctx context.Context, drafts []Draft) ([]Task, error) {
	normalized := make([]Draft, 0, len(drafts))
	for _, d := range drafts {
		n, err := d.Normalize()
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, n)
	}

	created, err := c.store.Create(ctx, normalized...)
	if err != nil {
		c.logger.Warn("task_create_failed", slog.Int("count", len(normalized)), slog.String("error", err.Error()))
		return nil, err
	}

	c.mu.Lock()
	c.list = Reduce(c.list, Created{Tasks: created})
	c.mu.Unlock()

	c.logger.Info("tasks_created", slog.Int("count", len(created)))
	return created, nil
}

func (c *Controller) removeLocal(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = Reduce(c.list, Removed{IDs: ids})
	for _, id := range ids {
		delete(c.subtasks, id)
	}
}
