package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/s1natex/zentask/internal/tasks"
)

// newTasksCommand drives the controller from the terminal against the
// configured store.
func newTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage tasks from the terminal",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Value: "all", Usage: "all, active or completed"},
				},
				Action: withController(runTasksList),
			},
			{
				Name:      "add",
				Usage:     "Add a task",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Value: "medium"},
					&cli.StringFlag{Name: "category", Value: tasks.DefaultCategory},
					&cli.StringFlag{Name: "due", Usage: "due date, YYYY-MM-DD"},
				},
				Action: withController(runTasksAdd),
			},
			{
				Name:      "done",
				Usage:     "Mark a task completed",
				ArgsUsage: "<task_id>",
				Action:    withController(runTasksSetCompleted(true)),
			},
			{
				Name:      "undo",
				Usage:     "Mark a task active again",
				ArgsUsage: "<task_id>",
				Action:    withController(runTasksSetCompleted(false)),
			},
			{
				Name:      "rm",
				Usage:     "Delete a task",
				ArgsUsage: "<task_id>",
				Action:    withController(runTasksDelete),
			},
			{
				Name:   "clear",
				Usage:  "Delete all completed tasks",
				Action: withController(runTasksClear),
			},
			{
				Name:      "plan",
				Usage:     "Create tasks for a goal with AI",
				ArgsUsage: "<goal>",
				Action:    withController(runTasksPlan),
			},
			{
				Name:      "breakdown",
				Usage:     "Suggest subtasks for a task with AI",
				ArgsUsage: "<task_id>",
				Action:    withController(runTasksBreakdown),
			},
			{
				Name:   "stats",
				Usage:  "Show completion stats",
				Action: withController(runTasksStats),
			},
		},
		DefaultCommand: "list",
	}
}

type controllerAction func(ctx context.Context, cmd *cli.Command, c *tasks.Controller, out io.Writer) error

func withController(fn controllerAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := newApp(ctx, cmd.String("config"), os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a.controller, os.Stdout)
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if v == "" {
		return "", fmt.Errorf("missing %s", name)
	}
	return v, nil
}

func runTasksList(_ context.Context, cmd *cli.Command, c *tasks.Controller, out io.Writer) error {
	f, err := tasks.ParseFilter(cmd.String("filter"))
	if err != nil {
		return err
	}
	return printTasks(out, c.Tasks(f))
}

func runTasksAdd(ctx context.Context, cmd *cli.Command, c *tasks.Controller, out io.Writer) error {
	title, err := requireArg(cmd, "title")
	if err != nil {
		return err
	}
	d := tasks.Draft{
		Title:    title,
		Priority: cmd.String("priority"),
		Category: cmd.String("category"),
	}
	if desc := cmd.String("description"); desc != "" {
		d.Description = &desc
	}
	if due := cmd.String("due"); due != "" {
		date, err := tasks.ParseDate(due)
		if err != nil {
			return fmt.Errorf("invalid --due %q: want YYYY-MM-DD", due)
		}
		d.DueDate = &date
	}

	t, err := c.Add(ctx, d)
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	fmt.Fprintf(out, "Created %s\n", t.ID)
	return nil
}

func runTasksSetCompleted(completed bool) controllerAction {
	return func(ctx context.Context, cmd *cli.Command, c *tasks.Controller, out io.Writer) error {
		id, err := requireArg(cmd, "task id")
		if err != nil {
			return err
		}
		t, err := c.Toggle(ctx, id, completed)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		fmt.Fprintf(out, "%s %s\n", statusLabel(t), t.Title)
		return nil
	}
}

func runTasksDelete(ctx context.Context, cmd *cli.Command, c *tasks.Controller, out io.Writer) error {
	id, err := requireArg(cmd, "task id")
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	fmt.Fprintf(out, "Deleted %s\n", id)
	return nil
}

func runTasksClear(ctx context.Context, _ *cli.Command, c *tasks.Controller, out io.Writer) error {
	n, err := c.ClearCompleted(ctx)
	if err != nil {
		return fmt.Errorf("clear completed: %w", err)
	}
	fmt.Fprintf(out, "Deleted %d completed task(s)\n", n)
	return nil
}

func runTasksPlan(ctx context.Context, cmd *cli.Command, c *tasks.Controller, out io.Writer) error {
	goal, err := requireArg(cmd, "goal")
	if err != nil {
		return err
	}
	created, err := c.PlanGoal(ctx, goal)
	if err != nil {
		return fmt.Errorf("plan goal: %w", err)
	}
	if len(created) == 0 {
		fmt.Fprintln(out, "Nothing suggested.")
		return nil
	}
	return printTasks(out, created)
}

func runTasksBreakdown(ctx context.Context, cmd *cli.Command, c *tasks.Controller, out io.Writer) error {
	id, err := requireArg(cmd, "task id")
	if err != nil {
		return err
	}
	subtasks, err := c.Breakdown(ctx, id)
	if errors.Is(err, tasks.ErrNotFound) {
		return fmt.Errorf("task %s not found", id)
	}
	if err != nil {
		return err
	}
	if len(subtasks) == 0 {
		fmt.Fprintln(out, "Nothing suggested.")
		return nil
	}
	for i, s := range subtasks {
		fmt.Fprintf(out, "%d. %s\n", i+1, s)
	}
	return nil
}

func runTasksStats(_ context.Context, _ *cli.Command, c *tasks.Controller, out io.Writer) error {
	s := c.Stats()
	fmt.Fprintf(out, "%d/%d completed (%d%%)\n", s.Completed, s.Total, s.Percent)
	return nil
}

func printTasks(out io.Writer, list []tasks.Task) error {
	if len(list) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tCATEGORY\tDUE\tTITLE")
	for _, t := range list {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			statusLabel(t),
			t.Priority,
			t.Category,
			due,
			t.Title,
		)
	}
	return w.Flush()
}

func statusLabel(t tasks.Task) string {
	if t.IsCompleted {
		return "done"
	}
	return "active"
}
