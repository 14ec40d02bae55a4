// Package suggest asks a generative model for subtask breakdowns and
// goal-driven task lists, and validates the structured answers.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/s1natex/zentask/internal/telemetry"
)

const (
	MaxSubtasks  = 5
	MaxGoalTasks = 5
)

// Generator returns raw model text for a prompt constrained by a JSON schema.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// Result carries the items of a fail-soft call. Items is empty whenever Err
// is set, so callers that only care about suggestions can ignore Err.
type Result[T any] struct {
	Items []T
	Err   error
}

func (r Result[T]) Failed() bool { return r.Err != nil }

// TaskSuggestion is one raw item of a goal expansion. Priority is passed
// through unvalidated; coercing it is the caller's job.
type TaskSuggestion struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

type Client struct {
	gen    Generator
	logger *slog.Logger
}

func NewClient(gen Generator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{gen: gen, logger: logger}
}

// ExpandIntoSubtasks asks for 3 to 5 actionable subtasks. Never fails: any
// transport, parse or schema problem yields an empty Result with Err set.
func (c *Client) ExpandIntoSubtasks(ctx context.Context, title, description string) Result[string] {
	ctx, span := otel.Tracer("suggest").Start(ctx, "suggest.subtasks")
	defer span.End()

	raw, err := c.generate(ctx, subtasksPrompt(title, description), subtasksSchema)
	var items []string
	if err == nil {
		items, err = parseSubtasks(raw)
	}
	return finish(c, span, "subtasks", items, err)
}

// ExpandGoalIntoTasks asks for up to 5 tasks serving goal. Same fail-soft
// contract as ExpandIntoSubtasks.
func (c *Client) ExpandGoalIntoTasks(ctx context.Context, goal string) Result[TaskSuggestion] {
	ctx, span := otel.Tracer("suggest").Start(ctx, "suggest.goal")
	defer span.End()

	raw, err := c.generate(ctx, goalPrompt(goal), goalSchema)
	var items []TaskSuggestion
	if err == nil {
		items, err = parseGoalTasks(raw)
	}
	return finish(c, span, "goal", items, err)
}

func (c *Client) generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if c.gen == nil {
		return "", classify(ErrDisabled)
	}
	raw, err := c.gen.GenerateJSON(ctx, prompt, schema)
	if err != nil {
		return "", classify(err)
	}
	return raw, nil
}

func finish[T any](c *Client, span trace.Span, kind string, items []T, err error) Result[T] {
	if err != nil {
		k := KindOf(err)
		c.logger.Warn("suggest_failed",
			slog.String("kind", kind),
			slog.String("error_kind", string(k)),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(k))
		telemetry.ObserveSuggestion(kind, string(k))
		return Result[T]{Items: []T{}, Err: err}
	}

	span.SetAttributes(attribute.Int("suggest.items", len(items)))
	if len(items) == 0 {
		telemetry.ObserveSuggestion(kind, "empty")
	} else {
		telemetry.ObserveSuggestion(kind, "ok")
	}
	return Result[T]{Items: items}
}

func parseSubtasks(raw string) ([]string, error) {
	var body struct {
		Subtasks *[]string `json:"subtasks"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &body); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: err}
	}
	if body.Subtasks == nil {
		return nil, &Error{Kind: KindSchema, Err: errors.New(`missing required field "subtasks"`)}
	}

	out := make([]string, 0, len(*body.Subtasks))
	for _, s := range *body.Subtasks {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == MaxSubtasks {
			break
		}
	}
	return out, nil
}

func parseGoalTasks(raw string) ([]TaskSuggestion, error) {
	var items []*TaskSuggestion
	if err := json.Unmarshal([]byte(stripFences(raw)), &items); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: err}
	}

	out := make([]TaskSuggestion, 0, len(items))
	for i, it := range items {
		if it == nil {
			return nil, &Error{Kind: KindSchema, Err: fmt.Errorf("item %d is null", i)}
		}
		it.Title = strings.TrimSpace(it.Title)
		if it.Title == "" {
			continue
		}
		it.Category = strings.TrimSpace(it.Category)
		out = append(out, *it)
		if len(out) == MaxGoalTasks {
			break
		}
	}
	return out, nil
}

// stripFences removes a surrounding ```json ... ``` block if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
