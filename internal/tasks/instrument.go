package tasks

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/s1natex/zentask/internal/telemetry"
)

// Instrument wraps s so every call gets a span and store metrics.
func Instrument(s Store) Store {
	return &instrumentedStore{next: s, tracer: otel.Tracer("tasks.store")}
}

type instrumentedStore struct {
	next   Store
	tracer trace.Tracer
}

func (s *instrumentedStore) observe(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	telemetry.ObserveStore(op, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	}
	return err
}

func (s *instrumentedStore) ListAll(ctx context.Context) ([]Task, error) {
	var out []Task
	err := s.observe(ctx, "list", nil, func(ctx context.Context) error {
		var err error
		out, err = s.next.ListAll(ctx)
		return err
	})
	return out, err
}

func (s *instrumentedStore) Create(ctx context.Context, drafts ...Draft) ([]Task, error) {
	var out []Task
	attrs := []attribute.KeyValue{attribute.Int("tasks.count", len(drafts))}
	err := s.observe(ctx, "create", attrs, func(ctx context.Context) error {
		var err error
		out, err = s.next.Create(ctx, drafts...)
		return err
	})
	return out, err
}

func (s *instrumentedStore) UpdateCompletion(ctx context.Context, id string, completed bool) error {
	attrs := []attribute.KeyValue{attribute.String("task.id", id), attribute.Bool("task.is_completed", completed)}
	return s.observe(ctx, "update", attrs, func(ctx context.Context) error {
		return s.next.UpdateCompletion(ctx, id, completed)
	})
}

func (s *instrumentedStore) DeleteOne(ctx context.Context, id string) error {
	attrs := []attribute.KeyValue{attribute.String("task.id", id)}
	return s.observe(ctx, "delete", attrs, func(ctx context.Context) error {
		return s.next.DeleteOne(ctx, id)
	})
}

func (s *instrumentedStore) DeleteMany(ctx context.Context, ids []string) error {
	attrs := []attribute.KeyValue{attribute.Int("tasks.count", len(ids))}
	return s.observe(ctx, "delete_many", attrs, func(ctx context.Context) error {
		return s.next.DeleteMany(ctx, ids)
	})
}
