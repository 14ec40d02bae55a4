package tasks

import (
	"slices"
	"testing"
)

func ids(list []Task) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}

func TestReduce(t *testing.T) {
	base := []Task{{ID: "a"}, {ID: "b", IsCompleted: true}, {ID: "c"}}

	t.Run("loaded replaces", func(t *testing.T) {
		got := Reduce(base, Loaded{Tasks: []Task{{ID: "x"}}})
		if !slices.Equal(ids(got), []string{"x"}) {
			t.Fatalf("got %v", ids(got))
		}
	})

	t.Run("created prepends in order", func(t *testing.T) {
		got := Reduce(base, Created{Tasks: []Task{{ID: "n1"}, {ID: "n2"}}})
		if !slices.Equal(ids(got), []string{"n1", "n2", "a", "b", "c"}) {
			t.Fatalf("got %v", ids(got))
		}
	})

	t.Run("completion set patches one task", func(t *testing.T) {
		got := Reduce(base, CompletionSet{ID: "a", Completed: true})
		if !got[0].IsCompleted || got[2].IsCompleted || !got[1].IsCompleted {
			t.Fatalf("unexpected flags %+v", got)
		}
	})

	t.Run("completion set on unknown id is a no-op", func(t *testing.T) {
		got := Reduce(base, CompletionSet{ID: "zzz", Completed: true})
		if !slices.Equal(got, base) {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("removed filters ids", func(t *testing.T) {
		got := Reduce(base, Removed{IDs: []string{"b", "missing"}})
		if !slices.Equal(ids(got), []string{"a", "c"}) {
			t.Fatalf("got %v", ids(got))
		}
	})

	if base[0].IsCompleted || len(base) != 3 {
		t.Fatalf("input slice was mutated: %+v", base)
	}
}
