package tasks

import (
	"fmt"
	"math"
	"strings"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter accepts all|active|completed; empty means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.IsCompleted
	case FilterCompleted:
		return t.IsCompleted
	default:
		return true
	}
}

func FilterTasks(list []Task, f Filter) []Task {
	out := make([]Task, 0, len(list))
	for _, t := range list {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

// ComputeStats counts completion; Percent is 0 for an empty list.
func ComputeStats(list []Task) Stats {
	s := Stats{Total: len(list)}
	for _, t := range list {
		if t.IsCompleted {
			s.Completed++
		}
	}
	if s.Total > 0 {
		s.Percent = int(math.Round(100 * float64(s.Completed) / float64(s.Total)))
	}
	return s
}
