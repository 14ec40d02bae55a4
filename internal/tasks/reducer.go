package tasks

// Event is a confirmed change coming back from the store. Reduce folds it
// into the in-memory list.
type Event interface {
	isEvent()
}

// Loaded replaces the list with a fresh listAll result.
type Loaded struct{ Tasks []Task }

// Created prepends canonical tasks, keeping their order.
type Created struct{ Tasks []Task }

// CompletionSet patches is_completed on the task with ID.
type CompletionSet struct {
	ID        string
	Completed bool
}

// Removed drops every task whose id is in IDs.
type Removed struct{ IDs []string }

func (Loaded) isEvent()        {}
func (Created) isEvent()       {}
func (CompletionSet) isEvent() {}
func (Removed) isEvent()       {}

// Reduce returns the list after ev. The input slice is never modified.
func Reduce(list []Task, ev Event) []Task {
	switch ev := ev.(type) {
	case Loaded:
		return append([]Task{}, ev.Tasks...)

	case Created:
		out := make([]Task, 0, len(ev.Tasks)+len(list))
		out = append(out, ev.Tasks...)
		return append(out, list...)

	case CompletionSet:
		out := make([]Task, len(list))
		for i, t := range list {
			if t.ID == ev.ID {
				t.IsCompleted = ev.Completed
			}
			out[i] = t
		}
		return out

	case Removed:
		drop := make(map[string]struct{}, len(ev.IDs))
		for _, id := range ev.IDs {
			drop[id] = struct{}{}
		}
		out := make([]Task, 0, len(list))
		for _, t := range list {
			if _, ok := drop[t.ID]; !ok {
				out = append(out, t)
			}
		}
		return out

	default:
		return append([]Task{}, list...)
	}
}
