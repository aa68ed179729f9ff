package state

import (
	"reflect"
	"sync"

	"github.com/hemprojects/transport/coordinator/core"
)

// Store is the client's day-keyed shadow of the server's task list. It is
// provisional by definition: optimistic mutations write into it, and a
// confirmed refresh replaces a day wholesale. Stale optimistic entries
// are never hand-merged.
type Store struct {
	mu   sync.RWMutex
	days map[string][]core.Task
}

func NewStore() *Store {
	return &Store{days: make(map[string][]core.Task)}
}

// Tasks returns a copy of the cached list for the date.
func (s *Store) Tasks(date string) []core.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks, ok := s.days[date]
	if !ok {
		return nil
	}
	out := make([]core.Task, len(tasks))
	copy(out, tasks)
	return out
}

// Replace installs a confirmed refresh for the date and reports whether
// the payload actually differs from what was cached, so callers know if a
// re-render is needed. Whole-payload equality keeps reconciliation simple.
func (s *Store) Replace(date string, tasks []core.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reflect.DeepEqual(s.days[date], tasks) {
		return false
	}
	s.days[date] = tasks
	return true
}

// cloneTasks duplicates a day's list including the per-task slices and
// pointer fields, so the snapshot stays intact while the live entries
// are edited in place.
func cloneTasks(tasks []core.Task) []core.Task {
	if tasks == nil {
		return nil
	}
	out := make([]core.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		out[i].Containers = append([]core.Container(nil), out[i].Containers...)
		out[i].Participants = append([]core.Participant(nil), out[i].Participants...)
		out[i].Events = append([]core.TaskEvent(nil), out[i].Events...)
		if out[i].AssignedTo != nil {
			v := *out[i].AssignedTo
			out[i].AssignedTo = &v
		}
		if out[i].StartedAt != nil {
			v := *out[i].StartedAt
			out[i].StartedAt = &v
		}
		if out[i].PausedAt != nil {
			v := *out[i].PausedAt
			out[i].PausedAt = &v
		}
		if out[i].CompletedAt != nil {
			v := *out[i].CompletedAt
			out[i].CompletedAt = &v
		}
	}
	return out
}

// Mutate runs an optimistic in-place edit against every cached task for
// the date that matches taskID. It returns a revert function restoring
// the day's previous contents, including nested slices the edit may
// have touched.
func (s *Store) Mutate(date string, taskID int64, fn func(*core.Task)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := cloneTasks(s.days[date])

	tasks := s.days[date]
	for i := range tasks {
		if tasks[i].ID == taskID {
			fn(&tasks[i])
		}
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.days[date] = prev
	}
}

// Drop clears the cached day entirely.
func (s *Store) Drop(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.days, date)
}
