package tests

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hemprojects/transport/coordinator/core"
)

type fakeStore struct {
	mu sync.RWMutex

	nextTaskID  int64
	nextEventID int64
	nextNotifID int64

	tasks         map[int64]core.Task
	participants  map[int64][]core.Participant
	events        []core.TaskEvent
	notifications []core.Notification
	workers       map[int64]core.Worker
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextTaskID:   1,
		nextEventID:  1,
		nextNotifID:  1,
		tasks:        make(map[int64]core.Task),
		participants: make(map[int64][]core.Participant),
		workers:      make(map[int64]core.Worker),
	}
}

func cloneTask(t core.Task) core.Task {
	out := t
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		out.AssignedTo = &id
	}
	out.Participants = nil
	out.Events = nil
	return out
}

func (db *fakeStore) addWorker(w core.Worker) core.Worker {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.workers[w.ID] = w
	return w
}

func (db *fakeStore) Ping(context.Context) error {
	return nil
}

// Tasks

func (db *fakeStore) CreateTask(_ context.Context, t core.Task) (core.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t.ID = db.nextTaskID
	db.nextTaskID++
	db.tasks[t.ID] = cloneTask(t)
	return cloneTask(t), nil
}

func (db *fakeStore) GetTask(_ context.Context, id int64) (core.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tasks[id]
	if !ok {
		return core.Task{}, core.ErrNotFound
	}
	return cloneTask(t), nil
}

func (db *fakeStore) ListTasks(_ context.Context, f core.ListTasksFilter) ([]core.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []core.Task
	for _, t := range db.tasks {
		if f.Date != "" && t.ScheduledDate != f.Date {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (db *fakeStore) UpdateTask(_ context.Context, t core.Task) (core.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, ok := db.tasks[t.ID]
	if !ok {
		return core.Task{}, core.ErrNotFound
	}
	t.Status = cur.Status
	t.SortOrder = cur.SortOrder
	t.CreatedBy = cur.CreatedBy
	t.CreatedAt = cur.CreatedAt
	t.StartedAt = cur.StartedAt
	t.PausedAt = cur.PausedAt
	t.CompletedAt = cur.CompletedAt
	t.CarriedOver = cur.CarriedOver
	db.tasks[t.ID] = cloneTask(t)
	return cloneTask(t), nil
}

func (db *fakeStore) DeleteTask(_ context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[id]; !ok {
		return core.ErrNotFound
	}
	delete(db.tasks, id)
	delete(db.participants, id)

	kept := db.events[:0]
	for _, e := range db.events {
		if e.TaskID != id {
			kept = append(kept, e)
		}
	}
	db.events = kept
	return nil
}

func (db *fakeStore) MaxSortOrder(_ context.Context, date string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	max := 0
	for _, t := range db.tasks {
		if t.ScheduledDate == date && t.SortOrder > max {
			max = t.SortOrder
		}
	}
	return max, nil
}

func (db *fakeStore) SetSortOrder(_ context.Context, id int64, order int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tasks[id]
	if !ok {
		return core.ErrNotFound
	}
	t.SortOrder = order
	db.tasks[id] = t
	return nil
}

func (db *fakeStore) ApplyStatus(_ context.Context, id int64, u core.StatusUpdate) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tasks[id]
	if !ok {
		return core.ErrNotFound
	}
	t.Status = u.Status
	if u.StartedAt != nil {
		at := *u.StartedAt
		t.StartedAt = &at
	}
	if u.PausedAt != nil {
		at := *u.PausedAt
		t.PausedAt = &at
	}
	if u.CompletedAt != nil {
		at := *u.CompletedAt
		t.CompletedAt = &at
	}
	if u.AssignTo != nil {
		id := *u.AssignTo
		t.AssignedTo = &id
	}
	db.tasks[id] = t
	return nil
}

func (db *fakeStore) RescheduleTask(_ context.Context, id int64, date string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tasks[id]
	if !ok {
		return core.ErrNotFound
	}
	t.ScheduledDate = date
	t.CarriedOver = true
	t.SortOrder = 0
	db.tasks[id] = t
	return nil
}

// Participants

func (db *fakeStore) AddParticipant(_ context.Context, taskID, userID int64, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[taskID]; !ok {
		return core.ErrNotFound
	}
	for _, p := range db.participants[taskID] {
		if p.UserID == userID {
			return nil
		}
	}
	db.participants[taskID] = append(db.participants[taskID], core.Participant{
		TaskID:   taskID,
		UserID:   userID,
		State:    core.ParticipantActive,
		JoinedAt: at,
	})
	return nil
}

func (db *fakeStore) Participants(_ context.Context, taskID int64) ([]core.Participant, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]core.Participant, len(db.participants[taskID]))
	copy(out, db.participants[taskID])
	return out, nil
}

func (db *fakeStore) SetParticipantState(_ context.Context, taskID, userID int64, st core.ParticipantState, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	list := db.participants[taskID]
	for i := range list {
		if list[i].UserID == userID {
			list[i].State = st
			changed := at
			list[i].StateChangedAt = &changed
			return nil
		}
	}
	return core.ErrNotFound
}

// Events

func (db *fakeStore) AppendEvent(_ context.Context, e core.TaskEvent) (core.TaskEvent, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[e.TaskID]; !ok {
		return core.TaskEvent{}, core.ErrNotFound
	}
	e.ID = db.nextEventID
	db.nextEventID++
	db.events = append(db.events, e)
	return e, nil
}

func (db *fakeStore) ListEvents(_ context.Context, taskID int64) ([]core.TaskEvent, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []core.TaskEvent
	for _, e := range db.events {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (db *fakeStore) ClearStatusEvents(_ context.Context, taskID, userID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	kept := db.events[:0]
	for _, e := range db.events {
		if e.TaskID == taskID && e.UserID == userID && e.Kind == core.EventStatusChange {
			continue
		}
		kept = append(kept, e)
	}
	db.events = kept
	return nil
}

// Notifications

func (db *fakeStore) CreateNotification(_ context.Context, n core.Notification) (core.Notification, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	n.ID = db.nextNotifID
	db.nextNotifID++
	db.notifications = append(db.notifications, n)
	return n, nil
}

func (db *fakeStore) ListNotifications(_ context.Context, userID int64, limit int) ([]core.Notification, int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []core.Notification
	unread := 0
	for _, n := range db.notifications {
		if n.UserID != userID {
			continue
		}
		if !n.IsRead {
			unread++
		}
		if len(out) < limit {
			out = append(out, n)
		}
	}
	return out, unread, nil
}

func (db *fakeStore) MarkNotificationRead(_ context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.notifications {
		if db.notifications[i].ID == id {
			db.notifications[i].IsRead = true
			return nil
		}
	}
	return core.ErrNotFound
}

func (db *fakeStore) MarkAllNotificationsRead(_ context.Context, userID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.notifications {
		if db.notifications[i].UserID == userID {
			db.notifications[i].IsRead = true
		}
	}
	return nil
}

func (db *fakeStore) DeleteReadNotifications(_ context.Context, userID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	kept := db.notifications[:0]
	for _, n := range db.notifications {
		if n.UserID == userID && n.IsRead {
			continue
		}
		kept = append(kept, n)
	}
	db.notifications = kept
	return nil
}

// Workers

func (db *fakeStore) GetWorker(_ context.Context, id int64) (core.Worker, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	w, ok := db.workers[id]
	if !ok {
		return core.Worker{}, core.ErrNotFound
	}
	return w, nil
}

func (db *fakeStore) ListWorkers(_ context.Context, role string) ([]core.Worker, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []core.Worker
	for _, w := range db.workers {
		if w.Role == role && w.Active {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Reporting and rollover scans

func (db *fakeStore) WorkerTasks(_ context.Context, workerID int64, p core.Period) ([]core.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []core.Task
	for _, t := range db.tasks {
		if t.StartedAt == nil || !p.Contains(t.ScheduledDate) {
			continue
		}
		mine := t.AssignedTo != nil && *t.AssignedTo == workerID
		for _, part := range db.participants[t.ID] {
			if part.UserID == workerID {
				mine = true
			}
		}
		if mine {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(*out[j].StartedAt) })
	return out, nil
}

func (db *fakeStore) WorkerDelays(_ context.Context, workerID int64, p core.Period) ([]core.TaskEvent, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []core.TaskEvent
	for _, e := range db.events {
		if e.UserID != workerID || e.Kind != core.EventDelay {
			continue
		}
		t, ok := db.tasks[e.TaskID]
		if !ok || !p.Contains(t.ScheduledDate) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *fakeStore) TasksInProgressOn(_ context.Context, date string) ([]core.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []core.Task
	for _, t := range db.tasks {
		if t.ScheduledDate == date && t.Status == core.StatusInProgress {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (db *fakeStore) TasksUnresolvedThrough(_ context.Context, date string) ([]core.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []core.Task
	for _, t := range db.tasks {
		if t.ScheduledDate > date {
			continue
		}
		if t.Status == core.StatusPending || t.Status == core.StatusPaused {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// recordingPusher captures push fan-out for assertions.
type recordingPusher struct {
	mu     sync.Mutex
	pushes []pushRecord
}

type pushRecord struct {
	UserIDs []int64
	Title   string
	TaskID  int64
}

func (p *recordingPusher) Push(_ context.Context, userIDs []int64, title, _ string, taskID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushRecord{UserIDs: userIDs, Title: title, TaskID: taskID})
	return nil
}
