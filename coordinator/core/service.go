package core

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type Service struct {
	log   *slog.Logger
	store Store
	push  Pusher
	now   func() time.Time

	locks taskLocker
}

func NewService(log *slog.Logger, store Store, push Pusher) *Service {
	return &Service{
		log:   log,
		store: store,
		push:  push,
		now:   time.Now,
	}
}

// WithClock replaces the service clock. Used by tests and nothing else.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// taskLocker hands out one mutex per task id so racing status requests
// for the same task serialize their read-decide-write section.
type taskLocker struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func (l *taskLocker) forTask(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[int64]*sync.Mutex)
	}
	mu, ok := l.m[id]
	if !ok {
		mu = &sync.Mutex{}
		l.m[id] = mu
	}
	return mu
}

// Tasks

func (s *Service) CreateTask(ctx context.Context, actorID int64, t Task) (Task, error) {
	t.Description = strings.TrimSpace(t.Description)
	if t.Description == "" || t.ScheduledDate == "" {
		return Task{}, ErrInvalidArgs
	}
	if _, err := time.Parse(dateLayout, t.ScheduledDate); err != nil {
		return Task{}, ErrInvalidArgs
	}
	if t.TaskType == "" {
		t.TaskType = TypeTransport
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if !isValidTaskType(t.TaskType) || !isValidPriority(t.Priority) {
		return Task{}, ErrInvalidArgs
	}

	maxOrder, err := s.store.MaxSortOrder(ctx, t.ScheduledDate)
	if err != nil {
		return Task{}, err
	}
	t.Status = StatusPending
	t.SortOrder = maxOrder + 1
	t.CreatedBy = actorID
	t.CreatedAt = s.now()

	created, err := s.store.CreateTask(ctx, t)
	if err != nil {
		return Task{}, err
	}

	s.notifyNewTask(ctx, created)
	return created, nil
}

// notifyNewTask fans a "new task" notification out to the workers who may
// pick the task up: container pre-assignees when present, else the
// assignee, else every active field worker.
func (s *Service) notifyNewTask(ctx context.Context, t Task) {
	targets := make(map[int64]struct{})
	notifyAll := false

	switch {
	case len(t.Containers) > 0:
		for _, c := range t.Containers {
			if c.WorkerID != 0 {
				targets[c.WorkerID] = struct{}{}
			} else {
				notifyAll = true
			}
		}
	case t.AssignedTo != nil:
		targets[*t.AssignedTo] = struct{}{}
	default:
		notifyAll = true
	}

	var ids []int64
	if notifyAll {
		workers, err := s.store.ListWorkers(ctx, RoleDriver)
		if err != nil {
			s.log.Error("list workers for fan-out", "error", err)
			return
		}
		for _, w := range workers {
			ids = append(ids, w.ID)
		}
	} else {
		for id := range targets {
			ids = append(ids, id)
		}
	}

	s.notify(ctx, ids, "new_task", "Nowe zadanie", "Nowe zadanie: "+t.Description, t.ID)
}

func (s *Service) GetTask(ctx context.Context, id int64) (Task, error) {
	if id <= 0 {
		return Task{}, ErrInvalidArgs
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.Events, err = s.store.ListEvents(ctx, id); err != nil {
		return Task{}, err
	}
	if t.Participants, err = s.store.Participants(ctx, id); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *Service) ListTasks(ctx context.Context, f ListTasksFilter) ([]Task, error) {
	if f.Status != nil && !isValidStatus(*f.Status) {
		return nil, ErrInvalidArgs
	}
	if f.Date != "" {
		if _, err := time.Parse(dateLayout, f.Date); err != nil {
			return nil, ErrInvalidArgs
		}
	}

	tasks, err := s.store.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}

	for i := range tasks {
		parts, err := s.store.Participants(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Participants = parts

		if f.UserID == nil {
			continue
		}
		for _, p := range parts {
			if p.UserID != *f.UserID {
				continue
			}
			tasks[i].HasCompleted = p.State == ParticipantDonePart
			tasks[i].HasPaused = p.State == ParticipantPausedPart
		}
	}
	return tasks, nil
}

func (s *Service) UpdateTask(ctx context.Context, actorID int64, t Task) (Task, error) {
	t.Description = strings.TrimSpace(t.Description)
	if t.ID <= 0 || t.Description == "" || t.ScheduledDate == "" {
		return Task{}, ErrInvalidArgs
	}
	if !isValidTaskType(t.TaskType) || !isValidPriority(t.Priority) {
		return Task{}, ErrInvalidArgs
	}

	cur, err := s.store.GetTask(ctx, t.ID)
	if err != nil {
		return Task{}, err
	}
	if err := s.authorizeOwner(ctx, actorID, cur); err != nil {
		return Task{}, err
	}
	return s.store.UpdateTask(ctx, t)
}

func (s *Service) DeleteTask(ctx context.Context, actorID, id int64) error {
	if id <= 0 {
		return ErrInvalidArgs
	}
	cur, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, actorID, cur); err != nil {
		return err
	}
	return s.store.DeleteTask(ctx, id)
}

// authorizeOwner allows the task creator and admins through.
func (s *Service) authorizeOwner(ctx context.Context, actorID int64, t Task) error {
	if t.CreatedBy == actorID {
		return nil
	}
	w, err := s.store.GetWorker(ctx, actorID)
	if err != nil {
		return err
	}
	if w.Role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}

// ReorderTasks rewrites the manual ordering of the given tasks to match
// the slice order. When a reason is given it is logged against the first
// task so the change is visible in its history.
func (s *Service) ReorderTasks(ctx context.Context, actorID int64, taskIDs []int64, reason string) error {
	if len(taskIDs) == 0 {
		return ErrInvalidArgs
	}
	for i, id := range taskIDs {
		if err := s.store.SetSortOrder(ctx, id, i+1); err != nil {
			return err
		}
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		actor, err := s.store.GetWorker(ctx, actorID)
		if err != nil {
			return err
		}
		_, err = s.store.AppendEvent(ctx, TaskEvent{
			TaskID:    taskIDs[0],
			UserID:    actorID,
			Kind:      EventStatusChange,
			Message:   "Zmiana kolejności przez " + actor.Name + ": " + reason,
			CreatedAt: s.now(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// notify stores notification rows and pushes them, best effort. The actor
// who caused the change must already be excluded by the caller.
func (s *Service) notify(ctx context.Context, userIDs []int64, typ, title, message string, taskID int64) {
	if len(userIDs) == 0 {
		return
	}
	for _, uid := range userIDs {
		_, err := s.store.CreateNotification(ctx, Notification{
			UserID:    uid,
			TaskID:    taskID,
			Type:      typ,
			Title:     title,
			Message:   message,
			CreatedAt: s.now(),
		})
		if err != nil {
			s.log.Error("store notification", "user_id", uid, "task_id", taskID, "error", err)
		}
	}
	if s.push == nil {
		return
	}
	if err := s.push.Push(ctx, userIDs, title, message, taskID); err != nil {
		s.log.Error("push notification", "task_id", taskID, "error", err)
	}
}

func (s *Service) workerName(ctx context.Context, id int64) string {
	w, err := s.store.GetWorker(ctx, id)
	if err != nil {
		return "Kierowca"
	}
	return w.Name
}
