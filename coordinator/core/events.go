package core

import (
	"context"
	"fmt"
	"strings"
)

var delayLabels = map[string]string{
	"no_access": "Brak dojazdu",
	"waiting":   "Oczekiwanie",
	"traffic":   "Korki",
	"equipment": "Problem ze sprzętem",
	"weather":   "Pogoda",
	"break":     "Przerwa",
	"other":     "Inny",
}

// AppendLog records a free-form task event. Delay and problem entries
// additionally raise a notification for the task creator (or all active
// admins when the task has none).
func (s *Service) AppendLog(ctx context.Context, e TaskEvent) (TaskEvent, error) {
	if e.TaskID <= 0 || e.UserID <= 0 || !isValidEventKind(e.Kind) {
		return TaskEvent{}, ErrInvalidArgs
	}
	if e.Kind == EventDelay && e.DelayMinutes < 0 {
		return TaskEvent{}, ErrInvalidArgs
	}

	task, err := s.store.GetTask(ctx, e.TaskID)
	if err != nil {
		return TaskEvent{}, err
	}

	e.Message = strings.TrimSpace(e.Message)
	e.CreatedAt = s.now()
	stored, err := s.store.AppendEvent(ctx, e)
	if err != nil {
		return TaskEvent{}, err
	}

	if e.Kind != EventDelay && e.Kind != EventProblem {
		return stored, nil
	}

	title := "Problem"
	body := s.workerName(ctx, e.UserID) + ": " + e.Message
	if e.Kind == EventDelay {
		title = "Przestój"
		label, ok := delayLabels[e.DelayReason]
		if !ok {
			label = e.DelayReason
		}
		body = fmt.Sprintf("%s: %s (%d min)", s.workerName(ctx, e.UserID), label, e.DelayMinutes)
	}

	if task.CreatedBy != 0 {
		s.notify(ctx, []int64{task.CreatedBy}, string(e.Kind), title, body, task.ID)
	} else {
		admins, err := s.store.ListWorkers(ctx, RoleAdmin)
		if err != nil {
			s.log.Error("list admins for fan-out", "task_id", task.ID, "error", err)
		}
		for _, a := range admins {
			s.notify(ctx, []int64{a.ID}, string(e.Kind), title, body, task.ID)
		}
	}
	return stored, nil
}

func (s *Service) ListLogs(ctx context.Context, taskID int64) ([]TaskEvent, error) {
	if taskID <= 0 {
		return nil, ErrInvalidArgs
	}
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, taskID)
}
