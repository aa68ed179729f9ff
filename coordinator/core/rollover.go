package core

import (
	"context"
	"time"
)

type RolloverResult struct {
	Paused   int `json:"paused"`
	Migrated int `json:"migrated"`
}

// Rollover closes out the working day. The pause sweep must run before
// the migration sweep so a just-paused task is re-dated along with the
// genuinely pending ones. Per-task failures are logged and skipped; one
// bad row must not strand everyone else's tasks in yesterday.
func (s *Service) Rollover(ctx context.Context) (RolloverResult, error) {
	now := s.now()
	today := now.Format(dateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(dateLayout)

	var res RolloverResult

	inProgress, err := s.store.TasksInProgressOn(ctx, today)
	if err != nil {
		return res, err
	}
	for _, t := range inProgress {
		if err := s.pauseForShiftEnd(ctx, t, today); err != nil {
			s.log.Error("rollover pause", "task_id", t.ID, "error", err)
			continue
		}
		res.Paused++
	}

	unresolved, err := s.store.TasksUnresolvedThrough(ctx, today)
	if err != nil {
		return res, err
	}
	for _, t := range unresolved {
		if err := s.store.RescheduleTask(ctx, t.ID, tomorrow); err != nil {
			s.log.Error("rollover migrate", "task_id", t.ID, "error", err)
			continue
		}
		res.Migrated++
	}

	s.log.Info("rollover finished", "paused", res.Paused, "migrated", res.Migrated)
	return res, nil
}

// pauseForShiftEnd force-pauses a task the worker left running. The pause
// timestamp is clamped to the worker's shift end so accounting never
// attributes off-shift minutes to the session. If the task itself
// started after shift end, the actual start is used instead.
func (s *Service) pauseForShiftEnd(ctx context.Context, t Task, today string) error {
	workEnd := DefaultWorkEnd
	var actorID int64
	if t.AssignedTo != nil {
		actorID = *t.AssignedTo
		if w, err := s.store.GetWorker(ctx, actorID); err == nil && w.WorkEnd != "" {
			workEnd = w.WorkEnd
		}
	}

	_, shiftEnd, err := shiftWindow(today, "", workEnd)
	if err != nil {
		return err
	}
	pauseAt := shiftEnd
	if t.StartedAt != nil && t.StartedAt.After(pauseAt) {
		pauseAt = *t.StartedAt
	}

	if err := s.store.ApplyStatus(ctx, t.ID, StatusUpdate{Status: StatusPaused, PausedAt: &pauseAt}); err != nil {
		return err
	}
	_, err = s.store.AppendEvent(ctx, TaskEvent{
		TaskID:    t.ID,
		UserID:    actorID,
		Kind:      EventStatusChange,
		Message:   "Automatycznie wstrzymano (koniec zmiany " + pauseAt.Format("15:04") + ")",
		CreatedAt: s.now(),
	})
	return err
}

// NextRolloverIn computes how long to sleep until the next daily run at
// the configured local wall-clock time ("18:00").
func NextRolloverIn(now time.Time, at string) time.Duration {
	t, err := time.Parse("15:04", at)
	if err != nil {
		t, _ = time.Parse("15:04", "18:00")
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
