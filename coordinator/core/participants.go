package core

import "context"

// Join adds the actor to a task's participant set. Joining is idempotent
// and always resets the actor's personal sub-status: someone who finished
// or paused their part and joins again is working again, with their prior
// status-change events cleared so their history starts fresh.
func (s *Service) Join(ctx context.Context, taskID, actorID int64) error {
	if taskID <= 0 || actorID <= 0 {
		return ErrInvalidArgs
	}

	mu := s.locks.forTask(taskID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return err
	}

	now := s.now()
	if err := s.store.AddParticipant(ctx, taskID, actorID, now); err != nil {
		return err
	}
	if err := s.store.SetParticipantState(ctx, taskID, actorID, ParticipantActive, now); err != nil {
		return err
	}
	if err := s.store.ClearStatusEvents(ctx, taskID, actorID); err != nil {
		return err
	}

	_, err := s.store.AppendEvent(ctx, TaskEvent{
		TaskID:    taskID,
		UserID:    actorID,
		Kind:      EventStatusChange,
		Message:   "Kierowca " + s.workerName(ctx, actorID) + " dołączył do zadania",
		CreatedAt: now,
	})
	return err
}

// Participants returns the task's current participant rows. The primary
// assignee is carried on the task itself and only shows up here once they
// joined or reported a personal sub-status.
func (s *Service) Participants(ctx context.Context, taskID int64) ([]Participant, error) {
	if taskID <= 0 {
		return nil, ErrInvalidArgs
	}
	return s.store.Participants(ctx, taskID)
}
