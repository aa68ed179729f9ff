package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// StatusResult is the outcome of a status-change request. Partial marks
// the shared-task case where the actor finished (or paused) their own
// share but other participants are still working; the task itself did
// not move.
type StatusResult struct {
	Partial      bool     `json:"partial,omitempty"`
	Message      string   `json:"message,omitempty"`
	StillWorking []string `json:"still_working,omitempty"`
}

var statusLabels = map[TaskStatus]string{
	StatusInProgress: "Rozpoczęto",
	StatusCompleted:  "Zakończono zadanie",
	StatusPaused:     "Wstrzymano zadanie",
	StatusPending:    "Oczekuje",
	StatusCancelled:  "Anulowano zadanie",
}

var statusTexts = map[TaskStatus]string{
	StatusInProgress: "rozpoczęte",
	StatusCompleted:  "zakończone",
	StatusPaused:     "wstrzymane",
	StatusCancelled:  "anulowane",
}

// ChangeStatus runs one transition request through the state machine.
// Requests racing on the same task serialize on a per-task mutex so two
// participants completing within milliseconds cannot both conclude they
// are the last one.
func (s *Service) ChangeStatus(ctx context.Context, taskID int64, target TaskStatus, actorID int64) (StatusResult, error) {
	if taskID <= 0 || actorID <= 0 || !isValidStatus(target) {
		return StatusResult{}, ErrInvalidArgs
	}

	mu := s.locks.forTask(taskID)
	mu.Lock()
	defer mu.Unlock()

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return StatusResult{}, err
	}

	// Duplicate requests are legal: the client queue retries sends whose
	// response was lost. Same-status requests succeed without mutation.
	if task.Status == target {
		if target == StatusInProgress {
			return StatusResult{Message: "Zadanie już rozpoczęte"}, nil
		}
		return StatusResult{}, nil
	}
	if task.Status == StatusCompleted && target != StatusCompleted {
		return StatusResult{}, ErrInvalidArgs
	}
	if task.Status == StatusCancelled {
		return StatusResult{}, ErrInvalidArgs
	}

	if target == StatusCompleted || target == StatusPaused {
		res, final, err := s.reportShare(ctx, task, target, actorID)
		if err != nil {
			return StatusResult{}, err
		}
		if !final {
			return res, nil
		}
	}

	return s.transition(ctx, task, target, actorID)
}

// reportShare handles the multi-participant rule for completion and
// pausing. It returns final=true when the shared task itself should move:
// either the task is effectively single-actor, or the reporting actor is
// the last one to reach an equivalent sub-state.
func (s *Service) reportShare(ctx context.Context, task Task, target TaskStatus, actorID int64) (StatusResult, bool, error) {
	states, err := s.participantStates(ctx, task)
	if err != nil {
		return StatusResult{}, false, err
	}
	// Single-actor fast path, explicit also for the unassigned task a
	// lone anonymous claimant completes.
	if len(states) <= 1 {
		return StatusResult{}, true, nil
	}

	actorState := ParticipantDonePart
	if target == StatusPaused {
		actorState = ParticipantPausedPart
	}
	states[actorID] = actorState

	var stillWorking []string
	for id, st := range states {
		if id != actorID && st == ParticipantActive {
			stillWorking = append(stillWorking, s.workerName(ctx, id))
		}
	}

	allDone := true
	for _, st := range states {
		if target == StatusCompleted && st != ParticipantDonePart {
			allDone = false
		}
		if target == StatusPaused && st == ParticipantActive {
			allDone = false
		}
	}

	now := s.now()
	if err := s.store.AddParticipant(ctx, task.ID, actorID, now); err != nil {
		return StatusResult{}, false, err
	}
	if err := s.store.SetParticipantState(ctx, task.ID, actorID, actorState, now); err != nil {
		return StatusResult{}, false, err
	}

	if allDone {
		// The last reporter moves the whole task; a single consolidated
		// event is recorded by the transition instead of a personal one.
		return StatusResult{}, true, nil
	}

	actorName := s.workerName(ctx, actorID)
	verb := "Zakończył"
	if target == StatusPaused {
		verb = "Wstrzymał"
	}
	msg := verb + " swoją część"
	if len(stillWorking) > 0 {
		msg += " (Pozostali pracują: " + strings.Join(stillWorking, ", ") + ")"
	}
	if _, err := s.store.AppendEvent(ctx, TaskEvent{
		TaskID:    task.ID,
		UserID:    actorID,
		Kind:      EventStatusChange,
		Message:   msg,
		CreatedAt: now,
	}); err != nil {
		return StatusResult{}, false, err
	}

	userMsg := actorName + " zakończył swoją część."
	if target == StatusPaused {
		userMsg = actorName + " wstrzymał swoją część."
	}
	if len(stillWorking) > 0 {
		userMsg += " " + strings.Join(stillWorking, ", ") + " nadal wykonuje zadanie."
	}
	return StatusResult{Partial: true, Message: userMsg, StillWorking: stillWorking}, false, nil
}

// participantStates collects everyone associated with the task: the
// primary assignee plus joined participants, each with their current
// personal sub-status.
func (s *Service) participantStates(ctx context.Context, task Task) (map[int64]ParticipantState, error) {
	parts, err := s.store.Participants(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	states := make(map[int64]ParticipantState, len(parts)+1)
	if task.AssignedTo != nil {
		states[*task.AssignedTo] = ParticipantActive
	}
	for _, p := range parts {
		states[p.UserID] = p.State
	}
	return states, nil
}

func (s *Service) transition(ctx context.Context, task Task, target TaskStatus, actorID int64) (StatusResult, error) {
	now := s.now()
	update := StatusUpdate{Status: target}
	resumed := false

	switch target {
	case StatusInProgress:
		if task.Status == StatusPaused {
			// Resume continues the original work session; started_at is
			// deliberately left alone so accounting sees one interval.
			resumed = true
		} else {
			startedAt := now
			update.StartedAt = &startedAt
		}
		if task.AssignedTo == nil {
			actor := actorID
			update.AssignTo = &actor
		}
	case StatusCompleted:
		completedAt := now
		update.CompletedAt = &completedAt
	case StatusPaused:
		pausedAt := now
		update.PausedAt = &pausedAt
	}

	if err := s.store.ApplyStatus(ctx, task.ID, update); err != nil {
		return StatusResult{}, err
	}

	// Whoever starts or resumes a task is working on it again: a stale
	// done_part/paused_part row would make a later peer report conclude
	// nobody is active and close the shared task mid-work.
	if target == StatusInProgress {
		err := s.store.SetParticipantState(ctx, task.ID, actorID, ParticipantActive, now)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return StatusResult{}, err
		}
	}

	message := statusLabels[target]
	if resumed {
		message = "Wznowiono"
	}
	if target == StatusCompleted {
		if states, err := s.participantStates(ctx, task); err == nil && len(states) > 1 {
			message = fmt.Sprintf("Zakończono zadanie (Ostatni: %s)", s.workerName(ctx, actorID))
		}
	}

	if _, err := s.store.AppendEvent(ctx, TaskEvent{
		TaskID:    task.ID,
		UserID:    actorID,
		Kind:      EventStatusChange,
		Message:   message,
		CreatedAt: now,
	}); err != nil {
		return StatusResult{}, err
	}

	s.notifyStatusChange(ctx, task, target, actorID)
	return StatusResult{}, nil
}

// notifyStatusChange tells the people who care but did not act: the task
// creator (falling back to active admins when the task has none) and the
// primary assignee. The actor is never notified about their own change.
func (s *Service) notifyStatusChange(ctx context.Context, task Task, target TaskStatus, actorID int64) {
	statusText, ok := statusTexts[target]
	if !ok {
		statusText = string(target)
	}
	body := fmt.Sprintf("%q - %s", task.Description, statusText)

	if task.CreatedBy != 0 {
		if task.CreatedBy != actorID {
			s.notify(ctx, []int64{task.CreatedBy}, "status_change", "Zmiana statusu", body, task.ID)
		}
	} else {
		admins, err := s.store.ListWorkers(ctx, RoleAdmin)
		if err != nil {
			s.log.Error("list admins for fan-out", "task_id", task.ID, "error", err)
		}
		for _, a := range admins {
			if a.ID == actorID {
				continue
			}
			s.notify(ctx, []int64{a.ID}, "status_change", "Zmiana statusu", body, task.ID)
		}
	}

	if task.AssignedTo != nil && *task.AssignedTo != actorID {
		s.notify(ctx, []int64{*task.AssignedTo}, "status_change", "Aktualizacja zadania", body, task.ID)
	}
}
