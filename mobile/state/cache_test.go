package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemprojects/transport/coordinator/core"
)

const day = "2026-08-30"

func sampleTasks() []core.Task {
	return []core.Task{
		{ID: 1, Description: "Transport palet", Status: core.StatusPending, ScheduledDate: day},
		{ID: 2, Description: "Rozładunek", Status: core.StatusInProgress, ScheduledDate: day},
	}
}

func TestStoreReplace_ReportsChange(t *testing.T) {
	t.Parallel()

	s := NewStore()

	assert.True(t, s.Replace(day, sampleTasks()), "first install is a change")
	assert.False(t, s.Replace(day, sampleTasks()), "identical refresh is not")

	changed := sampleTasks()
	changed[0].Status = core.StatusCompleted
	assert.True(t, s.Replace(day, changed))
}

func TestStoreTasks_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Replace(day, sampleTasks())

	got := s.Tasks(day)
	require.Len(t, got, 2)
	got[0].Status = core.StatusCancelled

	again := s.Tasks(day)
	assert.Equal(t, core.StatusPending, again[0].Status, "callers must not reach the cache through the copy")

	assert.Nil(t, s.Tasks("2026-08-31"))
}

func TestStoreMutate_RevertRestoresDay(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Replace(day, sampleTasks())

	revert := s.Mutate(day, 1, func(task *core.Task) {
		task.Status = core.StatusInProgress
	})

	got := s.Tasks(day)
	assert.Equal(t, core.StatusInProgress, got[0].Status)
	assert.Equal(t, core.StatusInProgress, got[1].Status, "other tasks untouched")

	revert()

	got = s.Tasks(day)
	assert.Equal(t, core.StatusPending, got[0].Status)
}

func TestStoreMutate_RevertRestoresNestedSlices(t *testing.T) {
	t.Parallel()

	s := NewStore()
	tasks := sampleTasks()
	tasks[0].Participants = []core.Participant{
		{TaskID: 1, UserID: 1, UserName: "Adam", State: core.ParticipantActive},
	}
	s.Replace(day, tasks)

	revert := s.Mutate(day, 1, func(task *core.Task) {
		task.Participants[0].State = core.ParticipantPausedPart
		task.Events = append(task.Events, core.TaskEvent{TaskID: 1, Message: "Wstrzymano"})
	})

	got := s.Tasks(day)
	require.Len(t, got[0].Participants, 1)
	assert.Equal(t, core.ParticipantPausedPart, got[0].Participants[0].State)

	revert()

	got = s.Tasks(day)
	require.Len(t, got[0].Participants, 1)
	assert.Equal(t, core.ParticipantActive, got[0].Participants[0].State,
		"revert must undo edits inside shared slices, not just the task fields")
	assert.Empty(t, got[0].Events)
}

func TestStoreMutate_MissingTaskIsNoOp(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Replace(day, sampleTasks())

	revert := s.Mutate(day, 99, func(task *core.Task) {
		task.Status = core.StatusCancelled
	})
	revert()

	assert.Equal(t, sampleTasks(), s.Tasks(day))
}

func TestStoreDrop(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Replace(day, sampleTasks())
	s.Drop(day)

	assert.Nil(t, s.Tasks(day))
}
