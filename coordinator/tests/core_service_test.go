package tests

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hemprojects/transport/coordinator/core"
)

const (
	dispatcherID = int64(100)
	driverAdamID = int64(1)
	driverBartID = int64(2)
)

func newServiceWithFakeStore() (*fakeStore, *recordingPusher, *core.Service) {
	store := newFakeStore()
	store.addWorker(core.Worker{ID: dispatcherID, Name: "Krzysztof", Role: core.RoleDispatcher, Active: true})
	store.addWorker(core.Worker{ID: driverAdamID, Name: "Adam", Role: core.RoleDriver, Active: true, WorkStart: "07:00", WorkEnd: "15:00"})
	store.addWorker(core.Worker{ID: driverBartID, Name: "Bartek", Role: core.RoleDriver, Active: true, WorkStart: "07:00", WorkEnd: "15:00"})

	pusher := &recordingPusher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return store, pusher, core.NewService(log, store, pusher)
}

func mustCreateTask(t *testing.T, svc *core.Service, task core.Task) core.Task {
	t.Helper()

	if task.ScheduledDate == "" {
		task.ScheduledDate = "2026-08-30"
	}
	if task.Description == "" {
		task.Description = "Transport palet"
	}
	created, err := svc.CreateTask(context.Background(), dispatcherID, task)
	if err != nil {
		t.Fatalf("failed to prepare task: %v", err)
	}
	return created
}

func TestServiceCreateTask_EmptyDescription(t *testing.T) {
	t.Parallel()

	_, _, svc := newServiceWithFakeStore()

	_, err := svc.CreateTask(context.Background(), dispatcherID, core.Task{
		Description:   "   ",
		ScheduledDate: "2026-08-30",
	})
	if !errors.Is(err, core.ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
}

func TestServiceCreateTask_BadDate(t *testing.T) {
	t.Parallel()

	_, _, svc := newServiceWithFakeStore()

	_, err := svc.CreateTask(context.Background(), dispatcherID, core.Task{
		Description:   "Transport",
		ScheduledDate: "30.08.2026",
	})
	if !errors.Is(err, core.ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
}

func TestServiceCreateTask_DefaultsAndSortOrder(t *testing.T) {
	t.Parallel()

	_, _, svc := newServiceWithFakeStore()

	first := mustCreateTask(t, svc, core.Task{})
	second := mustCreateTask(t, svc, core.Task{})

	if first.TaskType != core.TypeTransport || first.Priority != core.PriorityNormal {
		t.Fatalf("expected defaults, got type %q priority %q", first.TaskType, first.Priority)
	}
	if first.Status != core.StatusPending {
		t.Fatalf("expected pending, got %q", first.Status)
	}
	if first.SortOrder != 1 || second.SortOrder != 2 {
		t.Fatalf("expected sort orders 1 and 2, got %d and %d", first.SortOrder, second.SortOrder)
	}
}

func TestServiceCreateTask_UnassignedNotifiesAllDrivers(t *testing.T) {
	t.Parallel()

	store, pusher, svc := newServiceWithFakeStore()

	task := mustCreateTask(t, svc, core.Task{})

	adam, _, _ := store.ListNotifications(context.Background(), driverAdamID, 10)
	bart, _, _ := store.ListNotifications(context.Background(), driverBartID, 10)
	if len(adam) != 1 || len(bart) != 1 {
		t.Fatalf("expected both drivers notified, got %d and %d", len(adam), len(bart))
	}
	if adam[0].TaskID != task.ID || adam[0].Type != "new_task" {
		t.Fatalf("unexpected notification: %+v", adam[0])
	}
	if len(pusher.pushes) != 1 {
		t.Fatalf("expected one push batch, got %d", len(pusher.pushes))
	}
}

func TestServiceCreateTask_ContainerAssigneesNotified(t *testing.T) {
	t.Parallel()

	store, _, svc := newServiceWithFakeStore()

	mustCreateTask(t, svc, core.Task{
		Containers: []core.Container{
			{Name: "K-101", WorkerID: driverAdamID},
			{Name: "K-102", WorkerID: driverAdamID},
		},
	})

	adam, _, _ := store.ListNotifications(context.Background(), driverAdamID, 10)
	bart, _, _ := store.ListNotifications(context.Background(), driverBartID, 10)
	if len(adam) != 1 {
		t.Fatalf("expected one notification for the pre-assigned driver, got %d", len(adam))
	}
	if len(bart) != 0 {
		t.Fatalf("expected no notification for uninvolved driver, got %d", len(bart))
	}
}

func TestServiceUpdateTask_NonCreatorRejected(t *testing.T) {
	t.Parallel()

	_, _, svc := newServiceWithFakeStore()

	task := mustCreateTask(t, svc, core.Task{})
	task.Description = "Zmienione"

	_, err := svc.UpdateTask(context.Background(), driverAdamID, task)
	if !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestServiceUpdateTask_AdminAllowed(t *testing.T) {
	t.Parallel()

	store, _, svc := newServiceWithFakeStore()
	admin := store.addWorker(core.Worker{ID: 50, Name: "Szef", Role: core.RoleAdmin, Active: true})

	task := mustCreateTask(t, svc, core.Task{})
	task.Description = "Zmienione przez admina"

	updated, err := svc.UpdateTask(context.Background(), admin.ID, task)
	if err != nil {
		t.Fatalf("UpdateTask returned error: %v", err)
	}
	if updated.Description != "Zmienione przez admina" {
		t.Fatalf("expected updated description, got %q", updated.Description)
	}
}

func TestServiceDeleteTask_CascadesEvents(t *testing.T) {
	t.Parallel()

	store, _, svc := newServiceWithFakeStore()

	task := mustCreateTask(t, svc, core.Task{AssignedTo: ptr(driverAdamID)})
	if _, err := svc.ChangeStatus(context.Background(), task.ID, core.StatusInProgress, driverAdamID); err != nil {
		t.Fatalf("ChangeStatus returned error: %v", err)
	}

	if err := svc.DeleteTask(context.Background(), dispatcherID, task.ID); err != nil {
		t.Fatalf("DeleteTask returned error: %v", err)
	}
	if _, err := svc.GetTask(context.Background(), task.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	events, _ := store.ListEvents(context.Background(), task.ID)
	if len(events) != 0 {
		t.Fatalf("expected events removed with task, got %d", len(events))
	}
}

func TestServiceReorderTasks_RewritesOrderAndLogsReason(t *testing.T) {
	t.Parallel()

	store, _, svc := newServiceWithFakeStore()

	first := mustCreateTask(t, svc, core.Task{})
	second := mustCreateTask(t, svc, core.Task{})

	err := svc.ReorderTasks(context.Background(), dispatcherID, []int64{second.ID, first.ID}, "pilny rozładunek")
	if err != nil {
		t.Fatalf("ReorderTasks returned error: %v", err)
	}

	reordered, _ := store.GetTask(context.Background(), second.ID)
	if reordered.SortOrder != 1 {
		t.Fatalf("expected moved task first, got sort order %d", reordered.SortOrder)
	}
	events, _ := store.ListEvents(context.Background(), second.ID)
	if len(events) != 1 || events[0].Kind != core.EventStatusChange {
		t.Fatalf("expected one reorder event on the first task, got %+v", events)
	}
}

func TestServiceListTasks_PersonalFlags(t *testing.T) {
	t.Parallel()

	_, _, svc := newServiceWithFakeStore()
	ctx := context.Background()

	task := mustCreateTask(t, svc, core.Task{AssignedTo: ptr(driverAdamID)})
	if err := svc.Join(ctx, task.ID, driverBartID); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if _, err := svc.ChangeStatus(ctx, task.ID, core.StatusInProgress, driverAdamID); err != nil {
		t.Fatalf("start returned error: %v", err)
	}
	res, err := svc.ChangeStatus(ctx, task.ID, core.StatusCompleted, driverAdamID)
	if err != nil {
		t.Fatalf("complete returned error: %v", err)
	}
	if !res.Partial {
		t.Fatalf("expected partial result for shared task")
	}

	uid := driverAdamID
	tasks, err := svc.ListTasks(ctx, core.ListTasksFilter{Date: task.ScheduledDate, UserID: &uid})
	if err != nil {
		t.Fatalf("ListTasks returned error: %v", err)
	}
	if len(tasks) != 1 || !tasks[0].HasCompleted || tasks[0].HasPaused {
		t.Fatalf("expected has_completed flag for Adam, got %+v", tasks[0])
	}
}

func ptr[T any](v T) *T {
	return &v
}
