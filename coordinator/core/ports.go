package core

import (
	"context"
	"time"
)

// StatusUpdate is the single write the state machine issues against a
// task row. Nil pointer fields are left untouched.
type StatusUpdate struct {
	Status      TaskStatus
	StartedAt   *time.Time
	PausedAt    *time.Time
	CompletedAt *time.Time
	AssignTo    *int64
}

// Store is the persistence port of the coordinator. The Postgres adapter
// implements it for production; tests run against an in-memory fake.
type Store interface {
	Ping(ctx context.Context) error

	// tasks
	CreateTask(ctx context.Context, t Task) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	ListTasks(ctx context.Context, f ListTasksFilter) ([]Task, error)
	UpdateTask(ctx context.Context, t Task) (Task, error)
	DeleteTask(ctx context.Context, id int64) error
	MaxSortOrder(ctx context.Context, date string) (int, error)
	SetSortOrder(ctx context.Context, id int64, order int) error
	ApplyStatus(ctx context.Context, id int64, u StatusUpdate) error
	RescheduleTask(ctx context.Context, id int64, date string) error

	// participants
	AddParticipant(ctx context.Context, taskID, userID int64, at time.Time) error
	Participants(ctx context.Context, taskID int64) ([]Participant, error)
	SetParticipantState(ctx context.Context, taskID, userID int64, st ParticipantState, at time.Time) error

	// events
	AppendEvent(ctx context.Context, e TaskEvent) (TaskEvent, error)
	ListEvents(ctx context.Context, taskID int64) ([]TaskEvent, error)
	ClearStatusEvents(ctx context.Context, taskID, userID int64) error

	// notifications
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	ListNotifications(ctx context.Context, userID int64, limit int) ([]Notification, int, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) error
	DeleteReadNotifications(ctx context.Context, userID int64) error

	// workers (read-only directory slice)
	GetWorker(ctx context.Context, id int64) (Worker, error)
	ListWorkers(ctx context.Context, role string) ([]Worker, error)

	// reporting and rollover scans
	WorkerTasks(ctx context.Context, workerID int64, p Period) ([]Task, error)
	WorkerDelays(ctx context.Context, workerID int64, p Period) ([]TaskEvent, error)
	TasksInProgressOn(ctx context.Context, date string) ([]Task, error)
	TasksUnresolvedThrough(ctx context.Context, date string) ([]Task, error)
}

// Pusher delivers push notifications to devices. Best effort: callers log
// failures and move on, nothing is retried here.
type Pusher interface {
	Push(ctx context.Context, userIDs []int64, title, message string, taskID int64) error
}
