package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hemprojects/transport/coordinator/core"
)

func Register(mux *http.ServeMux, log *slog.Logger, svc *core.Service, timeout time.Duration) {
	mux.Handle("GET /api/ping", NewPingHandler(log, svc, timeout))

	// tasks
	mux.Handle("POST /api/tasks", NewCreateTaskHandler(log, svc, timeout))
	mux.Handle("GET /api/tasks", NewListTasksHandler(log, svc, timeout))
	mux.Handle("POST /api/tasks/reorder", NewReorderTasksHandler(log, svc, timeout))
	mux.Handle("GET /api/tasks/{id}", NewGetTaskHandler(log, svc, timeout))
	mux.Handle("PUT /api/tasks/{id}", NewUpdateTaskHandler(log, svc, timeout))
	mux.Handle("DELETE /api/tasks/{id}", NewDeleteTaskHandler(log, svc, timeout))

	// lifecycle
	mux.Handle("POST /api/tasks/{id}/status", NewChangeStatusHandler(log, svc, timeout))
	mux.Handle("POST /api/tasks/{id}/join", NewJoinTaskHandler(log, svc, timeout))
	mux.Handle("GET /api/tasks/{id}/logs", NewListLogsHandler(log, svc, timeout))
	mux.Handle("POST /api/tasks/{id}/logs", NewCreateLogHandler(log, svc, timeout))

	// notifications
	mux.Handle("GET /api/notifications/{userId}", NewNotificationsHandler(log, svc, timeout))
	mux.Handle("POST /api/notifications/{id}/read", NewMarkNotificationReadHandler(log, svc, timeout))
	mux.Handle("POST /api/notifications/read-all/{userId}", NewMarkAllNotificationsReadHandler(log, svc, timeout))
	mux.Handle("DELETE /api/notifications/read/{userId}", NewDeleteReadNotificationsHandler(log, svc, timeout))

	// reporting and operations
	mux.Handle("GET /api/reports", NewReportsHandler(log, svc, timeout))
	mux.Handle("POST /api/rollover", NewRolloverHandler(log, svc, timeout))
}
