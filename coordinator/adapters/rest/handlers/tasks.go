package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hemprojects/transport/coordinator/adapters/rest"
	"github.com/hemprojects/transport/coordinator/core"
	"github.com/hemprojects/transport/coordinator/pkg/res"
)

func parseStatus(s string) (core.TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return core.StatusPending, true
	case "in_progress":
		return core.StatusInProgress, true
	case "paused":
		return core.StatusPaused, true
	case "completed":
		return core.StatusCompleted, true
	case "cancelled":
		return core.StatusCancelled, true
	default:
		return "", false
	}
}

func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(key), 10, 64)
	return id, err == nil && id > 0
}

func taskFromIn(in rest.CreateTaskIn) core.Task {
	return core.Task{
		TaskType:      core.TaskType(in.TaskType),
		Description:   in.Description,
		Material:      in.Material,
		LocationFrom:  in.LocationFrom,
		LocationTo:    in.LocationTo,
		Department:    in.Department,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
		Priority:      core.Priority(in.Priority),
		Notes:         in.Notes,
		AssignedTo:    in.AssignedTo,
		Containers:    in.Containers,
	}
}

func NewCreateTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in rest.CreateTaskIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if in.ActorID <= 0 {
			res.Error(w, "invalid actorId", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		t, err := svc.CreateTask(ctx, in.ActorID, taskFromIn(in))
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.SuccessOut{Success: true, ID: t.ID}, http.StatusCreated)
	}
}

func NewGetTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		t, err := svc.GetTask(ctx, id)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, t, http.StatusOK)
	}
}

func NewListTasksHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var f core.ListTasksFilter
		f.Date = q.Get("date")

		if s := q.Get("status"); s != "" && s != "all" {
			st, ok := parseStatus(s)
			if !ok {
				res.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			f.Status = &st
		}
		if v := q.Get("userId"); v != "" {
			uid, err := strconv.ParseInt(v, 10, 64)
			if err != nil || uid <= 0 {
				res.Error(w, "invalid userId", http.StatusBadRequest)
				return
			}
			f.UserID = &uid
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		tasks, err := svc.ListTasks(ctx, f)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, tasks, http.StatusOK)
	}
}

func NewUpdateTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var in rest.UpdateTaskIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if in.ActorID <= 0 {
			res.Error(w, "invalid actorId", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		t := taskFromIn(in.CreateTaskIn)
		t.ID = id
		if t.TaskType == "" {
			t.TaskType = core.TypeTransport
		}
		if t.Priority == "" {
			t.Priority = core.PriorityNormal
		}

		updated, err := svc.UpdateTask(ctx, in.ActorID, t)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, updated, http.StatusOK)
	}
}

func NewDeleteTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		actorID, err := strconv.ParseInt(r.URL.Query().Get("actorId"), 10, 64)
		if err != nil || actorID <= 0 {
			res.Error(w, "invalid actorId", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.DeleteTask(ctx, actorID, id); err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.SuccessOut{Success: true}, http.StatusOK)
	}
}

func NewChangeStatusHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var in rest.ChangeStatusIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		target, ok := parseStatus(in.Status)
		if !ok {
			res.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		result, err := svc.ChangeStatus(ctx, id, target, in.ActorID)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.StatusOut{
			Success:      true,
			Partial:      result.Partial,
			Message:      result.Message,
			StillWorking: result.StillWorking,
		}, http.StatusOK)
	}
}

func NewJoinTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var in rest.JoinTaskIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.Join(ctx, id, in.ActorID); err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.SuccessOut{Success: true}, http.StatusOK)
	}
}

func NewReorderTasksHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in rest.ReorderTasksIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.ReorderTasks(ctx, in.ActorID, in.Tasks, in.Reason); err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.SuccessOut{Success: true}, http.StatusOK)
	}
}
