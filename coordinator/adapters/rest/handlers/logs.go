package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hemprojects/transport/coordinator/adapters/rest"
	"github.com/hemprojects/transport/coordinator/core"
	"github.com/hemprojects/transport/coordinator/pkg/res"
)

func NewCreateLogHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var in rest.CreateLogIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		_, err := svc.AppendLog(ctx, core.TaskEvent{
			TaskID:       id,
			UserID:       in.ActorID,
			Kind:         core.EventKind(in.LogType),
			Message:      in.Message,
			DelayReason:  in.DelayReason,
			DelayMinutes: in.DelayMinutes,
		})
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.SuccessOut{Success: true}, http.StatusOK)
	}
}

func NewListLogsHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		logs, err := svc.ListLogs(ctx, id)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, logs, http.StatusOK)
	}
}
