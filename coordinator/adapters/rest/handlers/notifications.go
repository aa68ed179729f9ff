package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hemprojects/transport/coordinator/adapters/rest"
	"github.com/hemprojects/transport/coordinator/core"
	"github.com/hemprojects/transport/coordinator/pkg/res"
)

func NewNotificationsHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userId")
		if !ok {
			res.Error(w, "invalid userId", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		feed, err := svc.Notifications(ctx, userID)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, feed, http.StatusOK)
	}
}

func NewMarkNotificationReadHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.MarkNotificationRead(ctx, id); err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.SuccessOut{Success: true}, http.StatusOK)
	}
}

func NewMarkAllNotificationsReadHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userId")
		if !ok {
			res.Error(w, "invalid userId", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.MarkAllNotificationsRead(ctx, userID); err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.SuccessOut{Success: true}, http.StatusOK)
	}
}

func NewDeleteReadNotificationsHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userId")
		if !ok {
			res.Error(w, "invalid userId", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.DeleteReadNotifications(ctx, userID); err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, rest.SuccessOut{Success: true}, http.StatusOK)
	}
}
