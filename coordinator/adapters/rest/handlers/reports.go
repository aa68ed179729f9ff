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

func NewReportsHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		reports, err := svc.Reports(ctx, r.URL.Query().Get("period"))
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, map[string]any{"drivers": reports}, http.StatusOK)
	}
}

func NewRolloverHandler(log *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		result, err := svc.Rollover(ctx)
		if err != nil {
			log.Error("manual rollover failed", "error", err)
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, result, http.StatusOK)
	}
}
