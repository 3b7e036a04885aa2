package jobshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/platform/jobs"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
)

type Handler struct {
	Jobs   *jobs.Service
	logger *zap.Logger
}

func NewHandler(service *jobs.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Jobs: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/jobs", func(r chi.Router) {
		r.Use(middleware.RequireRoles(auth.RoleAdmin))
		r.Get("/runs", h.handleRuns)
		r.Post("/rollup", h.handleRollup)
	})
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Jobs.Runs(), middleware.GetRequestID(r.Context()))
}

// handleRollup reconciles every parent task now, or queues the run with ?async=true.
func (h *Handler) handleRollup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if r.URL.Query().Get("async") == "true" {
		if !h.Jobs.EnqueueReconcile() {
			api.Fail(w, http.StatusServiceUnavailable, "job_queue_full", "job queue is full", reqID)
			return
		}
		api.WriteJSON(w, http.StatusAccepted, api.Envelope{Success: true, Data: map[string]string{"status": "queued"}, RequestID: reqID})
		return
	}

	run, err := h.Jobs.ReconcileNow(r.Context())
	if err != nil {
		h.logger.Error("rollup reconcile failed", zap.String("requestId", reqID), zap.String("runId", run.ID), zap.Error(err))
		api.FailWithDetails(w, http.StatusInternalServerError, "job_failed", "rollup reconcile failed", run, reqID)
		return
	}
	api.Success(w, run, reqID)
}
