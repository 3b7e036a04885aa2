package notificationshandler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/notifications"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
	"perfhub/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
	logger  *zap.Logger
}

func NewHandler(service *notifications.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireRoles(auth.RoleEmployee))
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	page := shared.ParsePagination(r, notifications.DefaultLimit, notifications.MaxLimit)
	total, err := h.Service.Count(r.Context(), user.ID)
	if err != nil {
		h.logger.Warn("notification count failed", zap.String("requestId", reqID), zap.Error(err))
	}
	unread, err := h.Service.CountUnread(r.Context(), user.ID)
	if err != nil {
		h.logger.Warn("notification unread count failed", zap.String("requestId", reqID), zap.Error(err))
	}

	items, err := h.Service.List(r.Context(), user.ID, page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("notification list failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", reqID)
		return
	}

	page.SetTotal(w, total)
	w.Header().Set("X-Unread-Count", strconv.Itoa(unread))
	api.Success(w, items, reqID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), user.ID, notificationID); err != nil {
		if errors.Is(err, notifications.ErrNotificationNotFound) {
			api.Fail(w, http.StatusNotFound, "notification_not_found", "notification not found", reqID)
			return
		}
		h.logger.Error("notification update failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", reqID)
		return
	}

	api.Success(w, map[string]string{"status": "read"}, reqID)
}
