package feedbackhandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/feedback"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
	"perfhub/internal/transport/http/shared"
)

type Handler struct {
	Feedback *feedback.Service
	logger   *zap.Logger
}

func NewHandler(service *feedback.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Feedback: service, logger: logger}
}

type createFeedbackRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Type       string `json:"type" validate:"omitempty,oneof=SCHEDULED AD_HOC"`
	Content    string `json:"content" validate:"required,max=5000"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/feedback", func(r chi.Router) {
		r.Use(middleware.RequireRoles(auth.RoleEmployee))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/given", h.handleGiven)
		r.Get("/{feedbackID}", h.handleGet)
	})
}

// handleList returns feedback received by ?employeeId, or by the caller.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		employeeID = user.ID
	}
	if !session.CanAccessUserData(employeeID) {
		middleware.Forbid(w, r)
		return
	}
	items, err := h.Feedback.ListForEmployee(r.Context(), employeeID)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleGiven(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	items, err := h.Feedback.ListByAuthor(r.Context(), user.ID)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	item, err := h.Feedback.Get(r.Context(), chi.URLParam(r, "feedbackID"))
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	if item.AuthorID != user.ID && !session.CanAccessUserData(item.EmployeeID) {
		middleware.Forbid(w, r)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload createFeedbackRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	if validator.Reject(w, reqID) {
		return
	}

	item, err := h.Feedback.Create(r.Context(), feedback.Draft{
		EmployeeID: payload.EmployeeID,
		AuthorID:   user.ID,
		Type:       feedback.Type(payload.Type),
		Content:    payload.Content,
	})
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Created(w, item, reqID)
}

func (h *Handler) fail(w http.ResponseWriter, reqID string, err error) {
	switch {
	case errors.Is(err, feedback.ErrFeedbackNotFound):
		api.Fail(w, http.StatusNotFound, "feedback_not_found", "feedback not found", reqID)
	case errors.Is(err, feedback.ErrInvalidFeedback):
		api.Fail(w, http.StatusBadRequest, "invalid_feedback", err.Error(), reqID)
	default:
		h.logger.Error("feedback request failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "feedback_request_failed", "feedback request failed", reqID)
	}
}
