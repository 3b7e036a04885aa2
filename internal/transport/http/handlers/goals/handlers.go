package goalshandler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/goals"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
	"perfhub/internal/transport/http/shared"
)

type Handler struct {
	Goals  *goals.Service
	logger *zap.Logger
}

func NewHandler(service *goals.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Goals: service, logger: logger}
}

type createGoalRequest struct {
	EmployeeID  string `json:"employeeId"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Specific    string `json:"specific" validate:"max=2000"`
	Measurable  string `json:"measurable" validate:"max=2000"`
	Achievable  string `json:"achievable" validate:"max=2000"`
	Relevant    string `json:"relevant" validate:"max=2000"`
	TimeBound   string `json:"timeBound" validate:"required"`
}

type updateGoalRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Specific    *string `json:"specific" validate:"omitempty,max=2000"`
	Measurable  *string `json:"measurable" validate:"omitempty,max=2000"`
	Achievable  *string `json:"achievable" validate:"omitempty,max=2000"`
	Relevant    *string `json:"relevant" validate:"omitempty,max=2000"`
	TimeBound   *string `json:"timeBound"`
}

type progressRequest struct {
	Progress *int `json:"progress" validate:"required"`
}

type commentRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/goals", func(r chi.Router) {
		r.Use(middleware.RequireRoles(auth.RoleEmployee))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{goalID}", h.handleGet)
		r.Patch("/{goalID}", h.handleUpdate)
		r.Put("/{goalID}/progress", h.handleProgress)
		r.Get("/{goalID}/comments", h.handleComments)
		r.Post("/{goalID}/comments", h.handleAddComment)
	})
}

// handleList returns the goals of ?employeeId, or of the caller.
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
	items, err := h.Goals.ListForEmployee(r.Context(), employeeID)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	var payload createGoalRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	var target time.Time
	if payload.TimeBound != "" {
		target, _ = validator.Date("timeBound", payload.TimeBound)
	}
	if validator.Reject(w, reqID) {
		return
	}
	employeeID := payload.EmployeeID
	if employeeID == "" {
		employeeID = user.ID
	}
	if !session.CanAccessUserData(employeeID) {
		middleware.Forbid(w, r)
		return
	}

	goal, err := h.Goals.Create(r.Context(), goals.Draft{
		EmployeeID:  employeeID,
		CreatedBy:   user.ID,
		Title:       payload.Title,
		Description: payload.Description,
		Specific:    payload.Specific,
		Measurable:  payload.Measurable,
		Achievable:  payload.Achievable,
		Relevant:    payload.Relevant,
		TimeBound:   target,
	})
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Created(w, goal, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	goal, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	goal, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var payload updateGoalRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	details := goals.Details{
		Title:       payload.Title,
		Description: payload.Description,
		Specific:    payload.Specific,
		Measurable:  payload.Measurable,
		Achievable:  payload.Achievable,
		Relevant:    payload.Relevant,
	}
	if payload.TimeBound != nil {
		target, _ := validator.Date("timeBound", *payload.TimeBound)
		details.TimeBound = &target
	}
	if validator.Reject(w, reqID) {
		return
	}

	updated, err := h.Goals.UpdateDetails(r.Context(), goal.ID, details)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Success(w, updated, reqID)
}

// handleProgress takes a percentage; values outside 0..100 are clamped.
func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	goal, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var payload progressRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	if validator.Reject(w, reqID) {
		return
	}

	updated, err := h.Goals.UpdateProgress(r.Context(), goal.ID, *payload.Progress)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	h.logger.Info("goal progress updated",
		zap.String("requestId", reqID),
		zap.String("goalId", updated.ID),
		zap.Int("progress", updated.Progress),
		zap.String("status", string(updated.Status)),
	)
	api.Success(w, updated, reqID)
}

func (h *Handler) handleComments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	goal, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	comments, err := h.Goals.Comments(r.Context(), goal.ID)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Success(w, comments, reqID)
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	goal, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var payload commentRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	if validator.Reject(w, reqID) {
		return
	}

	comment, err := h.Goals.AddComment(r.Context(), goal.ID, user.ID, payload.Body)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Created(w, comment, reqID)
}

func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (goals.Goal, bool) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	goal, err := h.Goals.Get(r.Context(), chi.URLParam(r, "goalID"))
	if err != nil {
		h.fail(w, reqID, err)
		return goals.Goal{}, false
	}
	if !session.CanAccessUserData(goal.EmployeeID) {
		middleware.Forbid(w, r)
		return goals.Goal{}, false
	}
	return goal, true
}

func (h *Handler) fail(w http.ResponseWriter, reqID string, err error) {
	switch {
	case errors.Is(err, goals.ErrGoalNotFound):
		api.Fail(w, http.StatusNotFound, "goal_not_found", "goal not found", reqID)
	case errors.Is(err, goals.ErrInvalidGoal):
		api.Fail(w, http.StatusBadRequest, "invalid_goal", err.Error(), reqID)
	default:
		h.logger.Error("goal request failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "goal_request_failed", "goal request failed", reqID)
	}
}
