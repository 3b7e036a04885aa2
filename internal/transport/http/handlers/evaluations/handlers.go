package evaluationshandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/evaluations"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
	"perfhub/internal/transport/http/shared"
)

type Handler struct {
	Evaluations *evaluations.Service
	logger      *zap.Logger
}

func NewHandler(service *evaluations.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Evaluations: service, logger: logger}
}

// ratingRequest accepts label so a fetched evaluation can be sent back; the
// label is always re-derived from the framework scale.
type ratingRequest struct {
	CategoryID string  `json:"categoryId"`
	Value      float64 `json:"value"`
	Label      string  `json:"label"`
	Comment    string  `json:"comment" validate:"max=2000"`
}

type createEvaluationRequest struct {
	EmployeeID      string          `json:"employeeId"`
	Period          string          `json:"period" validate:"max=64"`
	FrameworkID     string          `json:"frameworkId"`
	Ratings         []ratingRequest `json:"ratings" validate:"dive"`
	OverallComments string          `json:"overallComments" validate:"max=5000"`
	Strengths       []string        `json:"strengths" validate:"dive,max=500"`
	Improvements    []string        `json:"improvements" validate:"dive,max=500"`
}

type updateEvaluationRequest struct {
	Period          *string          `json:"period" validate:"omitempty,max=64"`
	Ratings         *[]ratingRequest `json:"ratings" validate:"omitempty,dive"`
	OverallComments *string          `json:"overallComments" validate:"omitempty,max=5000"`
	Strengths       *[]string        `json:"strengths" validate:"omitempty,dive,max=500"`
	Improvements    *[]string        `json:"improvements" validate:"omitempty,dive,max=500"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func toRatings(in []ratingRequest) []evaluations.Rating {
	out := make([]evaluations.Rating, 0, len(in))
	for _, r := range in {
		out = append(out, evaluations.Rating{CategoryID: r.CategoryID, Value: r.Value, Comment: r.Comment})
	}
	return out
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	employee := middleware.RequireRoles(auth.RoleEmployee)
	manager := middleware.RequireRoles(auth.RoleManager)
	r.Route("/evaluations", func(r chi.Router) {
		r.With(employee).Get("/", h.handleList)
		r.With(manager).Post("/", h.handleCreate)
		r.With(employee).Get("/{evaluationID}", h.handleGet)
		r.With(manager).Patch("/{evaluationID}", h.handleUpdate)
		r.With(manager).Delete("/{evaluationID}", h.handleDelete)
		r.With(manager).Post("/{evaluationID}/status", h.handleTransition)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	query := r.URL.Query()
	filter := evaluations.Filter{
		EmployeeID:   query.Get("employeeId"),
		SupervisorID: query.Get("supervisorId"),
		Status:       evaluations.Status(query.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "status", Reason: "must be a valid evaluation status"}})
		return
	}
	if filter.EmployeeID == "" && !session.HasPermission([]auth.Role{auth.RoleManager}) {
		filter.EmployeeID = user.ID
	}
	if filter.EmployeeID != "" && !session.CanAccessUserData(filter.EmployeeID) {
		middleware.Forbid(w, r)
		return
	}

	items, err := h.Evaluations.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "evaluation_list_failed")
		return
	}
	visible := make([]evaluations.Evaluation, 0, len(items))
	for _, item := range items {
		if canSee(session, user, item) {
			visible = append(visible, item)
		}
	}
	api.Success(w, visible, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	var payload createEvaluationRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	if validator.Reject(w, reqID) {
		return
	}
	if payload.EmployeeID != "" && !session.CanAccessUserData(payload.EmployeeID) {
		middleware.Forbid(w, r)
		return
	}

	created, err := h.Evaluations.Create(r.Context(), evaluations.Draft{
		EmployeeID:      payload.EmployeeID,
		SupervisorID:    user.ID,
		Period:          payload.Period,
		FrameworkID:     payload.FrameworkID,
		Ratings:         toRatings(payload.Ratings),
		OverallComments: payload.OverallComments,
		Strengths:       payload.Strengths,
		Improvements:    payload.Improvements,
	})
	if err != nil {
		h.fail(w, r, err, "evaluation_create_failed")
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	evaluation, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, evaluation, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	current, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var payload updateEvaluationRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	if validator.Reject(w, reqID) {
		return
	}

	changes := evaluations.Changes{
		Period:          payload.Period,
		OverallComments: payload.OverallComments,
		Strengths:       payload.Strengths,
		Improvements:    payload.Improvements,
	}
	if payload.Ratings != nil {
		ratings := toRatings(*payload.Ratings)
		changes.Ratings = &ratings
	}
	updated, err := h.Evaluations.Update(r.Context(), current.ID, changes)
	if err != nil {
		h.fail(w, r, err, "evaluation_update_failed")
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	current, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var payload statusRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	if validator.Reject(w, reqID) {
		return
	}

	updated, err := h.Evaluations.Transition(r.Context(), current.ID, evaluations.Status(payload.Status))
	if err != nil {
		h.fail(w, r, err, "evaluation_transition_failed")
		return
	}
	api.Success(w, updated, reqID)
}

// handleDelete answers 204 for evaluations that do not exist.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	user, _ := session.User()
	id := chi.URLParam(r, "evaluationID")

	current, err := h.Evaluations.Get(r.Context(), id)
	switch {
	case errors.Is(err, evaluations.ErrEvaluationNotFound):
		api.NoContent(w)
		return
	case err != nil:
		h.fail(w, r, err, "evaluation_delete_failed")
		return
	}
	if !canSee(session, user, current) {
		middleware.Forbid(w, r)
		return
	}
	if err := h.Evaluations.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "evaluation_delete_failed")
		return
	}
	api.NoContent(w)
}

func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (evaluations.Evaluation, bool) {
	session := middleware.GetSession(r.Context())
	user, _ := session.User()
	evaluation, err := h.Evaluations.Get(r.Context(), chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.fail(w, r, err, "evaluation_get_failed")
		return evaluations.Evaluation{}, false
	}
	if !canSee(session, user, evaluation) {
		middleware.Forbid(w, r)
		return evaluations.Evaluation{}, false
	}
	return evaluation, true
}

func canSee(session *auth.Session, user auth.User, e evaluations.Evaluation) bool {
	return session.CanAccessUserData(e.EmployeeID) || (user.ID != "" && e.SupervisorID == user.ID)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, evaluations.ErrEvaluationNotFound):
		api.Fail(w, http.StatusNotFound, "evaluation_not_found", "evaluation not found", reqID)
	case errors.Is(err, evaluations.ErrEvaluationCompleted):
		api.Fail(w, http.StatusConflict, "evaluation_completed", "evaluation is completed", reqID)
	case errors.Is(err, evaluations.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), reqID)
	case errors.Is(err, evaluations.ErrUnknownFramework):
		api.Fail(w, http.StatusBadRequest, "unknown_framework", err.Error(), reqID)
	case errors.Is(err, evaluations.ErrUnknownCategory):
		api.Fail(w, http.StatusBadRequest, "unknown_category", err.Error(), reqID)
	case errors.Is(err, evaluations.ErrRatingOutOfScale):
		api.Fail(w, http.StatusBadRequest, "rating_out_of_scale", err.Error(), reqID)
	case errors.Is(err, evaluations.ErrInvalidEvaluation):
		api.Fail(w, http.StatusBadRequest, "invalid_evaluation", err.Error(), reqID)
	default:
		h.logger.Error("evaluation request failed", zap.String("requestId", reqID), zap.String("code", fallback), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, fallback, "evaluation request failed", reqID)
	}
}
