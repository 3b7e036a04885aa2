package frameworkshandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/frameworks"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
	"perfhub/internal/transport/http/shared"
)

type Handler struct {
	Catalog *frameworks.Catalog
	logger  *zap.Logger
}

func NewHandler(catalog *frameworks.Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Catalog: catalog, logger: logger}
}

// frameworkRequest mirrors frameworks.Framework. Version is accepted so a
// fetched framework can be sent back as-is, but the catalog assigns it.
type frameworkRequest struct {
	ID          string                  `json:"id" validate:"max=64"`
	Name        string                  `json:"name" validate:"required,max=200"`
	Description string                  `json:"description" validate:"max=2000"`
	Categories  []frameworks.Category   `json:"categories" validate:"required,min=1"`
	RatingScale []frameworks.ScaleEntry `json:"ratingScale" validate:"required,min=1"`
	Version     int                     `json:"version"`
}

func (req frameworkRequest) framework(id string) frameworks.Framework {
	return frameworks.Framework{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Categories:  req.Categories,
		RatingScale: frameworks.Scale(req.RatingScale),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	manager := middleware.RequireRoles(auth.RoleManager)
	admin := middleware.RequireRoles(auth.RoleAdmin)
	r.Route("/frameworks", func(r chi.Router) {
		r.With(manager).Get("/", h.handleList)
		r.With(admin).Post("/", h.handleCreate)
		r.With(manager).Get("/{frameworkID}", h.handleGet)
		r.With(admin).Put("/{frameworkID}", h.handleReplace)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Catalog.List(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	framework, err := h.Catalog.Get(chi.URLParam(r, "frameworkID"))
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Success(w, framework, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	payload, ok := decode(w, r)
	if !ok {
		return
	}
	if payload.ID == "" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "id", Reason: "is required"}})
		return
	}
	if h.Catalog.Has(payload.ID) {
		api.Fail(w, http.StatusConflict, "framework_exists", "framework already exists", reqID)
		return
	}
	stored, err := h.Catalog.Upsert(r.Context(), payload.framework(payload.ID))
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	h.logger.Info("framework created", zap.String("frameworkId", stored.ID), zap.String("requestId", reqID))
	api.Created(w, stored, reqID)
}

// handleReplace edits an existing framework. Evaluations already created
// keep the copy they were created with.
func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "frameworkID")
	if !h.Catalog.Has(id) {
		h.fail(w, reqID, frameworks.ErrFrameworkNotFound)
		return
	}
	payload, ok := decode(w, r)
	if !ok {
		return
	}
	if payload.ID != "" && payload.ID != id {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "id", Reason: "must match the framework in the path"}})
		return
	}
	stored, err := h.Catalog.Upsert(r.Context(), payload.framework(id))
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	h.logger.Info("framework updated", zap.String("frameworkId", stored.ID), zap.Int("version", stored.Version), zap.String("requestId", reqID))
	api.Success(w, stored, reqID)
}

func decode(w http.ResponseWriter, r *http.Request) (frameworkRequest, bool) {
	reqID := middleware.GetRequestID(r.Context())
	var payload frameworkRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return payload, false
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	if validator.Reject(w, reqID) {
		return payload, false
	}
	return payload, true
}

func (h *Handler) fail(w http.ResponseWriter, reqID string, err error) {
	switch {
	case errors.Is(err, frameworks.ErrFrameworkNotFound):
		api.Fail(w, http.StatusNotFound, "framework_not_found", "framework not found", reqID)
	case errors.Is(err, frameworks.ErrInvalidFramework):
		api.Fail(w, http.StatusBadRequest, "invalid_framework", err.Error(), reqID)
	default:
		h.logger.Error("framework request failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "framework_request_failed", "framework request failed", reqID)
	}
}
