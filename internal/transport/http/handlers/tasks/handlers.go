package taskshandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/tasks"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
	"perfhub/internal/transport/http/shared"
)

// UserLookup fills in display names the caller left out.
type UserLookup interface {
	Get(ctx context.Context, id string) (auth.User, error)
}

type Handler struct {
	Tasks  *tasks.Service
	Users  UserLookup
	logger *zap.Logger
}

func NewHandler(service *tasks.Service, users UserLookup, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Tasks: service, Users: users, logger: logger}
}

type createTaskRequest struct {
	Type           string `json:"type"`
	Title          string `json:"title" validate:"max=200"`
	Description    string `json:"description" validate:"max=5000"`
	AssignedTo     string `json:"assignedTo"`
	AssignedToName string `json:"assignedToName" validate:"max=200"`
	DueDate        string `json:"dueDate"`
	Status         string `json:"status"`
	FrameworkID    string `json:"frameworkId"`
	ParentTaskID   string `json:"parentTaskId"`
	IsParentTask   bool   `json:"isParentTask"`
}

type cycleMemberRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"max=200"`
}

type launchCycleRequest struct {
	Members     []cycleMemberRequest `json:"members" validate:"dive"`
	FrameworkID string               `json:"frameworkId"`
	Message     string               `json:"message" validate:"max=5000"`
	DueDate     string               `json:"dueDate"`
}

type patchTaskRequest struct {
	Type        *string `json:"type"`
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	DueDate     *string `json:"dueDate"`
	Status      *string `json:"status"`
	FrameworkID *string `json:"frameworkId"`
}

func (p patchTaskRequest) statusOnly() bool {
	return p.Type == nil && p.Title == nil && p.Description == nil && p.DueDate == nil && p.FrameworkID == nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	employee := middleware.RequireRoles(auth.RoleEmployee)
	manager := middleware.RequireRoles(auth.RoleManager)
	r.Route("/tasks", func(r chi.Router) {
		r.With(employee).Get("/", h.handleList)
		r.With(manager).Post("/", h.handleCreate)
		r.With(manager).Post("/cycles", h.handleLaunchCycle)
		r.With(employee).Get("/{taskID}", h.handleGet)
		r.With(employee).Patch("/{taskID}", h.handleUpdate)
		r.With(manager).Delete("/{taskID}", h.handleDelete)
		r.With(manager).Get("/{taskID}/children", h.handleChildren)
		r.With(manager).Post("/{taskID}/rollup", h.handleRollup)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	var (
		items []tasks.Task
		err   error
	)
	if assignedBy := r.URL.Query().Get("assignedBy"); assignedBy != "" {
		if !session.HasPermission([]auth.Role{auth.RoleManager}) || !session.CanAccessUserData(assignedBy) {
			middleware.Forbid(w, r)
			return
		}
		items, err = h.Tasks.TasksByAssigner(r.Context(), assignedBy)
	} else {
		assignedTo := r.URL.Query().Get("assignedTo")
		if assignedTo == "" {
			assignedTo = user.ID
		}
		if !session.CanAccessUserData(assignedTo) {
			middleware.Forbid(w, r)
			return
		}
		items, err = h.Tasks.TasksByAssignee(r.Context(), assignedTo)
	}
	if err != nil {
		h.fail(w, r, err, "task_list_failed")
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	var payload createTaskRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	var due time.Time
	if payload.DueDate != "" {
		due, _ = validator.Date("dueDate", payload.DueDate)
	}
	if validator.Reject(w, reqID) {
		return
	}
	if payload.AssignedTo != "" && !session.CanAccessUserData(payload.AssignedTo) {
		middleware.Forbid(w, r)
		return
	}

	id, err := h.Tasks.CreateTask(r.Context(), tasks.Spec{
		Type:           tasks.Type(payload.Type),
		Title:          payload.Title,
		Description:    payload.Description,
		AssignedTo:     payload.AssignedTo,
		AssignedToName: h.displayName(r.Context(), payload.AssignedTo, payload.AssignedToName),
		AssignedBy:     user.ID,
		DueDate:        due,
		Status:         tasks.Status(payload.Status),
		FrameworkID:    payload.FrameworkID,
		ParentID:       payload.ParentTaskID,
		IsParent:       payload.IsParentTask,
	})
	if err != nil {
		h.fail(w, r, err, "task_create_failed")
		return
	}
	task, err := h.Tasks.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "task_create_failed")
		return
	}
	api.Created(w, task, reqID)
}

func (h *Handler) handleLaunchCycle(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	var payload launchCycleRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	var due time.Time
	if payload.DueDate != "" {
		due, _ = validator.Date("dueDate", payload.DueDate)
	}
	if validator.Reject(w, reqID) {
		return
	}

	members := make([]tasks.Member, 0, len(payload.Members))
	for _, m := range payload.Members {
		if !session.CanAccessUserData(m.ID) {
			middleware.Forbid(w, r)
			return
		}
		members = append(members, tasks.Member{ID: m.ID, Name: h.displayName(r.Context(), m.ID, m.Name)})
	}

	parentID, err := h.Tasks.LaunchCycle(r.Context(), user, members, payload.FrameworkID, payload.Message, due)
	if err != nil {
		h.fail(w, r, err, "cycle_launch_failed")
		return
	}
	api.Created(w, map[string]string{"parentTaskId": parentID}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, task, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	user, _ := session.User()

	task, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.fail(w, r, err, "task_update_failed")
		return
	}
	managing := session.HasPermission([]auth.Role{auth.RoleManager}) && canSee(session, user, task)
	if task.AssignedTo != user.ID && !managing {
		middleware.Forbid(w, r)
		return
	}

	var payload patchTaskRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	// assignees move their task through its statuses; everything else is the assigner's
	if !managing && !payload.statusOnly() {
		api.Fail(w, http.StatusForbidden, "status_only", "assignees can only change the task status", reqID)
		return
	}
	validator := shared.NewValidator()
	validator.ValidateStruct(payload)
	patch := tasks.Patch{
		Title:       payload.Title,
		Description: payload.Description,
		FrameworkID: payload.FrameworkID,
	}
	if payload.Type != nil {
		t := tasks.Type(*payload.Type)
		patch.Type = &t
	}
	if payload.Status != nil {
		s := tasks.Status(*payload.Status)
		patch.Status = &s
	}
	if payload.DueDate != nil {
		var due time.Time
		if *payload.DueDate != "" {
			due, _ = validator.Date("dueDate", *payload.DueDate)
		}
		patch.DueDate = &due
	}
	if validator.Reject(w, reqID) {
		return
	}

	updated, err := h.Tasks.UpdateTask(r.Context(), task.ID, patch)
	if err != nil {
		h.fail(w, r, err, "task_update_failed")
		return
	}
	api.Success(w, updated, reqID)
}

// handleDelete answers 204 whether or not the task existed.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	user, _ := session.User()
	id := chi.URLParam(r, "taskID")

	task, err := h.Tasks.Get(r.Context(), id)
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound):
		api.NoContent(w)
		return
	case err != nil:
		h.fail(w, r, err, "task_delete_failed")
		return
	}
	if !canSee(session, user, task) {
		middleware.Forbid(w, r)
		return
	}
	if err := h.Tasks.DeleteTask(r.Context(), id); err != nil {
		h.fail(w, r, err, "task_delete_failed")
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleChildren(w http.ResponseWriter, r *http.Request) {
	parent, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	children, err := h.Tasks.ChildTasks(r.Context(), parent.ID)
	if err != nil {
		h.fail(w, r, err, "task_list_failed")
		return
	}
	api.Success(w, children, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRollup(w http.ResponseWriter, r *http.Request) {
	parent, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	updated, err := h.Tasks.RecomputeParentProgress(r.Context(), parent.ID)
	if err != nil {
		h.fail(w, r, err, "task_rollup_failed")
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (tasks.Task, bool) {
	session := middleware.GetSession(r.Context())
	user, _ := session.User()
	task, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.fail(w, r, err, "task_get_failed")
		return tasks.Task{}, false
	}
	if !canSee(session, user, task) {
		middleware.Forbid(w, r)
		return tasks.Task{}, false
	}
	return task, true
}

// canSee lets the assigner follow tasks they handed out.
func canSee(session *auth.Session, user auth.User, task tasks.Task) bool {
	return session.CanAccessUserData(task.AssignedTo) || (user.ID != "" && task.AssignedBy == user.ID)
}

func (h *Handler) displayName(ctx context.Context, id, given string) string {
	if given != "" || id == "" || h.Users == nil {
		return given
	}
	user, err := h.Users.Get(ctx, id)
	if err != nil {
		return ""
	}
	return user.Name
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, tasks.ErrCycleLaunchFailed):
		h.logger.Error("cycle launch failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "cycle_launch_failed", "failed to launch evaluation cycle", reqID)
	case errors.Is(err, tasks.ErrTaskNotFound):
		api.Fail(w, http.StatusNotFound, "task_not_found", "task not found", reqID)
	case errors.Is(err, tasks.ErrNoMembersSelected):
		api.Fail(w, http.StatusBadRequest, "no_members_selected", "no members selected", reqID)
	case errors.Is(err, tasks.ErrUnknownFramework):
		api.Fail(w, http.StatusBadRequest, "unknown_framework", err.Error(), reqID)
	case errors.Is(err, tasks.ErrNotParentTask):
		api.Fail(w, http.StatusBadRequest, "not_parent_task", "task is not a parent task", reqID)
	case errors.Is(err, tasks.ErrInvalidTaskSpec):
		api.Fail(w, http.StatusBadRequest, "invalid_task_spec", err.Error(), reqID)
	case errors.Is(err, tasks.ErrDuplicateTask):
		api.Fail(w, http.StatusConflict, "duplicate_task", "task already exists", reqID)
	default:
		h.logger.Error("task request failed", zap.String("requestId", reqID), zap.String("code", fallback), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, fallback, "task request failed", reqID)
	}
}
