package reportshandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/reports"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
	"perfhub/internal/transport/http/shared"
)

// Directory lists the users a session may report on.
type Directory interface {
	Visible(ctx context.Context, session *auth.Session) ([]auth.User, error)
}

type Handler struct {
	Reports *reports.Service
	Users   Directory
	logger  *zap.Logger
}

func NewHandler(service *reports.Service, users Directory, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Reports: service, Users: users, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireRoles(auth.RoleManager))
		r.Get("/summary", h.handleSummary)
		r.Get("/calibration", h.handleCalibration)
		r.Get("/export", h.handleExport)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	scope := reports.TypeOrganization
	if raw := r.URL.Query().Get("scope"); raw != "" {
		parsed, err := reports.ParseType(raw)
		if err != nil || parsed == reports.TypeCalibration {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "scope", Reason: "must be one of: individual team organization"}})
			return
		}
		scope = parsed
	}
	users, ok := h.subjects(w, r, scope)
	if !ok {
		return
	}
	summary, err := h.Reports.Summary(r.Context(), users)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Success(w, summary, reqID)
}

func (h *Handler) handleCalibration(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	users, ok := h.subjects(w, r, reports.TypeCalibration)
	if !ok {
		return
	}
	calibration, err := h.Reports.Calibration(r.Context(), users)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	api.Success(w, calibration, reqID)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	validator := shared.NewValidator()
	reportType, err := reports.ParseType(query.Get("type"))
	if err != nil {
		validator.Add("type", "must be one of: individual team organization calibration")
	}
	format, err := reports.ParseFormat(query.Get("format"))
	if err != nil {
		validator.Add("format", "must be one of: pdf xlsx csv")
	}
	if validator.Reject(w, reqID) {
		return
	}

	users, ok := h.subjects(w, r, reportType)
	if !ok {
		return
	}
	export, err := h.Reports.Export(r.Context(), reportType, format, users)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}

	if err := api.Attachment(w, export.ContentType, export.Filename, export.Data); err != nil {
		h.logger.Warn("report write failed", zap.String("requestId", reqID), zap.Error(err))
	}
}

// subjects resolves who a report covers: ?employeeId for individual reports,
// the caller's direct reports for team reports, everyone visible otherwise.
func (h *Handler) subjects(w http.ResponseWriter, r *http.Request, reportType reports.Type) ([]auth.User, bool) {
	reqID := middleware.GetRequestID(r.Context())
	session := middleware.GetSession(r.Context())
	caller, _ := session.User()

	visible, err := h.Users.Visible(r.Context(), session)
	if err != nil {
		h.logger.Error("report directory lookup failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", reqID)
		return nil, false
	}

	employeeID := r.URL.Query().Get("employeeId")
	if reportType == reports.TypeIndividual && employeeID == "" {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "employeeId", Reason: "is required for individual reports"}})
		return nil, false
	}
	if employeeID != "" {
		if !session.CanAccessUserData(employeeID) {
			middleware.Forbid(w, r)
			return nil, false
		}
		for _, user := range visible {
			if user.ID == employeeID {
				return []auth.User{user}, true
			}
		}
		api.Fail(w, http.StatusNotFound, "user_not_found", "user not found", reqID)
		return nil, false
	}

	if reportType != reports.TypeTeam {
		return visible, true
	}
	team := make([]auth.User, 0)
	for _, user := range visible {
		if user.ReportsTo == caller.ID {
			team = append(team, user)
		}
	}
	return team, true
}

func (h *Handler) fail(w http.ResponseWriter, reqID string, err error) {
	switch {
	case errors.Is(err, reports.ErrNoSubjects):
		api.Fail(w, http.StatusBadRequest, "no_subjects", "report has no employees", reqID)
	case errors.Is(err, reports.ErrUnknownReportType), errors.Is(err, reports.ErrUnknownFormat):
		api.Fail(w, http.StatusBadRequest, "invalid_report", err.Error(), reqID)
	default:
		h.logger.Error("report failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", reqID)
	}
}
