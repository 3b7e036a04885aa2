package audithandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/audit"
	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/reports"
	"perfhub/internal/transport/http/api"
	"perfhub/internal/transport/http/middleware"
	"perfhub/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
	logger  *zap.Logger
}

func NewHandler(service *audit.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/audit", func(r chi.Router) {
		r.Use(middleware.RequireRoles(auth.RoleAdmin))
		r.Get("/", h.handleListEvents)
		r.Get("/export", h.handleExportEvents)
	})
}

func filterFrom(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{Action: q.Get("action"), EntityType: q.Get("entityType"), ActorID: q.Get("actorId")}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, audit.DefaultLimit, audit.MaxLimit)
	events, total, err := h.Service.List(r.Context(), filterFrom(r), page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("audit list failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", reqID)
		return
	}
	page.SetTotal(w, total)
	api.Success(w, events, reqID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	format := reports.FormatCSV
	if raw := r.URL.Query().Get("format"); raw != "" {
		parsed, err := reports.ParseFormat(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "unknown_format", "format must be csv, xlsx or pdf", reqID)
			return
		}
		format = parsed
	}

	events, _, err := h.Service.List(r.Context(), filterFrom(r), audit.MaxLimit, 0)
	if err != nil {
		h.logger.Error("audit export failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", reqID)
		return
	}

	exporter, _ := reports.ExporterFor(format)
	data, err := exporter.Render(auditReport(events))
	if err != nil {
		h.logger.Error("audit export render failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", reqID)
		return
	}
	if err := api.Attachment(w, format.ContentType(), "audit-events."+string(format), data); err != nil {
		h.logger.Warn("audit export write failed", zap.String("requestId", reqID), zap.Error(err))
	}
}

var auditHeaders = []string{"id", "actor_user_id", "actor_role", "action", "entity_type", "entity_id", "status", "request_id", "ip", "created_at"}

func auditReport(events []audit.Event) reports.Report {
	rows := make([]map[string]string, 0, len(events))
	for _, evt := range events {
		rows = append(rows, map[string]string{
			"id":            evt.ID,
			"actor_user_id": evt.ActorID,
			"actor_role":    evt.ActorRole,
			"action":        evt.Action,
			"entity_type":   evt.EntityType,
			"entity_id":     evt.EntityID,
			"status":        strconv.Itoa(evt.Status),
			"request_id":    evt.RequestID,
			"ip":            evt.IP,
			"created_at":    evt.CreatedAt.Format(time.RFC3339),
		})
	}
	return reports.Report{
		Title:    "Audit Events",
		Sections: []reports.Dataset{{Name: "Events", Headers: auditHeaders, Rows: rows}},
	}
}
