package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campaign/internal/coverage/models"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

type Service interface {
	GetCoverageStats(ctx context.Context, scope models.Scope, filters models.Filters) (*models.Stats, error)
	GetPriorityReport(ctx context.Context, scope models.Scope, filters models.Filters) (*models.PriorityReport, error)
}

// Handler serves the dashboard read contracts.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/coverage", h.HandleStats)
	r.Get("/coverage/priority", h.HandlePriority)
}

// HandleStats handles GET /coverage.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	scope, filters, err := parseQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.service.GetCoverageStats(ctx, scope, filters)
	if err != nil {
		h.logger.WarnContext(ctx, "coverage query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.DebugContext(ctx, "coverage served",
		"request_id", requestcontext.RequestID(ctx),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandlePriority handles GET /coverage/priority.
func (h *Handler) HandlePriority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scope, filters, err := parseQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.GetPriorityReport(ctx, scope, filters)
	if err != nil {
		h.logger.WarnContext(ctx, "priority query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPriority(report))
}
