package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campaign/internal/report/models"
	"campaign/internal/report/service"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

type Service interface {
	SubmitReport(ctx context.Context, cmd service.SubmitCommand) (*models.TableReport, error)
	ValidateTable(ctx context.Context, reportID id.ReportID, validator id.UserID, isValidated bool) (*models.TableReport, error)
	GetReport(ctx context.Context, reportID id.ReportID) (*models.TableReport, error)
	ListStaleValidations(ctx context.Context, stationID *id.PollingStationID) ([]*models.TableReport, error)
}

// Handler serves the table report ledger.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the submission route. Field witnesses authenticate with
// their access code in the body, not with a bearer token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/reports", h.HandleSubmit)
}

// RegisterProtected mounts the read and validation routes. They must sit
// behind authentication.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/reports/stale", h.HandleListStale)
	r.Get("/reports/{reportID}", h.HandleGet)
	r.Post("/reports/{reportID}/validation", h.HandleValidate)
}

// HandleSubmit handles POST /reports.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.SubmitReport(ctx, req.Command())
	if err != nil {
		h.logger.WarnContext(ctx, "report submission failed",
			"request_id", requestID,
			"table_number", req.TableNumber,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "report accepted",
		"request_id", requestID,
		"report_id", report.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromReport(report))
}

// HandleGet handles GET /reports/{reportID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.GetReport(r.Context(), reportID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReport(report))
}

// HandleListStale handles GET /reports/stale.
func (h *Handler) HandleListStale(w http.ResponseWriter, r *http.Request) {
	var stationID *id.PollingStationID
	if raw := r.URL.Query().Get("polling_station_id"); raw != "" {
		parsed, err := id.ParsePollingStationID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		stationID = &parsed
	}
	reports, err := h.service.ListStaleValidations(r.Context(), stationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReports(reports))
}

// HandleValidate handles POST /reports/{reportID}/validation.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	validator := requestcontext.UserID(ctx)
	if validator.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ValidationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.ValidateTable(ctx, reportID, validator, *req.IsValidated)
	if err != nil {
		h.logger.WarnContext(ctx, "report validation failed",
			"request_id", requestID,
			"report_id", reportID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReport(report))
}
