package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campaign/internal/witness/models"
	"campaign/internal/witness/service"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

type Service interface {
	AssignWitness(ctx context.Context, cmd service.AssignCommand) (*models.Witness, error)
	GetWitness(ctx context.Context, witnessID id.WitnessID) (*models.Witness, error)
	UpdateChecklistField(ctx context.Context, witnessID id.WitnessID, field string, value bool) (*models.Witness, error)
}

// Handler serves witness assignment and checklist endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/witnesses", h.HandleAssign)
	r.Get("/witnesses/{witnessID}", h.HandleGet)
	r.Patch("/witnesses/{witnessID}/checklist", h.HandleChecklist)
}

// HandleAssign handles POST /witnesses.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	witness, err := h.service.AssignWitness(ctx, service.AssignCommand{
		VoterID:          req.parsedVoterID,
		LeaderID:         req.parsedLeaderID,
		PollingStationID: req.parsedStationID,
		Tables:           req.Tables,
		Profile:          req.Profile(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "witness assignment failed",
			"request_id", requestID,
			"voter_id", req.VoterID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromWitness(witness))
}

// HandleGet handles GET /witnesses/{witnessID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	witnessID, err := id.ParseWitnessID(chi.URLParam(r, "witnessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	witness, err := h.service.GetWitness(r.Context(), witnessID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWitness(witness))
}

// HandleChecklist handles PATCH /witnesses/{witnessID}/checklist.
func (h *Handler) HandleChecklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	witnessID, err := id.ParseWitnessID(chi.URLParam(r, "witnessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChecklistRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	witness, err := h.service.UpdateChecklistField(ctx, witnessID, req.Field, *req.Value)
	if err != nil {
		h.logger.WarnContext(ctx, "checklist update failed",
			"request_id", requestID,
			"witness_id", witnessID,
			"field", req.Field,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWitness(witness))
}
