package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campaign/internal/organization/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

// Service defines the hierarchy read operations used by the handler.
type Service interface {
	GetHierarchy(ctx context.Context, leaderID id.LeaderID) (*models.Node, error)
	GetCandidateForest(ctx context.Context, candidateID id.CandidateID) (*models.Forest, error)
}

// Handler serves the organizational tree read contracts.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts hierarchy endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/leaders/{leaderID}/hierarchy", h.HandleLeaderHierarchy)
	r.Get("/candidates/{candidateID}/hierarchy", h.HandleCandidateForest)
}

// HandleLeaderHierarchy handles GET /leaders/{leaderID}/hierarchy.
func (h *Handler) HandleLeaderHierarchy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	leaderID, err := id.ParseLeaderID(chi.URLParam(r, "leaderID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	node, err := h.service.GetHierarchy(ctx, leaderID)
	if err != nil {
		h.logger.ErrorContext(ctx, "hierarchy expansion failed",
			"request_id", requestID,
			"leader_id", leaderID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "hierarchy expanded",
		"request_id", requestID,
		"leader_id", leaderID,
		"total_voters", node.TotalVoters,
		"total_sub_leaders", node.TotalSubLeaders,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromNode(node))
}

// HandleCandidateForest handles GET /candidates/{candidateID}/hierarchy.
func (h *Handler) HandleCandidateForest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	forest, err := h.service.GetCandidateForest(ctx, candidateID)
	if err != nil {
		h.logger.ErrorContext(ctx, "candidate forest expansion failed",
			"request_id", requestID,
			"candidate_id", candidateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromForest(forest))
}
