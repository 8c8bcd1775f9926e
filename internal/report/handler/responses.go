package handler

import (
	"time"

	"campaign/internal/report/models"
)

type ReportResponse struct {
	ID                 string     `json:"id"`
	PollingStationID   string     `json:"polling_station_id"`
	TableNumber        int        `json:"table_number"`
	VotesCandidate     int        `json:"votes_candidate"`
	VotesRegistered    int        `json:"votes_registered"`
	VotesBlank         int        `json:"votes_blank"`
	VotesNull          int        `json:"votes_null"`
	TotalVotes         int        `json:"total_votes"`
	Observations       string     `json:"observations,omitempty"`
	HasIrregularities  bool       `json:"has_irregularities"`
	IrregularityDetail string     `json:"irregularity_detail,omitempty"`
	ReportedBy         string     `json:"reported_by"`
	ReportedAt         time.Time  `json:"reported_at"`
	IsValidated        bool       `json:"is_validated"`
	ValidatedBy        string     `json:"validated_by,omitempty"`
	ValidatedAt        *time.Time `json:"validated_at,omitempty"`
	StaleValidation    bool       `json:"stale_validation"`
}

func FromReport(r *models.TableReport) *ReportResponse {
	resp := &ReportResponse{
		ID:                 r.ID.String(),
		PollingStationID:   r.PollingStationID.String(),
		TableNumber:        r.TableNumber,
		VotesCandidate:     r.VotesCandidate,
		VotesRegistered:    r.VotesRegistered,
		VotesBlank:         r.VotesBlank,
		VotesNull:          r.VotesNull,
		TotalVotes:         r.TotalVotes,
		Observations:       r.Observations,
		HasIrregularities:  r.HasIrregularities,
		IrregularityDetail: r.IrregularityDetail,
		ReportedBy:         r.ReportedBy.String(),
		ReportedAt:         r.ReportedAt,
		IsValidated:        r.IsValidated,
		ValidatedAt:        r.ValidatedAt,
		StaleValidation:    r.IsStale(),
	}
	if r.ValidatedBy != nil {
		resp.ValidatedBy = r.ValidatedBy.String()
	}
	return resp
}

type ReportListResponse struct {
	Reports []*ReportResponse `json:"reports"`
}

func FromReports(rs []*models.TableReport) *ReportListResponse {
	out := &ReportListResponse{Reports: make([]*ReportResponse, 0, len(rs))}
	for _, r := range rs {
		out.Reports = append(out.Reports, FromReport(r))
	}
	return out
}
