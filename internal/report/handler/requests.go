package handler

import (
	"strings"

	"campaign/internal/report/models"
	"campaign/internal/report/service"
	dErrors "campaign/pkg/domain-errors"
)

// SubmitRequest is the body of POST /reports.
type SubmitRequest struct {
	WitnessCode        string `json:"witness_code"`
	TableNumber        int    `json:"table_number"`
	VotesCandidate     int    `json:"votes_candidate"`
	VotesRegistered    int    `json:"votes_registered"`
	VotesBlank         int    `json:"votes_blank"`
	VotesNull          int    `json:"votes_null"`
	Observations       string `json:"observations"`
	HasIrregularities  bool   `json:"has_irregularities"`
	IrregularityDetail string `json:"irregularity_detail"`
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.WitnessCode = strings.TrimSpace(r.WitnessCode)
	if r.WitnessCode == "" {
		return dErrors.New(dErrors.CodeValidation, "witness_code is required")
	}
	if len(r.WitnessCode) > 32 {
		return dErrors.New(dErrors.CodeValidation, "witness_code must be at most 32 characters")
	}
	if r.TableNumber < 1 {
		return dErrors.New(dErrors.CodeValidation, "table_number must be positive")
	}
	return nil
}

func (r *SubmitRequest) Command() service.SubmitCommand {
	return service.SubmitCommand{
		WitnessCode: r.WitnessCode,
		TableNumber: r.TableNumber,
		Counts: models.VoteCounts{
			Candidate:  r.VotesCandidate,
			Registered: r.VotesRegistered,
			Blank:      r.VotesBlank,
			Null:       r.VotesNull,
		},
		Observations:       r.Observations,
		HasIrregularities:  r.HasIrregularities,
		IrregularityDetail: r.IrregularityDetail,
	}
}

// ValidationRequest is the body of POST /reports/{reportID}/validation.
type ValidationRequest struct {
	IsValidated *bool `json:"is_validated"`
}

func (r *ValidationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.IsValidated == nil {
		return dErrors.New(dErrors.CodeValidation, "is_validated is required")
	}
	return nil
}
