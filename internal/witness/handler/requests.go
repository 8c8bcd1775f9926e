package handler

import (
	"strings"

	"campaign/internal/witness/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

const maxProfileLength = 500

// AssignRequest is the body of POST /witnesses.
type AssignRequest struct {
	VoterID          string `json:"voter_id"`
	LeaderID         string `json:"leader_id"`
	PollingStationID string `json:"polling_station_id"`
	Tables           []int  `json:"tables"`
	Experience       string `json:"experience"`
	Availability     string `json:"availability"`
	EmergencyContact string `json:"emergency_contact"`

	parsedVoterID   id.VoterID
	parsedLeaderID  id.LeaderID
	parsedStationID id.PollingStationID
}

func (r *AssignRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	for _, f := range []string{r.Experience, r.Availability, r.EmergencyContact} {
		if len(f) > maxProfileLength {
			return dErrors.New(dErrors.CodeValidation, "profile fields must be at most 500 characters")
		}
	}
	var err error
	if r.parsedVoterID, err = id.ParseVoterID(strings.TrimSpace(r.VoterID)); err != nil {
		return err
	}
	if r.parsedLeaderID, err = id.ParseLeaderID(strings.TrimSpace(r.LeaderID)); err != nil {
		return err
	}
	if r.parsedStationID, err = id.ParsePollingStationID(strings.TrimSpace(r.PollingStationID)); err != nil {
		return err
	}
	return nil
}

func (r *AssignRequest) Profile() models.Profile {
	return models.Profile{
		Experience:       r.Experience,
		Availability:     r.Availability,
		EmergencyContact: r.EmergencyContact,
	}
}

// ChecklistRequest is the body of PATCH /witnesses/{witnessID}/checklist.
type ChecklistRequest struct {
	Field string `json:"field"`
	Value *bool  `json:"value"`
}

func (r *ChecklistRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Field = strings.TrimSpace(r.Field)
	if r.Field == "" {
		return dErrors.New(dErrors.CodeValidation, "field is required")
	}
	if r.Value == nil {
		return dErrors.New(dErrors.CodeValidation, "value is required")
	}
	return nil
}
