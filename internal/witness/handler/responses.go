package handler

import (
	"time"

	"campaign/internal/witness/models"
)

type WitnessResponse struct {
	ID               string           `json:"id"`
	Code             string           `json:"code"`
	VoterID          string           `json:"voter_id"`
	LeaderID         string           `json:"leader_id"`
	PollingStationID string           `json:"polling_station_id"`
	AssignedTables   []int            `json:"assigned_tables"`
	Status           models.Status    `json:"status"`
	Checklist        models.Checklist `json:"checklist"`
	Experience       string           `json:"experience,omitempty"`
	Availability     string           `json:"availability,omitempty"`
	EmergencyContact string           `json:"emergency_contact,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func FromWitness(w *models.Witness) *WitnessResponse {
	return &WitnessResponse{
		ID:               w.ID.String(),
		Code:             w.Code,
		VoterID:          w.VoterID.String(),
		LeaderID:         w.LeaderID.String(),
		PollingStationID: w.PollingStationID.String(),
		AssignedTables:   w.AssignedTables,
		Status:           w.Status,
		Checklist:        w.Checklist,
		Experience:       w.Experience,
		Availability:     w.Availability,
		EmergencyContact: w.EmergencyContact,
		UpdatedAt:        w.UpdatedAt,
	}
}
