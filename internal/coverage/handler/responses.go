package handler

import "campaign/internal/coverage/models"

type PriorityEntryResponse struct {
	PollingStationID   string `json:"polling_station_id"`
	PollingStationCode string `json:"polling_station_code"`
	MunicipalityID     string `json:"municipality_id,omitempty"`
	TableNumber        int    `json:"table_number"`
	VoterCount         int    `json:"voter_count"`
	HasWitness         bool   `json:"has_witness"`
	Reported           bool   `json:"reported"`
}

type PriorityResponse struct {
	Entries         []PriorityEntryResponse `json:"entries"`
	TotalVoters     int                     `json:"total_voters"`
	UncoveredTables int                     `json:"uncovered_tables"`
	UncoveredVoters int                     `json:"uncovered_voters"`
}

func FromPriority(p *models.PriorityReport) *PriorityResponse {
	resp := &PriorityResponse{
		Entries:         make([]PriorityEntryResponse, len(p.Entries)),
		TotalVoters:     p.TotalVoters,
		UncoveredTables: p.UncoveredTables,
		UncoveredVoters: p.UncoveredVoters,
	}
	for i, e := range p.Entries {
		resp.Entries[i] = PriorityEntryResponse{
			PollingStationID:   e.PollingStationID.String(),
			PollingStationCode: e.PollingStationCode,
			TableNumber:        e.TableNumber,
			VoterCount:         e.VoterCount,
			HasWitness:         e.HasWitness,
			Reported:           e.Reported,
		}
		if e.MunicipalityID != nil {
			resp.Entries[i].MunicipalityID = e.MunicipalityID.String()
		}
	}
	return resp
}
