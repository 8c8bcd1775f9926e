package models

import id "campaign/pkg/domain"

// Municipality groups polling stations for the geographic rollup.
type Municipality struct {
	ID             id.MunicipalityID `json:"id"`
	DepartmentName string            `json:"department_name"`
	Name           string            `json:"name"`
}

// PollingStation is the geographic leaf. Its tables are numbered 1..TotalTables.
type PollingStation struct {
	ID             id.PollingStationID `json:"id"`
	Code           string              `json:"code"`
	Name           string              `json:"name"`
	MunicipalityID id.MunicipalityID   `json:"municipality_id"`
	TotalTables    int                 `json:"total_tables"`
}

// HasTable reports whether n is a valid table number at this station.
func (p *PollingStation) HasTable(n int) bool {
	return n >= 1 && n <= p.TotalTables
}
