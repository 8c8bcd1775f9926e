package models

import (
	"errors"
	"strconv"
	"strings"

	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

var ErrInvalidScope = errors.New("invalid coverage scope")

// Scope selects the witnesses and voters a query aggregates over: every leader
// of a candidate, or one leader (optionally with its whole subtree).
type Scope struct {
	CandidateID       *id.CandidateID
	LeaderID          *id.LeaderID
	IncludeSubLeaders bool
}

func (s Scope) Validate() error {
	if (s.CandidateID == nil) == (s.LeaderID == nil) {
		return dErrors.Wrap(ErrInvalidScope, dErrors.CodeInvalidInput, "exactly one of candidate_id or leader_id is required")
	}
	if s.CandidateID != nil && s.IncludeSubLeaders {
		return dErrors.Wrap(ErrInvalidScope, dErrors.CodeInvalidInput, "include_sub_leaders applies to leader scopes only")
	}
	return nil
}

// Filters narrow a scope geographically. Nil fields do not filter.
type Filters struct {
	MunicipalityID   *id.MunicipalityID
	PollingStationID *id.PollingStationID
}

// CacheKey is stable for equal scope and filter values.
func CacheKey(kind string, scope Scope, filters Filters) string {
	var b strings.Builder
	b.WriteString(kind)
	if scope.CandidateID != nil {
		b.WriteString(":c:" + scope.CandidateID.String())
	}
	if scope.LeaderID != nil {
		b.WriteString(":l:" + scope.LeaderID.String() + ":" + strconv.FormatBool(scope.IncludeSubLeaders))
	}
	if filters.MunicipalityID != nil {
		b.WriteString(":m:" + filters.MunicipalityID.String())
	}
	if filters.PollingStationID != nil {
		b.WriteString(":s:" + filters.PollingStationID.String())
	}
	return b.String()
}

// Breakdown is one slice of the reported tables.
type Breakdown struct {
	Tables         int `json:"tables"`
	VotesCandidate int `json:"votes_candidate"`
	VotesGeneral   int `json:"votes_general"`
	Percentage     int `json:"percentage"`
}

// GroupStats aggregates the tables of one polling station or municipality.
type GroupStats struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	TablesExpected  int    `json:"tables_expected"`
	TablesReported  int    `json:"tables_reported"`
	TablesValidated int    `json:"tables_validated"`
	VotesCandidate  int    `json:"votes_candidate"`
	VotesGeneral    int    `json:"votes_general"`
	Percentage      int    `json:"percentage"`
}

type Stats struct {
	TotalTablesExpected   int          `json:"total_tables_expected"`
	TotalTablesReported   int          `json:"total_tables_reported"`
	TotalTablesUnreported int          `json:"total_tables_unreported"`
	TotalTablesValidated  int          `json:"total_tables_validated"`
	TotalVotesCandidate   int          `json:"total_votes_candidate"`
	TotalVotesGeneral     int          `json:"total_votes_general"`
	Percentage            int          `json:"percentage"`
	Validated             Breakdown    `json:"validated"`
	Pending               Breakdown    `json:"pending"`
	StaleValidations      int          `json:"stale_validations"`
	ByPollingStation      []GroupStats `json:"by_polling_station"`
	ByMunicipality        []GroupStats `json:"by_municipality"`
	Witnesses             int          `json:"witnesses"`
}

// PriorityEntry is one table with voters registered at it.
type PriorityEntry struct {
	PollingStationID   id.PollingStationID `json:"polling_station_id"`
	PollingStationCode string              `json:"polling_station_code"`
	MunicipalityID     *id.MunicipalityID  `json:"municipality_id,omitempty"`
	TableNumber        int                 `json:"table_number"`
	VoterCount         int                 `json:"voter_count"`
	HasWitness         bool                `json:"has_witness"`
	Reported           bool                `json:"reported"`
}

type PriorityReport struct {
	Entries         []PriorityEntry `json:"entries"`
	TotalVoters     int             `json:"total_voters"`
	UncoveredTables int             `json:"uncovered_tables"`
	UncoveredVoters int             `json:"uncovered_voters"`
}
