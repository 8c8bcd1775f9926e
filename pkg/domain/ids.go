// Package domain holds typed identifiers shared across modules.
//
// Each ID is a distinct named uuid type so a LeaderID can never be passed where
// a WitnessID is expected. Construct IDs from external input with the Parse*
// functions; they reject empty, malformed and nil UUIDs with CodeInvalidInput.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "campaign/pkg/domain-errors"
)

type (
	CandidateID      uuid.UUID
	LeaderID         uuid.UUID
	VoterID          uuid.UUID
	WitnessID        uuid.UUID
	MunicipalityID   uuid.UUID
	PollingStationID uuid.UUID
	ReportID         uuid.UUID
	UserID           uuid.UUID
)

func (id CandidateID) String() string      { return uuid.UUID(id).String() }
func (id LeaderID) String() string         { return uuid.UUID(id).String() }
func (id VoterID) String() string          { return uuid.UUID(id).String() }
func (id WitnessID) String() string        { return uuid.UUID(id).String() }
func (id MunicipalityID) String() string   { return uuid.UUID(id).String() }
func (id PollingStationID) String() string { return uuid.UUID(id).String() }
func (id ReportID) String() string         { return uuid.UUID(id).String() }
func (id UserID) String() string           { return uuid.UUID(id).String() }

func (id CandidateID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id LeaderID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id VoterID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id WitnessID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id MunicipalityID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PollingStationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }

// maxIDLength bounds input before it reaches uuid.Parse.
const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID("candidate_id", s)
	return CandidateID(u), err
}

func ParseLeaderID(s string) (LeaderID, error) {
	u, err := parseUUID("leader_id", s)
	return LeaderID(u), err
}

func ParseVoterID(s string) (VoterID, error) {
	u, err := parseUUID("voter_id", s)
	return VoterID(u), err
}

func ParseWitnessID(s string) (WitnessID, error) {
	u, err := parseUUID("witness_id", s)
	return WitnessID(u), err
}

func ParseMunicipalityID(s string) (MunicipalityID, error) {
	u, err := parseUUID("municipality_id", s)
	return MunicipalityID(u), err
}

func ParsePollingStationID(s string) (PollingStationID, error) {
	u, err := parseUUID("polling_station_id", s)
	return PollingStationID(u), err
}

func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID("report_id", s)
	return ReportID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user_id", s)
	return UserID(u), err
}

// TableKey identifies one voting table: a table number local to a polling station.
type TableKey struct {
	PollingStationID PollingStationID
	TableNumber      int
}
