package handler

import (
	"net/url"
	"strconv"

	"campaign/internal/coverage/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

// parseQuery reads the scope and filters shared by both coverage endpoints.
func parseQuery(q url.Values) (models.Scope, models.Filters, error) {
	var (
		scope   models.Scope
		filters models.Filters
	)
	if raw := q.Get("candidate_id"); raw != "" {
		candidateID, err := id.ParseCandidateID(raw)
		if err != nil {
			return scope, filters, err
		}
		scope.CandidateID = &candidateID
	}
	if raw := q.Get("leader_id"); raw != "" {
		leaderID, err := id.ParseLeaderID(raw)
		if err != nil {
			return scope, filters, err
		}
		scope.LeaderID = &leaderID
	}
	if raw := q.Get("include_sub_leaders"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return scope, filters, dErrors.New(dErrors.CodeInvalidInput, "include_sub_leaders must be a boolean")
		}
		scope.IncludeSubLeaders = v
	}
	if raw := q.Get("municipality_id"); raw != "" {
		municipalityID, err := id.ParseMunicipalityID(raw)
		if err != nil {
			return scope, filters, err
		}
		filters.MunicipalityID = &municipalityID
	}
	if raw := q.Get("polling_station_id"); raw != "" {
		stationID, err := id.ParsePollingStationID(raw)
		if err != nil {
			return scope, filters, err
		}
		filters.PollingStationID = &stationID
	}
	return scope, filters, scope.Validate()
}
