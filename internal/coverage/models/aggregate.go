package models

import (
	"math"
	"sort"

	geomodels "campaign/internal/geo/models"
	orgmodels "campaign/internal/organization/models"
	reportmodels "campaign/internal/report/models"
	witnessmodels "campaign/internal/witness/models"
	id "campaign/pkg/domain"
)

// Percentage is candidate over general votes, rounded to the nearest integer.
// A zero denominator yields 0.
func Percentage(candidate, general int) int {
	if general <= 0 {
		return 0
	}
	return int(math.Round(float64(candidate) / float64(general) * 100))
}

// Catalog is the geographic reference data an aggregation needs.
type Catalog struct {
	Stations       map[id.PollingStationID]*geomodels.PollingStation
	Municipalities map[id.MunicipalityID]*geomodels.Municipality
}

func (c Catalog) municipalityOf(stationID id.PollingStationID) (id.MunicipalityID, bool) {
	st, ok := c.Stations[stationID]
	if !ok {
		return id.MunicipalityID{}, false
	}
	return st.MunicipalityID, true
}

// Matches reports whether a station passes the filters.
func (f Filters) Matches(stationID id.PollingStationID, catalog Catalog) bool {
	if f.PollingStationID != nil && *f.PollingStationID != stationID {
		return false
	}
	if f.MunicipalityID != nil {
		m, ok := catalog.municipalityOf(stationID)
		if !ok || m != *f.MunicipalityID {
			return false
		}
	}
	return true
}

type groupAcc struct {
	stats GroupStats
}

func (g *groupAcc) addReport(r *reportmodels.TableReport) {
	g.stats.TablesReported++
	if r.IsValidated {
		g.stats.TablesValidated++
	}
	g.stats.VotesCandidate += r.VotesCandidate
	g.stats.VotesGeneral += r.TotalVotes
}

// ComputeStats aggregates the reports of the given witnesses. Only witnesses
// passing the filters count. A report counts when it was submitted by an
// in-scope witness for one of that witness's assigned tables.
func ComputeStats(witnesses []*witnessmodels.Witness, reports []*reportmodels.TableReport, catalog Catalog, filters Filters) *Stats {
	stats := &Stats{ByPollingStation: []GroupStats{}, ByMunicipality: []GroupStats{}}
	inScope := make(map[id.WitnessID]*witnessmodels.Witness, len(witnesses))
	byStation := map[id.PollingStationID]*groupAcc{}
	byMunicipality := map[id.MunicipalityID]*groupAcc{}

	stationGroup := func(stationID id.PollingStationID) *groupAcc {
		g, ok := byStation[stationID]
		if !ok {
			g = &groupAcc{stats: GroupStats{ID: stationID.String(), Label: stationID.String()}}
			if st, found := catalog.Stations[stationID]; found && st.Code != "" {
				g.stats.Label = st.Code
			}
			byStation[stationID] = g
		}
		return g
	}
	municipalityGroup := func(stationID id.PollingStationID) *groupAcc {
		mID, ok := catalog.municipalityOf(stationID)
		if !ok {
			return nil
		}
		g, ok := byMunicipality[mID]
		if !ok {
			g = &groupAcc{stats: GroupStats{ID: mID.String(), Label: mID.String()}}
			if m, found := catalog.Municipalities[mID]; found && m.Name != "" {
				g.stats.Label = m.Name
			}
			byMunicipality[mID] = g
		}
		return g
	}

	for _, w := range witnesses {
		if !filters.Matches(w.PollingStationID, catalog) {
			continue
		}
		inScope[w.ID] = w
		n := len(w.AssignedTables)
		stats.TotalTablesExpected += n
		stationGroup(w.PollingStationID).stats.TablesExpected += n
		if mg := municipalityGroup(w.PollingStationID); mg != nil {
			mg.stats.TablesExpected += n
		}
	}
	stats.Witnesses = len(inScope)

	for _, r := range reports {
		w, ok := inScope[r.ReportedBy]
		if !ok || r.ReportedAt.IsZero() || r.PollingStationID != w.PollingStationID || !w.HasTable(r.TableNumber) {
			continue
		}
		stats.TotalTablesReported++
		stats.TotalVotesCandidate += r.VotesCandidate
		stats.TotalVotesGeneral += r.TotalVotes
		part := &stats.Pending
		if r.IsValidated {
			stats.TotalTablesValidated++
			part = &stats.Validated
		}
		part.Tables++
		part.VotesCandidate += r.VotesCandidate
		part.VotesGeneral += r.TotalVotes
		if r.IsStale() {
			stats.StaleValidations++
		}
		stationGroup(r.PollingStationID).addReport(r)
		if mg := municipalityGroup(r.PollingStationID); mg != nil {
			mg.addReport(r)
		}
	}

	stats.TotalTablesUnreported = stats.TotalTablesExpected - stats.TotalTablesReported
	stats.Percentage = Percentage(stats.TotalVotesCandidate, stats.TotalVotesGeneral)
	stats.Validated.Percentage = Percentage(stats.Validated.VotesCandidate, stats.Validated.VotesGeneral)
	stats.Pending.Percentage = Percentage(stats.Pending.VotesCandidate, stats.Pending.VotesGeneral)

	for _, g := range byStation {
		g.stats.Percentage = Percentage(g.stats.VotesCandidate, g.stats.VotesGeneral)
		stats.ByPollingStation = append(stats.ByPollingStation, g.stats)
	}
	for _, g := range byMunicipality {
		g.stats.Percentage = Percentage(g.stats.VotesCandidate, g.stats.VotesGeneral)
		stats.ByMunicipality = append(stats.ByMunicipality, g.stats)
	}
	sortGroups(stats.ByPollingStation)
	sortGroups(stats.ByMunicipality)
	return stats
}

func sortGroups(gs []GroupStats) {
	sort.Slice(gs, func(i, j int) bool {
		if gs[i].Label != gs[j].Label {
			return gs[i].Label < gs[j].Label
		}
		return gs[i].ID < gs[j].ID
	})
}

// RankPriority counts scope voters per table and flags the tables covered by
// any of coverers. Entries are ordered by voter count, highest first; ties go
// by station code then table number.
func RankPriority(voters []*orgmodels.Voter, coverers []*witnessmodels.Witness, reports []*reportmodels.TableReport, catalog Catalog, filters Filters) *PriorityReport {
	counts := map[id.TableKey]int{}
	for _, v := range voters {
		key, ok := v.Table()
		if !ok || !filters.Matches(key.PollingStationID, catalog) {
			continue
		}
		counts[key]++
	}

	covered := map[id.TableKey]bool{}
	for _, w := range coverers {
		for _, key := range w.Tables() {
			covered[key] = true
		}
	}
	reported := map[id.TableKey]bool{}
	for _, r := range reports {
		if !r.ReportedAt.IsZero() {
			reported[r.Key()] = true
		}
	}

	out := &PriorityReport{Entries: make([]PriorityEntry, 0, len(counts))}
	for key, n := range counts {
		entry := PriorityEntry{
			PollingStationID: key.PollingStationID,
			TableNumber:      key.TableNumber,
			VoterCount:       n,
			HasWitness:       covered[key],
			Reported:         reported[key],
		}
		if st, ok := catalog.Stations[key.PollingStationID]; ok {
			entry.PollingStationCode = st.Code
			m := st.MunicipalityID
			entry.MunicipalityID = &m
		}
		out.TotalVoters += n
		if !entry.HasWitness {
			out.UncoveredTables++
			out.UncoveredVoters += n
		}
		out.Entries = append(out.Entries, entry)
	}

	sort.Slice(out.Entries, func(i, j int) bool {
		a, b := out.Entries[i], out.Entries[j]
		if a.VoterCount != b.VoterCount {
			return a.VoterCount > b.VoterCount
		}
		if a.PollingStationCode != b.PollingStationCode {
			return a.PollingStationCode < b.PollingStationCode
		}
		if a.TableNumber != b.TableNumber {
			return a.TableNumber < b.TableNumber
		}
		return a.PollingStationID.String() < b.PollingStationID.String()
	})
	return out
}
