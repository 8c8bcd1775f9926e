package models

import (
	"time"

	id "campaign/pkg/domain"
)

// Candidate is the root of a leader forest.
type Candidate struct {
	ID        id.CandidateID `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
}

// Leader recruits voters and sub-leaders. A nil ParentLeaderID marks a
// top-level leader of the candidate.
type Leader struct {
	ID             id.LeaderID    `json:"id"`
	CandidateID    id.CandidateID `json:"candidate_id"`
	ParentLeaderID *id.LeaderID   `json:"parent_leader_id,omitempty"`
	Name           string         `json:"name"`
	CreatedAt      time.Time      `json:"created_at"`
}

// IsTopLevel reports whether the leader hangs directly off the candidate.
func (l *Leader) IsTopLevel() bool {
	return l.ParentLeaderID == nil
}

// Voter is a registered supporter, optionally recruited by a leader and
// optionally placed at a voting table.
type Voter struct {
	ID               id.VoterID           `json:"id"`
	DocumentNumber   string               `json:"document_number"`
	Name             string               `json:"name"`
	LeaderID         *id.LeaderID         `json:"leader_id,omitempty"`
	MunicipalityID   *id.MunicipalityID   `json:"municipality_id,omitempty"`
	PollingStationID *id.PollingStationID `json:"polling_station_id,omitempty"`
	TableNumber      int                  `json:"table_number,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// Table returns the voting table of the voter, if both station and number are known.
func (v *Voter) Table() (id.TableKey, bool) {
	if v.PollingStationID == nil || v.TableNumber < 1 {
		return id.TableKey{}, false
	}
	return id.TableKey{PollingStationID: *v.PollingStationID, TableNumber: v.TableNumber}, true
}

// Node is one expanded leader in a hierarchy. Totals include the whole subtree.
type Node struct {
	Leader          *Leader  `json:"leader"`
	Voters          []*Voter `json:"voters"`
	SubLeaders      []*Node  `json:"sub_leaders"`
	TotalVoters     int      `json:"total_voters"`
	TotalSubLeaders int      `json:"total_sub_leaders"`
}

// LeaderIDs lists the node and every descendant in pre-order.
func (n *Node) LeaderIDs() []id.LeaderID {
	var out []id.LeaderID
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur.Leader.ID)
		for i := len(cur.SubLeaders) - 1; i >= 0; i-- {
			stack = append(stack, cur.SubLeaders[i])
		}
	}
	return out
}

// Forest is every top-level subtree of a candidate.
type Forest struct {
	Candidate    *Candidate `json:"candidate"`
	Roots        []*Node    `json:"roots"`
	TotalVoters  int        `json:"total_voters"`
	TotalLeaders int        `json:"total_leaders"`
}
