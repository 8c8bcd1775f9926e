package handler

import "campaign/internal/organization/models"

type VoterResponse struct {
	ID               string `json:"id"`
	DocumentNumber   string `json:"document_number"`
	Name             string `json:"name"`
	PollingStationID string `json:"polling_station_id,omitempty"`
	TableNumber      int    `json:"table_number,omitempty"`
}

type NodeResponse struct {
	LeaderID        string          `json:"leader_id"`
	Name            string          `json:"name"`
	ParentLeaderID  string          `json:"parent_leader_id,omitempty"`
	Voters          []VoterResponse `json:"voters"`
	SubLeaders      []*NodeResponse `json:"sub_leaders"`
	TotalVoters     int             `json:"total_voters"`
	TotalSubLeaders int             `json:"total_sub_leaders"`
}

type ForestResponse struct {
	CandidateID   string          `json:"candidate_id"`
	CandidateName string          `json:"candidate_name"`
	Roots         []*NodeResponse `json:"roots"`
	TotalVoters   int             `json:"total_voters"`
	TotalLeaders  int             `json:"total_leaders"`
}

// FromNode converts a hierarchy node breadth-first, without recursion.
func FromNode(n *models.Node) *NodeResponse {
	type pending struct {
		src *models.Node
		dst *NodeResponse
	}
	root := newNodeResponse(n)
	queue := []pending{{src: n, dst: root}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range cur.src.SubLeaders {
			dst := newNodeResponse(child)
			cur.dst.SubLeaders = append(cur.dst.SubLeaders, dst)
			queue = append(queue, pending{src: child, dst: dst})
		}
	}
	return root
}

func newNodeResponse(n *models.Node) *NodeResponse {
	resp := &NodeResponse{
		LeaderID:        n.Leader.ID.String(),
		Name:            n.Leader.Name,
		Voters:          make([]VoterResponse, 0, len(n.Voters)),
		SubLeaders:      make([]*NodeResponse, 0, len(n.SubLeaders)),
		TotalVoters:     n.TotalVoters,
		TotalSubLeaders: n.TotalSubLeaders,
	}
	if n.Leader.ParentLeaderID != nil {
		resp.ParentLeaderID = n.Leader.ParentLeaderID.String()
	}
	for _, v := range n.Voters {
		vr := VoterResponse{
			ID:             v.ID.String(),
			DocumentNumber: v.DocumentNumber,
			Name:           v.Name,
			TableNumber:    v.TableNumber,
		}
		if v.PollingStationID != nil {
			vr.PollingStationID = v.PollingStationID.String()
		}
		resp.Voters = append(resp.Voters, vr)
	}
	return resp
}

func FromForest(f *models.Forest) *ForestResponse {
	resp := &ForestResponse{
		CandidateID:   f.Candidate.ID.String(),
		CandidateName: f.Candidate.Name,
		Roots:         make([]*NodeResponse, 0, len(f.Roots)),
		TotalVoters:   f.TotalVoters,
		TotalLeaders:  f.TotalLeaders,
	}
	for _, root := range f.Roots {
		resp.Roots = append(resp.Roots, FromNode(root))
	}
	return resp
}
