package store

import (
	"context"
	"sort"
	"sync"

	"campaign/internal/organization/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
)

// InMemory keeps the organizational directory in maps guarded by one RWMutex.
// Returned records are copies; callers may mutate them freely.
type InMemory struct {
	mu         sync.RWMutex
	candidates map[id.CandidateID]*models.Candidate
	leaders    map[id.LeaderID]*models.Leader
	voters     map[id.VoterID]*models.Voter
	documents  map[string]id.VoterID
}

func NewInMemory() *InMemory {
	return &InMemory{
		candidates: make(map[id.CandidateID]*models.Candidate),
		leaders:    make(map[id.LeaderID]*models.Leader),
		voters:     make(map[id.VoterID]*models.Voter),
		documents:  make(map[string]id.VoterID),
	}
}

func (s *InMemory) SaveCandidate(_ context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.candidates[c.ID] = &cp
	return nil
}

func (s *InMemory) SaveLeader(_ context.Context, l *models.Leader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaders[l.ID] = copyLeader(l)
	return nil
}

// SaveVoter upserts a voter. A document number held by another voter yields ErrAlreadyUsed.
func (s *InMemory) SaveVoter(_ context.Context, v *models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.documents[v.DocumentNumber]; ok && owner != v.ID {
		return sentinel.ErrAlreadyUsed
	}
	if prev, ok := s.voters[v.ID]; ok {
		delete(s.documents, prev.DocumentNumber)
	}
	s.voters[v.ID] = copyVoter(v)
	s.documents[v.DocumentNumber] = v.ID
	return nil
}

func (s *InMemory) GetCandidate(_ context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) GetLeader(_ context.Context, leaderID id.LeaderID) (*models.Leader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leaders[leaderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyLeader(l), nil
}

func (s *InMemory) GetVoter(_ context.Context, voterID id.VoterID) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.voters[voterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyVoter(v), nil
}

// ListSubLeaders returns the immediate sub-leaders of leaderID.
func (s *InMemory) ListSubLeaders(_ context.Context, leaderID id.LeaderID) ([]*models.Leader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Leader
	for _, l := range s.leaders {
		if l.ParentLeaderID != nil && *l.ParentLeaderID == leaderID {
			out = append(out, copyLeader(l))
		}
	}
	sortLeaders(out)
	return out, nil
}

// ListTopLeaders returns the leaders of a candidate that have no parent.
func (s *InMemory) ListTopLeaders(_ context.Context, candidateID id.CandidateID) ([]*models.Leader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Leader
	for _, l := range s.leaders {
		if l.CandidateID == candidateID && l.IsTopLevel() {
			out = append(out, copyLeader(l))
		}
	}
	sortLeaders(out)
	return out, nil
}

func (s *InMemory) ListLeadersByCandidate(_ context.Context, candidateID id.CandidateID) ([]*models.Leader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Leader
	for _, l := range s.leaders {
		if l.CandidateID == candidateID {
			out = append(out, copyLeader(l))
		}
	}
	sortLeaders(out)
	return out, nil
}

// ListVoters returns the voters recruited directly by leaderID.
func (s *InMemory) ListVoters(ctx context.Context, leaderID id.LeaderID) ([]*models.Voter, error) {
	return s.ListVotersByLeaders(ctx, []id.LeaderID{leaderID})
}

func (s *InMemory) ListVotersByLeaders(_ context.Context, leaderIDs []id.LeaderID) ([]*models.Voter, error) {
	want := make(map[id.LeaderID]struct{}, len(leaderIDs))
	for _, l := range leaderIDs {
		want[l] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Voter
	for _, v := range s.voters {
		if v.LeaderID == nil {
			continue
		}
		if _, ok := want[*v.LeaderID]; ok {
			out = append(out, copyVoter(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func sortLeaders(ls []*models.Leader) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].Name != ls[j].Name {
			return ls[i].Name < ls[j].Name
		}
		return ls[i].ID.String() < ls[j].ID.String()
	})
}

func copyLeader(l *models.Leader) *models.Leader {
	cp := *l
	if l.ParentLeaderID != nil {
		parent := *l.ParentLeaderID
		cp.ParentLeaderID = &parent
	}
	return &cp
}

func copyVoter(v *models.Voter) *models.Voter {
	cp := *v
	if v.LeaderID != nil {
		leader := *v.LeaderID
		cp.LeaderID = &leader
	}
	if v.MunicipalityID != nil {
		m := *v.MunicipalityID
		cp.MunicipalityID = &m
	}
	if v.PollingStationID != nil {
		p := *v.PollingStationID
		cp.PollingStationID = &p
	}
	return &cp
}
