package store

import (
	"context"
	"sort"
	"sync"

	"campaign/internal/witness/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
)

// InMemory stores witnesses behind one mutex. Execute holds the lock across
// validation and mutation so concurrent checklist writes serialize per store.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.WitnessID]*models.Witness
	byCode  map[string]id.WitnessID
	byVoter map[id.VoterID]id.WitnessID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.WitnessID]*models.Witness),
		byCode:  make(map[string]id.WitnessID),
		byVoter: make(map[id.VoterID]id.WitnessID),
	}
}

// Create inserts a witness. A voter that already holds a witness record, or a
// code already in use, yields ErrAlreadyUsed.
func (s *InMemory) Create(_ context.Context, w *models.Witness) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byVoter[w.VoterID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := s.byCode[w.Code]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.byID[w.ID] = w.Clone()
	s.byCode[w.Code] = w.ID
	s.byVoter[w.VoterID] = w.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, witnessID id.WitnessID) (*models.Witness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byID[witnessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return w.Clone(), nil
}

func (s *InMemory) FindByCode(_ context.Context, code string) (*models.Witness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	witnessID, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[witnessID].Clone(), nil
}

func (s *InMemory) FindByVoter(_ context.Context, voterID id.VoterID) (*models.Witness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	witnessID, ok := s.byVoter[voterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[witnessID].Clone(), nil
}

// ListByLeaders returns the witnesses recruited by any of leaderIDs, ordered by code.
func (s *InMemory) ListByLeaders(_ context.Context, leaderIDs []id.LeaderID) ([]*models.Witness, error) {
	want := make(map[id.LeaderID]struct{}, len(leaderIDs))
	for _, l := range leaderIDs {
		want[l] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Witness
	for _, w := range s.byID {
		if _, ok := want[w.LeaderID]; ok {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Execute atomically validates and mutates a witness under the store lock.
// Validation errors are returned unchanged and the stored record is untouched.
func (s *InMemory) Execute(_ context.Context, witnessID id.WitnessID, validate func(*models.Witness) error, mutate func(*models.Witness)) (*models.Witness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[witnessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(stored); err != nil {
		return nil, err
	}
	working := stored.Clone()
	mutate(working)
	s.byID[witnessID] = working
	return working.Clone(), nil
}
