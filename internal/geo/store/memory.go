package store

import (
	"context"
	"sync"

	"campaign/internal/geo/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
)

// InMemory is the read-mostly catalog used in development and tests.
type InMemory struct {
	mu             sync.RWMutex
	municipalities map[id.MunicipalityID]*models.Municipality
	stations       map[id.PollingStationID]*models.PollingStation
}

func NewInMemory() *InMemory {
	return &InMemory{
		municipalities: make(map[id.MunicipalityID]*models.Municipality),
		stations:       make(map[id.PollingStationID]*models.PollingStation),
	}
}

func (s *InMemory) SaveMunicipality(_ context.Context, m *models.Municipality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.municipalities[m.ID] = &cp
	return nil
}

func (s *InMemory) SavePollingStation(_ context.Context, p *models.PollingStation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.stations[p.ID] = &cp
	return nil
}

func (s *InMemory) GetMunicipality(_ context.Context, municipalityID id.MunicipalityID) (*models.Municipality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.municipalities[municipalityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *InMemory) GetPollingStation(_ context.Context, stationID id.PollingStationID) (*models.PollingStation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.stations[stationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListPollingStations returns the stations that exist among ids; unknown ids are skipped.
func (s *InMemory) ListPollingStations(_ context.Context, ids []id.PollingStationID) (map[id.PollingStationID]*models.PollingStation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.PollingStationID]*models.PollingStation, len(ids))
	for _, stationID := range ids {
		if p, ok := s.stations[stationID]; ok {
			cp := *p
			out[stationID] = &cp
		}
	}
	return out, nil
}
