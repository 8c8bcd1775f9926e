package store

import (
	"context"
	"sort"
	"sync"

	"campaign/internal/report/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
)

// InMemory is the report ledger keyed by (polling station, table).
// Upsert and Execute each run under one lock, so every write is linearizable.
type InMemory struct {
	mu      sync.RWMutex
	byKey   map[id.TableKey]*models.TableReport
	keyByID map[id.ReportID]id.TableKey
}

func NewInMemory() *InMemory {
	return &InMemory{
		byKey:   make(map[id.TableKey]*models.TableReport),
		keyByID: make(map[id.ReportID]id.TableKey),
	}
}

// Upsert inserts a report for the submission's table, or overwrites the live
// one. The existing ID and validation state are kept. A submission stamped
// before the stored one leaves the stored record unchanged.
func (s *InMemory) Upsert(_ context.Context, newID id.ReportID, sub models.Submission) (*models.TableReport, error) {
	key := id.TableKey{PollingStationID: sub.PollingStationID, TableNumber: sub.TableNumber}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byKey[key]; ok {
		if sub.ReportedAt.Before(existing.ReportedAt) {
			return existing.Clone(), nil
		}
		existing.ApplySubmission(sub)
		return existing.Clone(), nil
	}
	r := models.NewReport(newID, sub)
	s.byKey[key] = r
	s.keyByID[r.ID] = key
	return r.Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, reportID id.ReportID) (*models.TableReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keyByID[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byKey[key].Clone(), nil
}

func (s *InMemory) FindByTable(_ context.Context, key id.TableKey) (*models.TableReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byKey[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// ListByStations returns every live report at the given stations.
func (s *InMemory) ListByStations(_ context.Context, stationIDs []id.PollingStationID) ([]*models.TableReport, error) {
	want := make(map[id.PollingStationID]struct{}, len(stationIDs))
	for _, st := range stationIDs {
		want[st] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TableReport
	for key, r := range s.byKey {
		if _, ok := want[key.PollingStationID]; ok {
			out = append(out, r.Clone())
		}
	}
	sortReports(out)
	return out, nil
}

// ListStale returns validated reports resubmitted after validation, optionally
// restricted to one station.
func (s *InMemory) ListStale(_ context.Context, stationID *id.PollingStationID) ([]*models.TableReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TableReport
	for key, r := range s.byKey {
		if stationID != nil && key.PollingStationID != *stationID {
			continue
		}
		if r.IsStale() {
			out = append(out, r.Clone())
		}
	}
	sortReports(out)
	return out, nil
}

// Execute atomically validates and mutates a report under the store lock.
func (s *InMemory) Execute(_ context.Context, reportID id.ReportID, validate func(*models.TableReport) error, mutate func(*models.TableReport)) (*models.TableReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keyByID[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	stored := s.byKey[key]
	if err := validate(stored); err != nil {
		return nil, err
	}
	working := stored.Clone()
	mutate(working)
	s.byKey[key] = working
	return working.Clone(), nil
}

func sortReports(rs []*models.TableReport) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.PollingStationID != b.PollingStationID {
			return a.PollingStationID.String() < b.PollingStationID.String()
		}
		return a.TableNumber < b.TableNumber
	})
}
