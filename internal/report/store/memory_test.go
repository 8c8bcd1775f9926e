package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"campaign/internal/report/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
)

type ReportStoreSuite struct {
	suite.Suite
	store   *InMemory
	ctx     context.Context
	station id.PollingStationID
	t0      time.Time
}

func TestReportStoreSuite(t *testing.T) {
	suite.Run(t, new(ReportStoreSuite))
}

func (s *ReportStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.station = id.PollingStationID(uuid.New())
	s.t0 = time.Date(2026, 3, 8, 16, 0, 0, 0, time.UTC)
}

func (s *ReportStoreSuite) submission(table, candidate int, at time.Time) models.Submission {
	return models.Submission{
		PollingStationID: s.station,
		TableNumber:      table,
		Counts:           models.VoteCounts{Candidate: candidate, Registered: 300},
		ReportedBy:       id.WitnessID(uuid.New()),
		ReportedAt:       at,
	}
}

func (s *ReportStoreSuite) TestUpsertKeepsIdentity() {
	first, err := s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(1, 100, s.t0))
	s.Require().NoError(err)

	second, err := s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(1, 150, s.t0.Add(time.Minute)))
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(150, second.VotesCandidate)

	all, err := s.store.ListByStations(s.ctx, []id.PollingStationID{s.station})
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *ReportStoreSuite) TestOlderSubmissionIgnored() {
	_, err := s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(1, 100, s.t0))
	s.Require().NoError(err)

	got, err := s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(1, 90, s.t0.Add(-time.Minute)))
	s.Require().NoError(err)
	s.Equal(100, got.VotesCandidate)
}

func (s *ReportStoreSuite) TestFindAndList() {
	r1, err := s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(2, 10, s.t0))
	s.Require().NoError(err)
	_, err = s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(1, 10, s.t0))
	s.Require().NoError(err)

	got, err := s.store.FindByTable(s.ctx, id.TableKey{PollingStationID: s.station, TableNumber: 2})
	s.Require().NoError(err)
	s.Equal(r1.ID, got.ID)

	_, err = s.store.FindByID(s.ctx, id.ReportID(uuid.New()))
	s.True(errors.Is(err, sentinel.ErrNotFound))

	list, err := s.store.ListByStations(s.ctx, []id.PollingStationID{s.station, id.PollingStationID(uuid.New())})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(1, list[0].TableNumber)
	s.Equal(2, list[1].TableNumber)

	none, err := s.store.ListByStations(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *ReportStoreSuite) TestExecuteAndStale() {
	r, err := s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(1, 100, s.t0))
	s.Require().NoError(err)

	validator := id.UserID(uuid.New())
	validated, err := s.store.Execute(s.ctx, r.ID,
		func(*models.TableReport) error { return nil },
		func(tr *models.TableReport) { tr.ApplyValidation(true, validator, s.t0.Add(time.Minute)) },
	)
	s.Require().NoError(err)
	s.True(validated.IsValidated)

	stale, err := s.store.ListStale(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(stale)

	_, err = s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(1, 120, s.t0.Add(2*time.Minute)))
	s.Require().NoError(err)

	stale, err = s.store.ListStale(s.ctx, &s.station)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal(validator, *stale[0].ValidatedBy)

	other := id.PollingStationID(uuid.New())
	stale, err = s.store.ListStale(s.ctx, &other)
	s.Require().NoError(err)
	s.Empty(stale)
}

func (s *ReportStoreSuite) TestExecuteValidateAborts() {
	r, err := s.store.Upsert(s.ctx, id.ReportID(uuid.New()), s.submission(1, 100, s.t0))
	s.Require().NoError(err)

	boom := errors.New("boom")
	_, err = s.store.Execute(s.ctx, r.ID,
		func(*models.TableReport) error { return boom },
		func(tr *models.TableReport) { tr.VotesCandidate = 0 },
	)
	s.ErrorIs(err, boom)

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(100, got.VotesCandidate)
}
