//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	geomodels "campaign/internal/geo/models"
	geostore "campaign/internal/geo/store"
	orgmodels "campaign/internal/organization/models"
	orgstore "campaign/internal/organization/store"
	"campaign/internal/witness/models"
	"campaign/internal/witness/service"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/requestcontext"
	"campaign/pkg/testutil/containers"
)

// PostgresWitnessSuite runs the witness store and the checklist transaction
// against a real Postgres.
type PostgresWitnessSuite struct {
	suite.Suite
	pg      *containers.PostgresContainer
	store   *PostgresStore
	org     *orgstore.PostgresStore
	geo     *geostore.PostgresStore
	ctx     context.Context
	t0      time.Time
	leader  *orgmodels.Leader
	station *geomodels.PollingStation
}

func TestPostgresWitnessSuite(t *testing.T) {
	suite.Run(t, new(PostgresWitnessSuite))
}

func (s *PostgresWitnessSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.org = orgstore.NewPostgres(s.pg.DB)
	s.geo = geostore.NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresWitnessSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
	s.t0 = time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC)

	m := &geomodels.Municipality{ID: id.MunicipalityID(uuid.New()), DepartmentName: "D", Name: "Alpha"}
	s.Require().NoError(s.geo.SaveMunicipality(s.ctx, m))
	s.station = &geomodels.PollingStation{ID: id.PollingStationID(uuid.New()), Code: "PS-1", Name: "School", MunicipalityID: m.ID, TotalTables: 5}
	s.Require().NoError(s.geo.SavePollingStation(s.ctx, s.station))

	candidate := &orgmodels.Candidate{ID: id.CandidateID(uuid.New()), Name: "C", CreatedAt: s.t0}
	s.Require().NoError(s.org.SaveCandidate(s.ctx, candidate))
	s.leader = &orgmodels.Leader{ID: id.LeaderID(uuid.New()), CandidateID: candidate.ID, Name: "L1", CreatedAt: s.t0}
	s.Require().NoError(s.org.SaveLeader(s.ctx, s.leader))
}

func (s *PostgresWitnessSuite) voter() *orgmodels.Voter {
	v := &orgmodels.Voter{ID: id.VoterID(uuid.New()), DocumentNumber: uuid.NewString(), Name: "W", CreatedAt: s.t0}
	s.Require().NoError(s.org.SaveVoter(s.ctx, v))
	return v
}

func (s *PostgresWitnessSuite) newWitness(code string, voterID id.VoterID, tables ...int) *models.Witness {
	w, err := models.NewWitness(id.WitnessID(uuid.New()), code, voterID, s.leader.ID,
		s.station.ID, tables, models.Profile{Experience: "2022 local"}, s.t0)
	s.Require().NoError(err)
	return w
}

func (s *PostgresWitnessSuite) TestCreateAndRead() {
	w := s.newWitness("ABCD2345", s.voter().ID, 1, 2, 4)
	s.Require().NoError(s.store.Create(s.ctx, w))

	byCode, err := s.store.FindByCode(s.ctx, "ABCD2345")
	s.Require().NoError(err)
	s.Equal(w.ID, byCode.ID)
	s.Equal(w.AssignedTables, byCode.AssignedTables)
	s.Equal(models.StatusPending, byCode.Status)
	s.Equal("2022 local", byCode.Experience)
	s.Nil(byCode.Checklist.ConfirmedAt)
	s.Nil(byCode.Checklist.ActDeliveredAt)

	byVoter, err := s.store.FindByVoter(s.ctx, w.VoterID)
	s.Require().NoError(err)
	s.Equal(w.ID, byVoter.ID)

	listed, err := s.store.ListByLeaders(s.ctx, []id.LeaderID{s.leader.ID})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.True(listed[0].HasTable(4))

	_, err = s.store.FindByID(s.ctx, id.WitnessID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresWitnessSuite) TestUniqueVoterAndCode() {
	voter := s.voter()
	s.Require().NoError(s.store.Create(s.ctx, s.newWitness("ABCD2345", voter.ID, 1)))

	err := s.store.Create(s.ctx, s.newWitness("WXYZ6789", voter.ID, 2))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	err = s.store.Create(s.ctx, s.newWitness("ABCD2345", s.voter().ID, 3))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresWitnessSuite) TestExecuteAbortsOnValidationError() {
	w := s.newWitness("ABCD2345", s.voter().ID, 1)
	s.Require().NoError(s.store.Create(s.ctx, w))

	refuse := errors.New("refused")
	_, err := s.store.Execute(s.ctx, w.ID,
		func(*models.Witness) error { return refuse },
		func(w *models.Witness) { _ = w.ApplyChecklist(models.FieldDeliveredAct, true, s.t0) },
	)
	s.ErrorIs(err, refuse)

	stored, err := s.store.FindByID(s.ctx, w.ID)
	s.Require().NoError(err)
	s.False(stored.Checklist.DeliveredAct)

	_, err = s.store.Execute(s.ctx, id.WitnessID(uuid.New()),
		func(*models.Witness) error { return nil },
		func(*models.Witness) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresWitnessSuite) TestConcurrentChecklistUpdates() {
	w := s.newWitness("ABCD2345", s.voter().ID, 1, 2)
	s.Require().NoError(s.store.Create(s.ctx, w))
	svc := service.New(s.store, s.org, s.geo)

	_, err := svc.UpdateChecklistField(requestcontext.WithTime(s.ctx, s.t0), w.ID, string(models.FieldConfirmedAttendance), true)
	s.Require().NoError(err)

	t1 := s.t0.Add(3 * time.Hour)
	later := requestcontext.WithTime(s.ctx, t1)
	var wg sync.WaitGroup
	errs := make(chan error, 2*len(models.ChecklistFields))
	for range 2 {
		for _, field := range models.ChecklistFields {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.UpdateChecklistField(later, w.ID, string(field), true)
				errs <- err
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	stored, err := s.store.FindByID(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, stored.Status)
	c := stored.Checklist
	s.True(c.Complete())
	s.Require().NotNil(c.ConfirmedAt)
	s.True(c.ConfirmedAt.Equal(s.t0), "confirmed_at was overwritten: %s", c.ConfirmedAt)
	for _, stamp := range []*time.Time{c.CredentialReceivedAt, c.ArrivedAt, c.VotingStartAt, c.VotingEndAt, c.ActDeliveredAt} {
		s.Require().NotNil(stamp)
		s.True(stamp.Equal(t1), "unexpected stamp %s", stamp)
	}

	unchecked, err := svc.UpdateChecklistField(requestcontext.WithTime(s.ctx, t1.Add(time.Hour)), w.ID, string(models.FieldReceivedCredential), false)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, unchecked.Status)
	s.False(unchecked.Checklist.ReceivedCredential)
	s.Require().NotNil(unchecked.Checklist.CredentialReceivedAt)
	s.True(unchecked.Checklist.CredentialReceivedAt.Equal(t1))
}
