package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"campaign/internal/witness/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
)

type WitnessStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestWitnessStoreSuite(t *testing.T) {
	suite.Run(t, new(WitnessStoreSuite))
}

func (s *WitnessStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *WitnessStoreSuite) newWitness(code string, leaderID id.LeaderID) *models.Witness {
	w, err := models.NewWitness(id.WitnessID(uuid.New()), code, id.VoterID(uuid.New()), leaderID,
		id.PollingStationID(uuid.New()), []int{1, 2}, models.Profile{}, time.Now())
	s.Require().NoError(err)
	return w
}

func (s *WitnessStoreSuite) TestCreateAndFind() {
	leaderID := id.LeaderID(uuid.New())
	w := s.newWitness("ABCD2345", leaderID)
	s.Require().NoError(s.store.Create(s.ctx, w))

	s.Run("by id", func() {
		got, err := s.store.FindByID(s.ctx, w.ID)
		s.Require().NoError(err)
		s.Equal(w.Code, got.Code)
	})

	s.Run("by code", func() {
		got, err := s.store.FindByCode(s.ctx, "ABCD2345")
		s.Require().NoError(err)
		s.Equal(w.ID, got.ID)
	})

	s.Run("by voter", func() {
		got, err := s.store.FindByVoter(s.ctx, w.VoterID)
		s.Require().NoError(err)
		s.Equal(w.ID, got.ID)
	})

	s.Run("by leaders", func() {
		other := s.newWitness("ZZZZ2345", id.LeaderID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, other))
		got, err := s.store.ListByLeaders(s.ctx, []id.LeaderID{leaderID})
		s.Require().NoError(err)
		s.Len(got, 1)
	})

	s.Run("unknown code", func() {
		_, err := s.store.FindByCode(s.ctx, "NOPE")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *WitnessStoreSuite) TestUniqueness() {
	w := s.newWitness("CODE2345", id.LeaderID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, w))

	s.Run("same voter twice", func() {
		dup := s.newWitness("OTHER234", w.LeaderID)
		dup.VoterID = w.VoterID
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
	})

	s.Run("same code twice", func() {
		dup := s.newWitness("CODE2345", w.LeaderID)
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
	})
}

func (s *WitnessStoreSuite) TestExecute() {
	w := s.newWitness("EXEC2345", id.LeaderID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, w))

	s.Run("validation failure leaves record untouched", func() {
		boom := errors.New("boom")
		_, err := s.store.Execute(s.ctx, w.ID,
			func(*models.Witness) error { return boom },
			func(w *models.Witness) { w.Experience = "changed" },
		)
		s.ErrorIs(err, boom)
		got, err := s.store.FindByID(s.ctx, w.ID)
		s.Require().NoError(err)
		s.Empty(got.Experience)
	})

	s.Run("unknown witness", func() {
		_, err := s.store.Execute(s.ctx, id.WitnessID(uuid.New()),
			func(*models.Witness) error { return nil },
			func(*models.Witness) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("concurrent checklist writes all land", func() {
		var wg sync.WaitGroup
		now := time.Now()
		for _, f := range models.ChecklistFields {
			wg.Add(1)
			go func(field models.ChecklistField) {
				defer wg.Done()
				_, err := s.store.Execute(s.ctx, w.ID,
					func(*models.Witness) error { return nil },
					func(w *models.Witness) { _ = w.ApplyChecklist(field, true, now) },
				)
				s.NoError(err)
			}(f)
		}
		wg.Wait()

		got, err := s.store.FindByID(s.ctx, w.ID)
		s.Require().NoError(err)
		s.True(got.Checklist.Complete())
		s.Equal(models.StatusCompleted, got.Status)
	})
}
