//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"campaign/internal/organization/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/testutil/containers"
)

type PostgresDirectorySuite struct {
	suite.Suite
	pg        *containers.PostgresContainer
	store     *PostgresStore
	ctx       context.Context
	candidate *models.Candidate
}

func TestPostgresDirectorySuite(t *testing.T) {
	suite.Run(t, new(PostgresDirectorySuite))
}

func (s *PostgresDirectorySuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresDirectorySuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
	s.candidate = &models.Candidate{ID: id.CandidateID(uuid.New()), Name: "C", CreatedAt: time.Now()}
	s.Require().NoError(s.store.SaveCandidate(s.ctx, s.candidate))
}

func (s *PostgresDirectorySuite) leader(name string, parent *models.Leader) *models.Leader {
	l := &models.Leader{ID: id.LeaderID(uuid.New()), CandidateID: s.candidate.ID, Name: name, CreatedAt: time.Now()}
	if parent != nil {
		p := parent.ID
		l.ParentLeaderID = &p
	}
	s.Require().NoError(s.store.SaveLeader(s.ctx, l))
	return l
}

func (s *PostgresDirectorySuite) TestTreeQueries() {
	root := s.leader("root", nil)
	b := s.leader("b", root)
	a := s.leader("a", root)

	subs, err := s.store.ListSubLeaders(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Require().Len(subs, 2)
	s.Equal(a.ID, subs[0].ID)
	s.Equal(b.ID, subs[1].ID)

	tops, err := s.store.ListTopLeaders(s.ctx, s.candidate.ID)
	s.Require().NoError(err)
	s.Require().Len(tops, 1)
	s.True(tops[0].IsTopLevel())

	all, err := s.store.ListLeadersByCandidate(s.ctx, s.candidate.ID)
	s.Require().NoError(err)
	s.Len(all, 3)

	_, err = s.store.GetLeader(s.ctx, id.LeaderID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresDirectorySuite) TestVoters() {
	l1 := s.leader("l1", nil)
	l2 := s.leader("l2", nil)
	for i, l := range []*models.Leader{l1, l1, l2} {
		leaderID := l.ID
		s.Require().NoError(s.store.SaveVoter(s.ctx, &models.Voter{
			ID: id.VoterID(uuid.New()), DocumentNumber: uuid.NewString(), Name: string(rune('a' + i)), LeaderID: &leaderID,
		}))
	}

	direct, err := s.store.ListVoters(s.ctx, l1.ID)
	s.Require().NoError(err)
	s.Len(direct, 2)

	both, err := s.store.ListVotersByLeaders(s.ctx, []id.LeaderID{l1.ID, l2.ID})
	s.Require().NoError(err)
	s.Len(both, 3)

	dup := &models.Voter{ID: id.VoterID(uuid.New()), DocumentNumber: direct[0].DocumentNumber, Name: "dup"}
	s.ErrorIs(s.store.SaveVoter(s.ctx, dup), sentinel.ErrAlreadyUsed)
}
