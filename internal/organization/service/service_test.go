package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"campaign/internal/organization/models"
	"campaign/internal/organization/store"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

type HierarchySuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemory
	service   *Service
	candidate *models.Candidate
}

func TestHierarchySuite(t *testing.T) {
	suite.Run(t, new(HierarchySuite))
}

func (s *HierarchySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.service = New(s.store)
	s.candidate = &models.Candidate{ID: id.CandidateID(uuid.New()), Name: "Candidate", CreatedAt: time.Now()}
	s.Require().NoError(s.store.SaveCandidate(s.ctx, s.candidate))
}

func (s *HierarchySuite) leader(name string, parent *models.Leader) *models.Leader {
	l := &models.Leader{ID: id.LeaderID(uuid.New()), CandidateID: s.candidate.ID, Name: name}
	if parent != nil {
		p := parent.ID
		l.ParentLeaderID = &p
	}
	s.Require().NoError(s.store.SaveLeader(s.ctx, l))
	return l
}

func (s *HierarchySuite) voters(l *models.Leader, n int) {
	for i := 0; i < n; i++ {
		leaderID := l.ID
		v := &models.Voter{
			ID:             id.VoterID(uuid.New()),
			DocumentNumber: uuid.NewString(),
			Name:           l.Name + " voter",
			LeaderID:       &leaderID,
		}
		s.Require().NoError(s.store.SaveVoter(s.ctx, v))
	}
}

func (s *HierarchySuite) TestTotals() {
	root := s.leader("root", nil)
	a := s.leader("a", root)
	b := s.leader("b", root)
	a1 := s.leader("a1", a)
	a2 := s.leader("a2", a)
	s.voters(root, 2)
	s.voters(a, 3)
	s.voters(b, 1)
	s.voters(a1, 4)
	s.voters(a2, 0)

	node, err := s.service.GetHierarchy(s.ctx, root.ID)
	s.Require().NoError(err)

	s.Run("root totals cover the whole subtree", func() {
		s.Equal(10, node.TotalVoters)
		s.Equal(4, node.TotalSubLeaders)
		s.Len(node.Voters, 2)
		s.Len(node.SubLeaders, 2)
	})

	s.Run("sum identity holds at every node", func() {
		stack := []*models.Node{node}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			wantVoters, wantSub := len(n.Voters), len(n.SubLeaders)
			for _, c := range n.SubLeaders {
				wantVoters += c.TotalVoters
				wantSub += c.TotalSubLeaders
				stack = append(stack, c)
			}
			s.Equal(wantVoters, n.TotalVoters, n.Leader.Name)
			s.Equal(wantSub, n.TotalSubLeaders, n.Leader.Name)
		}
	})

	s.Run("leaf has empty collections", func() {
		leaf, err := s.service.GetHierarchy(s.ctx, a2.ID)
		s.Require().NoError(err)
		s.Equal(0, leaf.TotalVoters)
		s.Equal(0, leaf.TotalSubLeaders)
		s.NotNil(leaf.Voters)
		s.NotNil(leaf.SubLeaders)
	})

	s.Run("descendant ids in pre-order", func() {
		ids, err := s.service.DescendantLeaderIDs(s.ctx, root.ID)
		s.Require().NoError(err)
		s.Equal([]id.LeaderID{root.ID, a.ID, a1.ID, a2.ID, b.ID}, ids)
	})
}

func (s *HierarchySuite) TestDeepChainDoesNotRecurse() {
	parent := s.leader("level-0", nil)
	root := parent
	const depth = 2000
	for i := 1; i < depth; i++ {
		parent = s.leader("level", parent)
	}
	s.voters(parent, 1)

	node, err := s.service.GetHierarchy(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Equal(depth-1, node.TotalSubLeaders)
	s.Equal(1, node.TotalVoters)
}

func (s *HierarchySuite) TestCycleIsRejected() {
	a := s.leader("a", nil)
	b := s.leader("b", a)
	c := s.leader("c", b)
	// close the loop a -> c
	cID := c.ID
	a.ParentLeaderID = &cID
	s.Require().NoError(s.store.SaveLeader(s.ctx, a))

	_, err := s.service.GetHierarchy(s.ctx, a.ID)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrCyclicHierarchy))
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = s.service.DescendantLeaderIDs(s.ctx, b.ID)
	s.ErrorIs(err, ErrCyclicHierarchy)
}

func (s *HierarchySuite) TestNotFound() {
	_, err := s.service.GetHierarchy(s.ctx, id.LeaderID(uuid.New()))
	s.Require().ErrorIs(err, ErrLeaderNotFound)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.GetCandidateForest(s.ctx, id.CandidateID(uuid.New()))
	s.Require().ErrorIs(err, ErrCandidateNotFound)
}

func (s *HierarchySuite) TestCandidateForest() {
	r1 := s.leader("r1", nil)
	r2 := s.leader("r2", nil)
	child := s.leader("child", r1)
	s.voters(r1, 1)
	s.voters(r2, 2)
	s.voters(child, 3)

	forest, err := s.service.GetCandidateForest(s.ctx, s.candidate.ID)
	s.Require().NoError(err)
	s.Len(forest.Roots, 2)
	s.Equal(6, forest.TotalVoters)
	s.Equal(3, forest.TotalLeaders)
}
