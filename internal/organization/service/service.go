package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"campaign/internal/organization/metrics"
	"campaign/internal/organization/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/requestcontext"
)

var (
	ErrLeaderNotFound    = errors.New("leader not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrCyclicHierarchy   = errors.New("cyclic leader hierarchy")
)

// Directory is the read side of the organizational store.
type Directory interface {
	GetCandidate(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error)
	GetLeader(ctx context.Context, leaderID id.LeaderID) (*models.Leader, error)
	ListSubLeaders(ctx context.Context, leaderID id.LeaderID) ([]*models.Leader, error)
	ListTopLeaders(ctx context.Context, candidateID id.CandidateID) ([]*models.Leader, error)
	ListVoters(ctx context.Context, leaderID id.LeaderID) ([]*models.Voter, error)
}

// Service expands leader subtrees with voter and sub-leader rollups.
type Service struct {
	directory Directory
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(directory Directory, opts ...Option) *Service {
	s := &Service{directory: directory}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// GetHierarchy expands leaderID into a node carrying its direct voters, its
// expanded sub-leaders and subtree totals.
func (s *Service) GetHierarchy(ctx context.Context, leaderID id.LeaderID) (*models.Node, error) {
	ctx, span := otel.Tracer("campaign/organization").Start(ctx, "organization.GetHierarchy")
	defer span.End()
	span.SetAttributes(attribute.String("leader_id", leaderID.String()))

	start := time.Now()
	root, err := s.directory.GetLeader(ctx, leaderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrLeaderNotFound, dErrors.CodeNotFound, "leader not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load leader")
	}

	node, visited, err := s.expand(ctx, root, true)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveHierarchy(start, visited)
	}
	return node, nil
}

// GetSubtree is GetHierarchy under the name used by the aggregation engine.
func (s *Service) GetSubtree(ctx context.Context, leaderID id.LeaderID) (*models.Node, error) {
	return s.GetHierarchy(ctx, leaderID)
}

// DescendantLeaderIDs returns leaderID followed by every leader below it.
// Voters are not loaded.
func (s *Service) DescendantLeaderIDs(ctx context.Context, leaderID id.LeaderID) ([]id.LeaderID, error) {
	root, err := s.directory.GetLeader(ctx, leaderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrLeaderNotFound, dErrors.CodeNotFound, "leader not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load leader")
	}
	node, _, err := s.expand(ctx, root, false)
	if err != nil {
		return nil, err
	}
	return node.LeaderIDs(), nil
}

// GetCandidateForest expands every top-level leader of the candidate.
func (s *Service) GetCandidateForest(ctx context.Context, candidateID id.CandidateID) (*models.Forest, error) {
	ctx, span := otel.Tracer("campaign/organization").Start(ctx, "organization.GetCandidateForest")
	defer span.End()

	start := time.Now()
	candidate, err := s.directory.GetCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrCandidateNotFound, dErrors.CodeNotFound, "candidate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}
	tops, err := s.directory.ListTopLeaders(ctx, candidateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list top-level leaders")
	}

	forest := &models.Forest{Candidate: candidate, Roots: make([]*models.Node, 0, len(tops))}
	visitedTotal := 0
	for _, top := range tops {
		node, visited, err := s.expand(ctx, top, true)
		if err != nil {
			return nil, err
		}
		visitedTotal += visited
		forest.Roots = append(forest.Roots, node)
		forest.TotalVoters += node.TotalVoters
		forest.TotalLeaders += 1 + node.TotalSubLeaders
	}
	if s.metrics != nil {
		s.metrics.ObserveHierarchy(start, visitedTotal)
	}
	return forest, nil
}

type frame struct {
	node     *models.Node
	expanded bool
}

// expand walks the subtree below root depth-first with an explicit stack.
// A node's totals are computed when it is popped, after all of its children.
// A leader met again while still on the current path is a cycle.
func (s *Service) expand(ctx context.Context, root *models.Leader, withVoters bool) (*models.Node, int, error) {
	rootNode := &models.Node{Leader: root}
	stack := []*frame{{node: rootNode}}
	onPath := map[id.LeaderID]bool{}
	done := map[id.LeaderID]bool{}
	visited := 0

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, visited, dErrors.Wrap(err, dErrors.CodeTimeout, "hierarchy expansion cancelled")
		}
		top := stack[len(stack)-1]
		leaderID := top.node.Leader.ID

		if top.expanded {
			stack = stack[:len(stack)-1]
			onPath[leaderID] = false
			done[leaderID] = true
			n := top.node
			n.TotalVoters = len(n.Voters)
			n.TotalSubLeaders = len(n.SubLeaders)
			for _, child := range n.SubLeaders {
				n.TotalVoters += child.TotalVoters
				n.TotalSubLeaders += child.TotalSubLeaders
			}
			continue
		}

		top.expanded = true
		onPath[leaderID] = true
		visited++

		if withVoters {
			voters, err := s.directory.ListVoters(ctx, leaderID)
			if err != nil {
				return nil, visited, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list voters")
			}
			top.node.Voters = voters
		}
		if top.node.Voters == nil {
			top.node.Voters = []*models.Voter{}
		}

		children, err := s.directory.ListSubLeaders(ctx, leaderID)
		if err != nil {
			return nil, visited, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sub-leaders")
		}
		top.node.SubLeaders = make([]*models.Node, 0, len(children))
		for _, child := range children {
			if onPath[child.ID] || done[child.ID] {
				s.logger.ErrorContext(ctx, "cyclic leader hierarchy",
					"request_id", requestcontext.RequestID(ctx),
					"root_leader_id", root.ID,
					"leader_id", leaderID,
					"repeated_leader_id", child.ID,
				)
				if s.metrics != nil {
					s.metrics.IncrementCycles()
				}
				return nil, visited, dErrors.Wrap(ErrCyclicHierarchy, dErrors.CodeInvariantViolation,
					"leader "+child.ID.String()+" appears twice in the hierarchy of "+root.ID.String())
			}
			childNode := &models.Node{Leader: child}
			top.node.SubLeaders = append(top.node.SubLeaders, childNode)
		}
		// Push in reverse so children are expanded in listing order.
		for i := len(top.node.SubLeaders) - 1; i >= 0; i-- {
			stack = append(stack, &frame{node: top.node.SubLeaders[i]})
		}
	}
	return rootNode, visited, nil
}
