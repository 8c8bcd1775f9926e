package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"campaign/internal/coverage/metrics"
	"campaign/internal/coverage/models"
	"campaign/internal/events"
	geomodels "campaign/internal/geo/models"
	orgmodels "campaign/internal/organization/models"
	reportmodels "campaign/internal/report/models"
	witnessmodels "campaign/internal/witness/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/requestcontext"
)

var ErrScopeNotFound = errors.New("coverage scope not found")

const (
	queryStats    = "stats"
	queryPriority = "priority"
)

type Directory interface {
	GetCandidate(ctx context.Context, candidateID id.CandidateID) (*orgmodels.Candidate, error)
	GetLeader(ctx context.Context, leaderID id.LeaderID) (*orgmodels.Leader, error)
	ListLeadersByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*orgmodels.Leader, error)
	ListVotersByLeaders(ctx context.Context, leaderIDs []id.LeaderID) ([]*orgmodels.Voter, error)
}

// Hierarchy expands a leader into its whole subtree.
type Hierarchy interface {
	DescendantLeaderIDs(ctx context.Context, leaderID id.LeaderID) ([]id.LeaderID, error)
}

type Witnesses interface {
	ListByLeaders(ctx context.Context, leaderIDs []id.LeaderID) ([]*witnessmodels.Witness, error)
}

type Reports interface {
	ListByStations(ctx context.Context, stationIDs []id.PollingStationID) ([]*reportmodels.TableReport, error)
}

type Catalog interface {
	ListPollingStations(ctx context.Context, stationIDs []id.PollingStationID) (map[id.PollingStationID]*geomodels.PollingStation, error)
	GetMunicipality(ctx context.Context, municipalityID id.MunicipalityID) (*geomodels.Municipality, error)
}

// Cache stores finished aggregations by key. Keys are stamped with the
// generation read before the aggregation starts, and Invalidate moves to a
// new generation, so a result computed from pre-write data is never served
// after the write.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Invalidate(ctx context.Context) error
}

// Service computes coverage rollups and priority lists. It only reads the
// stores; HandleEvent drops cached results when a write changes them.
type Service struct {
	directory Directory
	hierarchy Hierarchy
	witnesses Witnesses
	reports   Reports
	catalog   Catalog
	cache     Cache
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

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func New(directory Directory, hierarchy Hierarchy, witnesses Witnesses, reports Reports, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		directory: directory,
		hierarchy: hierarchy,
		witnesses: witnesses,
		reports:   reports,
		catalog:   catalog,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// resolved is a scope turned into concrete leader sets.
type resolved struct {
	candidateID id.CandidateID
	leaderIDs   []id.LeaderID
}

func (s *Service) resolve(ctx context.Context, scope models.Scope) (*resolved, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if scope.CandidateID != nil {
		if _, err := s.directory.GetCandidate(ctx, *scope.CandidateID); err != nil {
			return nil, s.scopeError(err)
		}
		leaders, err := s.directory.ListLeadersByCandidate(ctx, *scope.CandidateID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list leaders")
		}
		out := &resolved{candidateID: *scope.CandidateID, leaderIDs: make([]id.LeaderID, len(leaders))}
		for i, l := range leaders {
			out.leaderIDs[i] = l.ID
		}
		return out, nil
	}

	leader, err := s.directory.GetLeader(ctx, *scope.LeaderID)
	if err != nil {
		return nil, s.scopeError(err)
	}
	out := &resolved{candidateID: leader.CandidateID, leaderIDs: []id.LeaderID{leader.ID}}
	if scope.IncludeSubLeaders {
		ids, err := s.hierarchy.DescendantLeaderIDs(ctx, leader.ID)
		if err != nil {
			return nil, err
		}
		out.leaderIDs = ids
	}
	return out, nil
}

func (s *Service) scopeError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(ErrScopeNotFound, dErrors.CodeNotFound, "scope not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve scope")
}

// GetCoverageStats aggregates the reports of every witness recruited in scope.
func (s *Service) GetCoverageStats(ctx context.Context, scope models.Scope, filters models.Filters) (*models.Stats, error) {
	ctx, span := otel.Tracer("campaign/coverage").Start(ctx, "coverage.GetCoverageStats")
	defer span.End()

	start := time.Now()
	key := s.cacheKey(ctx, queryStats, scope, filters)
	var cached models.Stats
	if s.fromCache(ctx, queryStats, key, &cached) {
		return &cached, nil
	}

	r, err := s.resolve(ctx, scope)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("leaders", len(r.leaderIDs)))

	witnesses, err := s.witnesses.ListByLeaders(ctx, r.leaderIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list witnesses")
	}
	stationIDs := distinctStations(witnesses, nil)

	var (
		reports []*reportmodels.TableReport
		catalog models.Catalog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.reports.ListByStations(gctx, stationIDs)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = s.loadCatalog(gctx, stationIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load coverage data")
	}

	stats := models.ComputeStats(witnesses, reports, catalog, filters)
	s.logger.InfoContext(ctx, "coverage computed",
		"request_id", requestcontext.RequestID(ctx),
		"candidate_id", r.candidateID,
		"leaders", len(r.leaderIDs),
		"witnesses", stats.Witnesses,
		"tables_expected", stats.TotalTablesExpected,
		"tables_reported", stats.TotalTablesReported,
	)
	if s.metrics != nil {
		s.metrics.ObserveQuery(queryStats, start)
		s.metrics.ObserveTables(stats.TotalTablesExpected)
	}
	s.toCache(ctx, key, stats)
	return stats, nil
}

// GetPriorityReport ranks the tables where scope voters are registered by
// voter count. A table counts as covered when any witness of the scope's
// candidate is assigned to it.
func (s *Service) GetPriorityReport(ctx context.Context, scope models.Scope, filters models.Filters) (*models.PriorityReport, error) {
	ctx, span := otel.Tracer("campaign/coverage").Start(ctx, "coverage.GetPriorityReport")
	defer span.End()

	start := time.Now()
	key := s.cacheKey(ctx, queryPriority, scope, filters)
	var cached models.PriorityReport
	if s.fromCache(ctx, queryPriority, key, &cached) {
		return &cached, nil
	}

	r, err := s.resolve(ctx, scope)
	if err != nil {
		return nil, err
	}

	var (
		voters   []*orgmodels.Voter
		coverers []*witnessmodels.Witness
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		voters, err = s.directory.ListVotersByLeaders(gctx, r.leaderIDs)
		return err
	})
	g.Go(func() error {
		leaders, err := s.directory.ListLeadersByCandidate(gctx, r.candidateID)
		if err != nil {
			return err
		}
		ids := make([]id.LeaderID, len(leaders))
		for i, l := range leaders {
			ids[i] = l.ID
		}
		coverers, err = s.witnesses.ListByLeaders(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load priority data")
	}

	stationIDs := distinctStations(nil, voters)
	var (
		reports []*reportmodels.TableReport
		catalog models.Catalog
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.reports.ListByStations(gctx, stationIDs)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = s.loadCatalog(gctx, stationIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load priority data")
	}

	report := models.RankPriority(voters, coverers, reports, catalog, filters)
	s.logger.InfoContext(ctx, "priority report computed",
		"request_id", requestcontext.RequestID(ctx),
		"candidate_id", r.candidateID,
		"tables", len(report.Entries),
		"uncovered_tables", report.UncoveredTables,
	)
	if s.metrics != nil {
		s.metrics.ObserveQuery(queryPriority, start)
	}
	s.toCache(ctx, key, report)
	return report, nil
}

func (s *Service) loadCatalog(ctx context.Context, stationIDs []id.PollingStationID) (models.Catalog, error) {
	catalog := models.Catalog{Municipalities: map[id.MunicipalityID]*geomodels.Municipality{}}
	stations, err := s.catalog.ListPollingStations(ctx, stationIDs)
	if err != nil {
		return catalog, err
	}
	catalog.Stations = stations
	missing := map[id.MunicipalityID]bool{}
	for _, st := range stations {
		if _, seen := catalog.Municipalities[st.MunicipalityID]; seen || missing[st.MunicipalityID] {
			continue
		}
		m, err := s.catalog.GetMunicipality(ctx, st.MunicipalityID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				missing[st.MunicipalityID] = true
				continue
			}
			return catalog, err
		}
		catalog.Municipalities[st.MunicipalityID] = m
	}
	return catalog, nil
}

// HandleEvent invalidates cached aggregations after a ledger or checklist write.
func (s *Service) HandleEvent(ctx context.Context, event events.Event) error {
	if s.cache == nil {
		return nil
	}
	switch event.Type {
	case events.TypeReportSubmitted, events.TypeReportValidated,
		events.TypeWitnessAssigned, events.TypeWitnessChecklistUpdated:
	default:
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.ErrorContext(ctx, "coverage cache invalidation failed",
			"request_id", event.RequestID,
			"event_type", event.Type,
			"error", err,
		)
		return err
	}
	return nil
}

// cacheKey returns "" when the generation cannot be read; the query then
// bypasses the cache entirely.
func (s *Service) cacheKey(ctx context.Context, query string, scope models.Scope, filters models.Filters) string {
	if s.cache == nil {
		return ""
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "coverage cache generation unavailable", "error", err)
		return ""
	}
	return strconv.FormatInt(gen, 10) + ":" + models.CacheKey(query, scope, filters)
}

func (s *Service) fromCache(ctx context.Context, query, key string, dst any) bool {
	if s.cache == nil || key == "" {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.WarnContext(ctx, "coverage cache read failed", "key", key, "error", err)
		return false
	}
	if s.metrics != nil {
		s.metrics.ObserveCache(query, hit)
	}
	return hit
}

func (s *Service) toCache(ctx context.Context, key string, v any) {
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.WarnContext(ctx, "coverage cache write failed", "key", key, "error", err)
	}
}

func distinctStations(witnesses []*witnessmodels.Witness, voters []*orgmodels.Voter) []id.PollingStationID {
	seen := map[id.PollingStationID]struct{}{}
	var out []id.PollingStationID
	add := func(st id.PollingStationID) {
		if _, ok := seen[st]; !ok {
			seen[st] = struct{}{}
			out = append(out, st)
		}
	}
	for _, w := range witnesses {
		add(w.PollingStationID)
	}
	for _, v := range voters {
		if key, ok := v.Table(); ok {
			add(key.PollingStationID)
		}
	}
	return out
}
