package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"campaign/internal/events"
	geomodels "campaign/internal/geo/models"
	orgmodels "campaign/internal/organization/models"
	"campaign/internal/witness/metrics"
	"campaign/internal/witness/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/requestcontext"
)

var (
	ErrWitnessNotFound = errors.New("witness not found")
	ErrAlreadyWitness  = errors.New("voter is already a witness")
)

// maxCodeAttempts bounds retries when a generated access code collides.
const maxCodeAttempts = 5

type Store interface {
	Create(ctx context.Context, w *models.Witness) error
	FindByID(ctx context.Context, witnessID id.WitnessID) (*models.Witness, error)
	FindByCode(ctx context.Context, code string) (*models.Witness, error)
	FindByVoter(ctx context.Context, voterID id.VoterID) (*models.Witness, error)
	ListByLeaders(ctx context.Context, leaderIDs []id.LeaderID) ([]*models.Witness, error)
	Execute(ctx context.Context, witnessID id.WitnessID, validate func(*models.Witness) error, mutate func(*models.Witness)) (*models.Witness, error)
}

// Directory resolves the voter and leader named in an assignment.
type Directory interface {
	GetVoter(ctx context.Context, voterID id.VoterID) (*orgmodels.Voter, error)
	GetLeader(ctx context.Context, leaderID id.LeaderID) (*orgmodels.Leader, error)
}

type Catalog interface {
	GetPollingStation(ctx context.Context, stationID id.PollingStationID) (*geomodels.PollingStation, error)
}

// Service assigns witnesses and drives their election-day checklist.
type Service struct {
	store     Store
	directory Directory
	catalog   Catalog
	publisher events.Publisher
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

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func New(store Store, directory Directory, catalog Catalog, opts ...Option) *Service {
	s := &Service{store: store, directory: directory, catalog: catalog}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// AssignCommand carries the inputs of AssignWitness.
type AssignCommand struct {
	VoterID          id.VoterID
	LeaderID         id.LeaderID
	PollingStationID id.PollingStationID
	Tables           []int
	Profile          models.Profile
}

// AssignWitness registers a voter as the witness of up to MaxAssignedTables
// tables at one polling station.
func (s *Service) AssignWitness(ctx context.Context, cmd AssignCommand) (*models.Witness, error) {
	ctx, span := otel.Tracer("campaign/witness").Start(ctx, "witness.AssignWitness")
	defer span.End()

	if _, err := s.directory.GetVoter(ctx, cmd.VoterID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}
	if _, err := s.directory.GetLeader(ctx, cmd.LeaderID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "leader not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load leader")
	}
	station, err := s.catalog.GetPollingStation(ctx, cmd.PollingStationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "polling station not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load polling station")
	}
	tables, err := models.NormalizeTables(cmd.Tables, station.TotalTables)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.FindByVoter(ctx, cmd.VoterID); err == nil {
		return nil, dErrors.Wrap(ErrAlreadyWitness, dErrors.CodeConflict, "voter is already a witness")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing witness")
	}

	now := requestcontext.Now(ctx)
	profile := models.Profile{
		Experience:       strings.TrimSpace(cmd.Profile.Experience),
		Availability:     strings.TrimSpace(cmd.Profile.Availability),
		EmergencyContact: strings.TrimSpace(cmd.Profile.EmergencyContact),
	}

	var witness *models.Witness
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := models.GenerateCode()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate witness code")
		}
		witness, err = models.NewWitness(id.WitnessID(uuid.New()), code, cmd.VoterID, cmd.LeaderID,
			station.ID, tables, profile, now)
		if err != nil {
			return nil, err
		}
		err = s.store.Create(ctx, witness)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create witness")
		}
		// Either the voter was assigned concurrently or the code collided.
		if _, lookupErr := s.store.FindByVoter(ctx, cmd.VoterID); lookupErr == nil {
			return nil, dErrors.Wrap(ErrAlreadyWitness, dErrors.CodeConflict, "voter is already a witness")
		}
		witness = nil
	}
	if witness == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a unique witness code")
	}

	s.logger.InfoContext(ctx, "witness assigned",
		"request_id", requestcontext.RequestID(ctx),
		"witness_id", witness.ID,
		"leader_id", witness.LeaderID,
		"polling_station_id", witness.PollingStationID,
		"tables", witness.AssignedTables,
	)
	if s.metrics != nil {
		s.metrics.IncrementAssigned()
	}
	s.publish(ctx, events.New(ctx, events.TypeWitnessAssigned, witness.ID.String(), map[string]any{
		"witness_id":         witness.ID.String(),
		"leader_id":          witness.LeaderID.String(),
		"polling_station_id": witness.PollingStationID.String(),
		"assigned_tables":    witness.AssignedTables,
	}))
	return witness, nil
}

// UpdateChecklistField writes one checklist flag and recomputes the status in
// the same store operation.
func (s *Service) UpdateChecklistField(ctx context.Context, witnessID id.WitnessID, fieldName string, value bool) (*models.Witness, error) {
	ctx, span := otel.Tracer("campaign/witness").Start(ctx, "witness.UpdateChecklistField")
	defer span.End()
	span.SetAttributes(attribute.String("field", fieldName), attribute.Bool("value", value))

	start := time.Now()
	field, err := models.ParseChecklistField(fieldName)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var before models.Status
	witness, err := s.store.Execute(ctx, witnessID,
		func(w *models.Witness) error {
			before = w.Status
			return nil
		},
		func(w *models.Witness) {
			_ = w.ApplyChecklist(field, value, now) // field already parsed
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrWitnessNotFound, dErrors.CodeNotFound, "witness not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update checklist")
	}

	s.logger.InfoContext(ctx, "witness checklist updated",
		"request_id", requestcontext.RequestID(ctx),
		"witness_id", witness.ID,
		"field", field,
		"value", value,
		"status", witness.Status,
	)
	if s.metrics != nil {
		s.metrics.ObserveChecklistUpdate(start, string(field), value, string(before), string(witness.Status))
	}
	s.publish(ctx, events.New(ctx, events.TypeWitnessChecklistUpdated, witness.ID.String(), map[string]any{
		"witness_id":      witness.ID.String(),
		"field":           string(field),
		"value":           value,
		"status":          string(witness.Status),
		"previous_status": string(before),
	}))
	return witness, nil
}

func (s *Service) GetWitness(ctx context.Context, witnessID id.WitnessID) (*models.Witness, error) {
	w, err := s.store.FindByID(ctx, witnessID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrWitnessNotFound, dErrors.CodeNotFound, "witness not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load witness")
	}
	return w, nil
}

func (s *Service) GetWitnessByCode(ctx context.Context, code string) (*models.Witness, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "witness code is required")
	}
	w, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrWitnessNotFound, dErrors.CodeNotFound, "witness not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load witness")
	}
	return w, nil
}

// ListByLeader returns the witnesses recruited directly by leaderID.
func (s *Service) ListByLeader(ctx context.Context, leaderID id.LeaderID) ([]*models.Witness, error) {
	ws, err := s.store.ListByLeaders(ctx, []id.LeaderID{leaderID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list witnesses")
	}
	return ws, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"request_id", event.RequestID,
			"event_type", event.Type,
			"error", err,
		)
	}
}
