package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"campaign/internal/events"
	"campaign/internal/report/metrics"
	"campaign/internal/report/models"
	witnessmodels "campaign/internal/witness/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/requestcontext"
)

var (
	ErrWitnessNotFound  = errors.New("witness not found")
	ErrTableNotAssigned = errors.New("table not assigned to witness")
	ErrReportNotFound   = errors.New("report not found")
)

const maxTextLength = 2000

type Store interface {
	Upsert(ctx context.Context, newID id.ReportID, sub models.Submission) (*models.TableReport, error)
	FindByID(ctx context.Context, reportID id.ReportID) (*models.TableReport, error)
	FindByTable(ctx context.Context, key id.TableKey) (*models.TableReport, error)
	ListStale(ctx context.Context, stationID *id.PollingStationID) ([]*models.TableReport, error)
	Execute(ctx context.Context, reportID id.ReportID, validate func(*models.TableReport) error, mutate func(*models.TableReport)) (*models.TableReport, error)
}

// Witnesses resolves the access code a field witness reports with.
type Witnesses interface {
	FindByCode(ctx context.Context, code string) (*witnessmodels.Witness, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service owns the table report ledger.
type Service struct {
	store     Store
	witnesses Witnesses
	publisher Publisher
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

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func New(store Store, witnesses Witnesses, opts ...Option) *Service {
	s := &Service{store: store, witnesses: witnesses}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SubmitCommand is a witness's reading of one table.
type SubmitCommand struct {
	WitnessCode        string
	TableNumber        int
	Counts             models.VoteCounts
	Observations       string
	HasIrregularities  bool
	IrregularityDetail string
}

// SubmitReport records the counts of one table, replacing any earlier report
// for the same table. Validation state of a replaced report is kept.
func (s *Service) SubmitReport(ctx context.Context, cmd SubmitCommand) (*models.TableReport, error) {
	ctx, span := otel.Tracer("campaign/report").Start(ctx, "report.SubmitReport")
	defer span.End()
	span.SetAttributes(attribute.Int("table_number", cmd.TableNumber))

	start := time.Now()
	if err := cmd.Counts.Validate(); err != nil {
		s.rejected("invalid_counts")
		return nil, err
	}
	if len(cmd.Observations) > maxTextLength || len(cmd.IrregularityDetail) > maxTextLength {
		s.rejected("text_too_long")
		return nil, dErrors.New(dErrors.CodeInvalidInput, "observations must be at most 2000 characters")
	}

	code := strings.ToUpper(strings.TrimSpace(cmd.WitnessCode))
	if code == "" {
		s.rejected("missing_witness")
		return nil, dErrors.New(dErrors.CodeInvalidInput, "witness code is required")
	}
	witness, err := s.witnesses.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejected("unknown_witness")
			return nil, dErrors.Wrap(ErrWitnessNotFound, dErrors.CodeNotFound, "witness not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load witness")
	}
	if !witness.HasTable(cmd.TableNumber) {
		s.rejected("table_not_assigned")
		return nil, dErrors.Wrap(ErrTableNotAssigned, dErrors.CodeInvalidInput,
			"table "+strconv.Itoa(cmd.TableNumber)+" is not assigned to this witness")
	}

	newID := id.ReportID(uuid.New())
	report, err := s.store.Upsert(ctx, newID, models.Submission{
		PollingStationID:   witness.PollingStationID,
		TableNumber:        cmd.TableNumber,
		Counts:             cmd.Counts,
		Observations:       strings.TrimSpace(cmd.Observations),
		HasIrregularities:  cmd.HasIrregularities,
		IrregularityDetail: strings.TrimSpace(cmd.IrregularityDetail),
		ReportedBy:         witness.ID,
		ReportedAt:         requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store report")
	}

	outcome := "replaced"
	if report.ID == newID {
		outcome = "created"
	}
	s.logger.InfoContext(ctx, "table report submitted",
		"request_id", requestcontext.RequestID(ctx),
		"report_id", report.ID,
		"witness_id", witness.ID,
		"polling_station_id", report.PollingStationID,
		"table_number", report.TableNumber,
		"outcome", outcome,
		"stale_validation", report.IsStale(),
	)
	if s.metrics != nil {
		s.metrics.ObserveSubmit(start, outcome)
	}
	s.publish(ctx, events.New(ctx, events.TypeReportSubmitted, report.Key().PollingStationID.String(), map[string]any{
		"report_id":          report.ID.String(),
		"polling_station_id": report.PollingStationID.String(),
		"table_number":       report.TableNumber,
		"votes_candidate":    report.VotesCandidate,
		"total_votes":        report.TotalVotes,
		"has_irregularities": report.HasIrregularities,
		"is_validated":       report.IsValidated,
	}))
	return report, nil
}

// ValidateTable sets or clears the validation flag of a report on behalf of
// the calling user. Counts are never modified.
func (s *Service) ValidateTable(ctx context.Context, reportID id.ReportID, validator id.UserID, isValidated bool) (*models.TableReport, error) {
	ctx, span := otel.Tracer("campaign/report").Start(ctx, "report.ValidateTable")
	defer span.End()

	start := time.Now()
	if isValidated && validator.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "validator identity is required")
	}
	now := requestcontext.Now(ctx)
	report, err := s.store.Execute(ctx, reportID,
		func(*models.TableReport) error { return nil },
		func(r *models.TableReport) {
			r.ApplyValidation(isValidated, validator, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrReportNotFound, dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate report")
	}

	s.logger.InfoContext(ctx, "table report validation set",
		"request_id", requestcontext.RequestID(ctx),
		"report_id", report.ID,
		"validator_id", validator,
		"is_validated", isValidated,
	)
	if s.metrics != nil {
		s.metrics.ObserveValidate(start, isValidated)
	}
	s.publish(ctx, events.New(ctx, events.TypeReportValidated, report.PollingStationID.String(), map[string]any{
		"report_id":          report.ID.String(),
		"polling_station_id": report.PollingStationID.String(),
		"table_number":       report.TableNumber,
		"is_validated":       report.IsValidated,
	}))
	return report, nil
}

func (s *Service) GetReport(ctx context.Context, reportID id.ReportID) (*models.TableReport, error) {
	r, err := s.store.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrReportNotFound, dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	return r, nil
}

func (s *Service) GetTableReport(ctx context.Context, stationID id.PollingStationID, tableNumber int) (*models.TableReport, error) {
	r, err := s.store.FindByTable(ctx, id.TableKey{PollingStationID: stationID, TableNumber: tableNumber})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(ErrReportNotFound, dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	return r, nil
}

// ListStaleValidations returns validated reports whose figures changed after validation.
func (s *Service) ListStaleValidations(ctx context.Context, stationID *id.PollingStationID) ([]*models.TableReport, error) {
	rs, err := s.store.ListStale(ctx, stationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stale validations")
	}
	return rs, nil
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(reason)
	}
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
