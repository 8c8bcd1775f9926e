package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campaign/internal/report/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/platform/tx"
)

// PostgresStore persists the ledger in table_reports.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const reportColumns = `id, polling_station_id, table_number, votes_candidate, votes_registered, votes_blank, votes_null,
	total_votes, observations, has_irregularities, irregularity_detail, reported_by, reported_at,
	is_validated, validated_by, validated_at`

// Upsert is one INSERT ... ON CONFLICT statement. The WHERE clause keeps a
// newer stored record; in that case no row is returned and the stored one is read back.
func (s *PostgresStore) Upsert(ctx context.Context, newID id.ReportID, sub models.Submission) (*models.TableReport, error) {
	exec := tx.Execer(ctx, s.db)
	c := sub.Counts
	row := exec.QueryRowContext(ctx, `
		INSERT INTO table_reports (id, polling_station_id, table_number, votes_candidate, votes_registered,
			votes_blank, votes_null, total_votes, observations, has_irregularities, irregularity_detail,
			reported_by, reported_at, is_validated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, FALSE)
		ON CONFLICT (polling_station_id, table_number) DO UPDATE SET
			votes_candidate = EXCLUDED.votes_candidate,
			votes_registered = EXCLUDED.votes_registered,
			votes_blank = EXCLUDED.votes_blank,
			votes_null = EXCLUDED.votes_null,
			total_votes = EXCLUDED.total_votes,
			observations = EXCLUDED.observations,
			has_irregularities = EXCLUDED.has_irregularities,
			irregularity_detail = EXCLUDED.irregularity_detail,
			reported_by = EXCLUDED.reported_by,
			reported_at = EXCLUDED.reported_at
		WHERE table_reports.reported_at <= EXCLUDED.reported_at
		RETURNING `+reportColumns,
		uuid.UUID(newID), uuid.UUID(sub.PollingStationID), sub.TableNumber,
		c.Candidate, c.Registered, c.Blank, c.Null, c.Total(),
		sub.Observations, sub.HasIrregularities, sub.IrregularityDetail,
		uuid.UUID(sub.ReportedBy), sub.ReportedAt,
	)
	r, err := scanReport(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upsert table report: %w", err)
	}
	existing, err := s.FindByTable(ctx, id.TableKey{PollingStationID: sub.PollingStationID, TableNumber: sub.TableNumber})
	if err != nil {
		return nil, fmt.Errorf("read newer table report: %w", err)
	}
	return existing, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reportID id.ReportID) (*models.TableReport, error) {
	r, err := scanReport(tx.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM table_reports WHERE id = $1`, uuid.UUID(reportID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find table report: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindByTable(ctx context.Context, key id.TableKey) (*models.TableReport, error) {
	r, err := scanReport(tx.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM table_reports WHERE polling_station_id = $1 AND table_number = $2`,
		uuid.UUID(key.PollingStationID), key.TableNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find table report by table: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByStations(ctx context.Context, stationIDs []id.PollingStationID) ([]*models.TableReport, error) {
	if len(stationIDs) == 0 {
		return nil, nil
	}
	raw := make([]string, len(stationIDs))
	for i, st := range stationIDs {
		raw[i] = st.String()
	}
	return s.query(ctx, "list table reports",
		`SELECT `+reportColumns+` FROM table_reports WHERE polling_station_id = ANY($1::uuid[])
		 ORDER BY polling_station_id, table_number`, pq.Array(raw))
}

func (s *PostgresStore) ListStale(ctx context.Context, stationID *id.PollingStationID) ([]*models.TableReport, error) {
	if stationID != nil {
		return s.query(ctx, "list stale table reports",
			`SELECT `+reportColumns+` FROM table_reports
			 WHERE is_validated AND validated_at IS NOT NULL AND reported_at > validated_at AND polling_station_id = $1
			 ORDER BY polling_station_id, table_number`, uuid.UUID(*stationID))
	}
	return s.query(ctx, "list stale table reports",
		`SELECT `+reportColumns+` FROM table_reports
		 WHERE is_validated AND validated_at IS NOT NULL AND reported_at > validated_at
		 ORDER BY polling_station_id, table_number`)
}

// Execute locks the report row, validates, mutates and writes back the
// validation columns. Counts are never written here.
func (s *PostgresStore) Execute(ctx context.Context, reportID id.ReportID, validate func(*models.TableReport) error, mutate func(*models.TableReport)) (*models.TableReport, error) {
	var result *models.TableReport
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		r, err := scanReport(sqlTx.QueryRowContext(ctx,
			`SELECT `+reportColumns+` FROM table_reports WHERE id = $1 FOR UPDATE`, uuid.UUID(reportID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock table report: %w", err)
		}
		if err := validate(r); err != nil {
			return err
		}
		mutate(r)

		var validatedBy uuid.NullUUID
		if r.ValidatedBy != nil {
			validatedBy = uuid.NullUUID{UUID: uuid.UUID(*r.ValidatedBy), Valid: true}
		}
		if _, err := sqlTx.ExecContext(ctx, `
			UPDATE table_reports SET is_validated = $2, validated_by = $3, validated_at = $4 WHERE id = $1
		`, uuid.UUID(r.ID), r.IsValidated, validatedBy, r.ValidatedAt); err != nil {
			return fmt.Errorf("update table report validation: %w", err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...any) ([]*models.TableReport, error) {
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var out []*models.TableReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*models.TableReport, error) {
	var r models.TableReport
	var rawID, rawStation, rawReporter uuid.UUID
	var validatedBy uuid.NullUUID
	var validatedAt sql.NullTime
	err := row.Scan(
		&rawID, &rawStation, &r.TableNumber,
		&r.VotesCandidate, &r.VotesRegistered, &r.VotesBlank, &r.VotesNull, &r.TotalVotes,
		&r.Observations, &r.HasIrregularities, &r.IrregularityDetail,
		&rawReporter, &r.ReportedAt, &r.IsValidated, &validatedBy, &validatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.ReportID(rawID)
	r.PollingStationID = id.PollingStationID(rawStation)
	r.ReportedBy = id.WitnessID(rawReporter)
	if validatedBy.Valid {
		v := id.UserID(validatedBy.UUID)
		r.ValidatedBy = &v
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		r.ValidatedAt = &t
	}
	return &r, nil
}
