package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campaign/internal/witness/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/platform/tx"
)

// PostgresStore persists witnesses in electoral_witnesses.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const witnessColumns = `id, code, voter_id, leader_id, polling_station_id, assigned_tables, status,
	confirmed_attendance, received_credential, arrived_at_station, reported_voting_start, reported_voting_end, delivered_act,
	confirmed_at, credential_received_at, arrived_at, voting_start_at, voting_end_at, act_delivered_at,
	experience, availability, emergency_contact, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, w *models.Witness) error {
	c := w.Checklist
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO electoral_witnesses (`+witnessColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`,
		uuid.UUID(w.ID), w.Code, uuid.UUID(w.VoterID), uuid.UUID(w.LeaderID), uuid.UUID(w.PollingStationID),
		pq.Array(toInt64s(w.AssignedTables)), string(w.Status),
		c.ConfirmedAttendance, c.ReceivedCredential, c.ArrivedAtStation, c.ReportedVotingStart, c.ReportedVotingEnd, c.DeliveredAct,
		c.ConfirmedAt, c.CredentialReceivedAt, c.ArrivedAt, c.VotingStartAt, c.VotingEndAt, c.ActDeliveredAt,
		w.Experience, w.Availability, w.EmergencyContact, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create witness: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, witnessID id.WitnessID) (*models.Witness, error) {
	return s.findOne(ctx, "find witness by id",
		`SELECT `+witnessColumns+` FROM electoral_witnesses WHERE id = $1`, uuid.UUID(witnessID))
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Witness, error) {
	return s.findOne(ctx, "find witness by code",
		`SELECT `+witnessColumns+` FROM electoral_witnesses WHERE code = $1`, code)
}

func (s *PostgresStore) FindByVoter(ctx context.Context, voterID id.VoterID) (*models.Witness, error) {
	return s.findOne(ctx, "find witness by voter",
		`SELECT `+witnessColumns+` FROM electoral_witnesses WHERE voter_id = $1`, uuid.UUID(voterID))
}

func (s *PostgresStore) ListByLeaders(ctx context.Context, leaderIDs []id.LeaderID) ([]*models.Witness, error) {
	if len(leaderIDs) == 0 {
		return nil, nil
	}
	raw := make([]string, len(leaderIDs))
	for i, l := range leaderIDs {
		raw[i] = l.String()
	}
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+witnessColumns+` FROM electoral_witnesses WHERE leader_id = ANY($1::uuid[]) ORDER BY code`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("list witnesses: %w", err)
	}
	defer rows.Close()
	var out []*models.Witness
	for rows.Next() {
		w, err := scanWitness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan witness: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate witnesses: %w", err)
	}
	return out, nil
}

// Execute locks the witness row with SELECT ... FOR UPDATE, validates, mutates
// and writes it back inside one transaction.
func (s *PostgresStore) Execute(ctx context.Context, witnessID id.WitnessID, validate func(*models.Witness) error, mutate func(*models.Witness)) (*models.Witness, error) {
	var result *models.Witness
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		row := sqlTx.QueryRowContext(ctx,
			`SELECT `+witnessColumns+` FROM electoral_witnesses WHERE id = $1 FOR UPDATE`, uuid.UUID(witnessID))
		w, err := scanWitness(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock witness: %w", err)
		}
		if err := validate(w); err != nil {
			return err
		}
		mutate(w)

		c := w.Checklist
		_, err = sqlTx.ExecContext(ctx, `
			UPDATE electoral_witnesses SET
				assigned_tables = $2, status = $3,
				confirmed_attendance = $4, received_credential = $5, arrived_at_station = $6,
				reported_voting_start = $7, reported_voting_end = $8, delivered_act = $9,
				confirmed_at = $10, credential_received_at = $11, arrived_at = $12,
				voting_start_at = $13, voting_end_at = $14, act_delivered_at = $15,
				experience = $16, availability = $17, emergency_contact = $18, updated_at = $19
			WHERE id = $1
		`,
			uuid.UUID(w.ID), pq.Array(toInt64s(w.AssignedTables)), string(w.Status),
			c.ConfirmedAttendance, c.ReceivedCredential, c.ArrivedAtStation,
			c.ReportedVotingStart, c.ReportedVotingEnd, c.DeliveredAct,
			c.ConfirmedAt, c.CredentialReceivedAt, c.ArrivedAt,
			c.VotingStartAt, c.VotingEndAt, c.ActDeliveredAt,
			w.Experience, w.Availability, w.EmergencyContact, w.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update witness: %w", err)
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) findOne(ctx context.Context, op, query string, arg any) (*models.Witness, error) {
	w, err := scanWitness(tx.Execer(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWitness(row scanner) (*models.Witness, error) {
	var w models.Witness
	var rawID, rawVoter, rawLeader, rawStation uuid.UUID
	var tables pq.Int64Array
	var status string
	var confirmedAt, credentialAt, arrivedAt, startAt, endAt, actAt sql.NullTime
	c := &w.Checklist
	err := row.Scan(
		&rawID, &w.Code, &rawVoter, &rawLeader, &rawStation, &tables, &status,
		&c.ConfirmedAttendance, &c.ReceivedCredential, &c.ArrivedAtStation,
		&c.ReportedVotingStart, &c.ReportedVotingEnd, &c.DeliveredAct,
		&confirmedAt, &credentialAt, &arrivedAt, &startAt, &endAt, &actAt,
		&w.Experience, &w.Availability, &w.EmergencyContact, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.ID = id.WitnessID(rawID)
	w.VoterID = id.VoterID(rawVoter)
	w.LeaderID = id.LeaderID(rawLeader)
	w.PollingStationID = id.PollingStationID(rawStation)
	w.Status = models.Status(status)
	w.AssignedTables = make([]int, len(tables))
	for i, n := range tables {
		w.AssignedTables[i] = int(n)
	}
	c.ConfirmedAt = timePtr(confirmedAt)
	c.CredentialReceivedAt = timePtr(credentialAt)
	c.ArrivedAt = timePtr(arrivedAt)
	c.VotingStartAt = timePtr(startAt)
	c.VotingEndAt = timePtr(endAt)
	c.ActDeliveredAt = timePtr(actAt)
	return &w, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, n := range in {
		out[i] = int64(n)
	}
	return out
}
