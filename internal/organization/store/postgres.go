package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campaign/internal/organization/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
	"campaign/pkg/platform/tx"
)

// PostgresStore persists candidates, leaders and voters.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const leaderColumns = `id, candidate_id, parent_leader_id, name, created_at`

const voterColumns = `id, document_number, name, leader_id, municipality_id, polling_station_id, table_number, created_at`

func (s *PostgresStore) SaveCandidate(ctx context.Context, c *models.Candidate) error {
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO candidates (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, uuid.UUID(c.ID), c.Name, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("save candidate: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveLeader(ctx context.Context, l *models.Leader) error {
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO leaders (id, candidate_id, parent_leader_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			candidate_id = EXCLUDED.candidate_id,
			parent_leader_id = EXCLUDED.parent_leader_id,
			name = EXCLUDED.name
	`, uuid.UUID(l.ID), uuid.UUID(l.CandidateID), nullLeader(l.ParentLeaderID), l.Name, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("save leader: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveVoter(ctx context.Context, v *models.Voter) error {
	var table sql.NullInt64
	if v.TableNumber > 0 {
		table = sql.NullInt64{Int64: int64(v.TableNumber), Valid: true}
	}
	var municipality, station uuid.NullUUID
	if v.MunicipalityID != nil {
		municipality = uuid.NullUUID{UUID: uuid.UUID(*v.MunicipalityID), Valid: true}
	}
	if v.PollingStationID != nil {
		station = uuid.NullUUID{UUID: uuid.UUID(*v.PollingStationID), Valid: true}
	}
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO voters (id, document_number, name, leader_id, municipality_id, polling_station_id, table_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			document_number = EXCLUDED.document_number,
			name = EXCLUDED.name,
			leader_id = EXCLUDED.leader_id,
			municipality_id = EXCLUDED.municipality_id,
			polling_station_id = EXCLUDED.polling_station_id,
			table_number = EXCLUDED.table_number
	`, uuid.UUID(v.ID), v.DocumentNumber, v.Name, nullLeader(v.LeaderID), municipality, station, table, v.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("save voter: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCandidate(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	var c models.Candidate
	var rawID uuid.UUID
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, name, created_at FROM candidates WHERE id = $1
	`, uuid.UUID(candidateID)).Scan(&rawID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	c.ID = id.CandidateID(rawID)
	return &c, nil
}

func (s *PostgresStore) GetLeader(ctx context.Context, leaderID id.LeaderID) (*models.Leader, error) {
	row := tx.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+leaderColumns+` FROM leaders WHERE id = $1`, uuid.UUID(leaderID))
	l, err := scanLeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get leader: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) GetVoter(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
	row := tx.Execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+voterColumns+` FROM voters WHERE id = $1`, uuid.UUID(voterID))
	v, err := scanVoter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get voter: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) ListSubLeaders(ctx context.Context, leaderID id.LeaderID) ([]*models.Leader, error) {
	return s.queryLeaders(ctx, "list sub-leaders",
		`SELECT `+leaderColumns+` FROM leaders WHERE parent_leader_id = $1 ORDER BY name, id`, uuid.UUID(leaderID))
}

func (s *PostgresStore) ListTopLeaders(ctx context.Context, candidateID id.CandidateID) ([]*models.Leader, error) {
	return s.queryLeaders(ctx, "list top leaders",
		`SELECT `+leaderColumns+` FROM leaders WHERE candidate_id = $1 AND parent_leader_id IS NULL ORDER BY name, id`, uuid.UUID(candidateID))
}

func (s *PostgresStore) ListLeadersByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*models.Leader, error) {
	return s.queryLeaders(ctx, "list leaders by candidate",
		`SELECT `+leaderColumns+` FROM leaders WHERE candidate_id = $1 ORDER BY name, id`, uuid.UUID(candidateID))
}

func (s *PostgresStore) ListVoters(ctx context.Context, leaderID id.LeaderID) ([]*models.Voter, error) {
	return s.ListVotersByLeaders(ctx, []id.LeaderID{leaderID})
}

func (s *PostgresStore) ListVotersByLeaders(ctx context.Context, leaderIDs []id.LeaderID) ([]*models.Voter, error) {
	if len(leaderIDs) == 0 {
		return nil, nil
	}
	raw := make([]string, len(leaderIDs))
	for i, l := range leaderIDs {
		raw[i] = l.String()
	}
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+voterColumns+` FROM voters WHERE leader_id = ANY($1::uuid[]) ORDER BY name, id`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("list voters: %w", err)
	}
	defer rows.Close()
	var out []*models.Voter
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voter: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voters: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) queryLeaders(ctx context.Context, op, query string, args ...any) ([]*models.Leader, error) {
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var out []*models.Leader
	for rows.Next() {
		l, err := scanLeader(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLeader(row scanner) (*models.Leader, error) {
	var l models.Leader
	var rawID, rawCandidate uuid.UUID
	var parent uuid.NullUUID
	if err := row.Scan(&rawID, &rawCandidate, &parent, &l.Name, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.ID = id.LeaderID(rawID)
	l.CandidateID = id.CandidateID(rawCandidate)
	if parent.Valid {
		p := id.LeaderID(parent.UUID)
		l.ParentLeaderID = &p
	}
	return &l, nil
}

func scanVoter(row scanner) (*models.Voter, error) {
	var v models.Voter
	var rawID uuid.UUID
	var leader, municipality, station uuid.NullUUID
	var table sql.NullInt64
	if err := row.Scan(&rawID, &v.DocumentNumber, &v.Name, &leader, &municipality, &station, &table, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.ID = id.VoterID(rawID)
	if leader.Valid {
		l := id.LeaderID(leader.UUID)
		v.LeaderID = &l
	}
	if municipality.Valid {
		m := id.MunicipalityID(municipality.UUID)
		v.MunicipalityID = &m
	}
	if station.Valid {
		p := id.PollingStationID(station.UUID)
		v.PollingStationID = &p
	}
	if table.Valid {
		v.TableNumber = int(table.Int64)
	}
	return &v, nil
}

func nullLeader(l *id.LeaderID) uuid.NullUUID {
	if l == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*l), Valid: true}
}
