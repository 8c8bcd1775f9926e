package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campaign/internal/geo/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/sentinel"
)

// PostgresStore reads the catalog tables loaded by the import tooling.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveMunicipality(ctx context.Context, m *models.Municipality) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO municipalities (id, department_name, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET department_name = EXCLUDED.department_name, name = EXCLUDED.name
	`, uuid.UUID(m.ID), m.DepartmentName, m.Name)
	if err != nil {
		return fmt.Errorf("save municipality: %w", err)
	}
	return nil
}

func (s *PostgresStore) SavePollingStation(ctx context.Context, p *models.PollingStation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO polling_stations (id, code, name, municipality_id, total_tables)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			municipality_id = EXCLUDED.municipality_id,
			total_tables = EXCLUDED.total_tables
	`, uuid.UUID(p.ID), p.Code, p.Name, uuid.UUID(p.MunicipalityID), p.TotalTables)
	if err != nil {
		return fmt.Errorf("save polling station: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMunicipality(ctx context.Context, municipalityID id.MunicipalityID) (*models.Municipality, error) {
	var m models.Municipality
	var rawID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, department_name, name FROM municipalities WHERE id = $1
	`, uuid.UUID(municipalityID)).Scan(&rawID, &m.DepartmentName, &m.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get municipality: %w", err)
	}
	m.ID = id.MunicipalityID(rawID)
	return &m, nil
}

func (s *PostgresStore) GetPollingStation(ctx context.Context, stationID id.PollingStationID) (*models.PollingStation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, municipality_id, total_tables FROM polling_stations WHERE id = $1
	`, uuid.UUID(stationID))
	p, err := scanStation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get polling station: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPollingStations(ctx context.Context, ids []id.PollingStationID) (map[id.PollingStationID]*models.PollingStation, error) {
	out := make(map[id.PollingStationID]*models.PollingStation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	raw := make([]string, len(ids))
	for i, stationID := range ids {
		raw[i] = stationID.String()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, municipality_id, total_tables FROM polling_stations WHERE id = ANY($1::uuid[])
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("list polling stations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan polling station: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate polling stations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner) (*models.PollingStation, error) {
	var p models.PollingStation
	var rawID, rawMunicipality uuid.UUID
	if err := row.Scan(&rawID, &p.Code, &p.Name, &rawMunicipality, &p.TotalTables); err != nil {
		return nil, err
	}
	p.ID = id.PollingStationID(rawID)
	p.MunicipalityID = id.MunicipalityID(rawMunicipality)
	return &p, nil
}
