package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"campaign/internal/platform/config"
)

// Open connects to Postgres, verifies the connection and applies the schema.
// Returns nil when no database URL is configured.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateSchema creates all tables needed by the stores.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS candidates (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS leaders (
    id UUID PRIMARY KEY,
    candidate_id UUID NOT NULL REFERENCES candidates(id),
    parent_leader_id UUID REFERENCES leaders(id),
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (parent_leader_id IS NULL OR parent_leader_id <> id)
);

CREATE INDEX IF NOT EXISTS idx_leaders_candidate ON leaders(candidate_id);
CREATE INDEX IF NOT EXISTS idx_leaders_parent ON leaders(parent_leader_id);

CREATE TABLE IF NOT EXISTS municipalities (
    id UUID PRIMARY KEY,
    department_name TEXT NOT NULL,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS polling_stations (
    id UUID PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    municipality_id UUID NOT NULL REFERENCES municipalities(id),
    total_tables INT NOT NULL CHECK (total_tables >= 0)
);

CREATE INDEX IF NOT EXISTS idx_polling_stations_municipality ON polling_stations(municipality_id);

CREATE TABLE IF NOT EXISTS voters (
    id UUID PRIMARY KEY,
    document_number TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    leader_id UUID REFERENCES leaders(id),
    municipality_id UUID REFERENCES municipalities(id),
    polling_station_id UUID REFERENCES polling_stations(id),
    table_number INT
);

CREATE INDEX IF NOT EXISTS idx_voters_leader ON voters(leader_id);
CREATE INDEX IF NOT EXISTS idx_voters_table ON voters(polling_station_id, table_number);

CREATE TABLE IF NOT EXISTS electoral_witnesses (
    id UUID PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    voter_id UUID NOT NULL UNIQUE REFERENCES voters(id),
    leader_id UUID NOT NULL REFERENCES leaders(id),
    polling_station_id UUID NOT NULL REFERENCES polling_stations(id),
    assigned_tables INT[] NOT NULL CHECK (cardinality(assigned_tables) > 0),
    status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'CONFIRMED', 'COMPLETED')),
    confirmed_attendance BOOLEAN NOT NULL DEFAULT FALSE,
    received_credential BOOLEAN NOT NULL DEFAULT FALSE,
    arrived_at_station BOOLEAN NOT NULL DEFAULT FALSE,
    reported_voting_start BOOLEAN NOT NULL DEFAULT FALSE,
    reported_voting_end BOOLEAN NOT NULL DEFAULT FALSE,
    delivered_act BOOLEAN NOT NULL DEFAULT FALSE,
    confirmed_at TIMESTAMPTZ,
    credential_received_at TIMESTAMPTZ,
    arrived_at TIMESTAMPTZ,
    voting_start_at TIMESTAMPTZ,
    voting_end_at TIMESTAMPTZ,
    act_delivered_at TIMESTAMPTZ,
    experience TEXT NOT NULL DEFAULT '',
    availability TEXT NOT NULL DEFAULT '',
    emergency_contact TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_witnesses_leader ON electoral_witnesses(leader_id);
CREATE INDEX IF NOT EXISTS idx_witnesses_station ON electoral_witnesses(polling_station_id);

CREATE TABLE IF NOT EXISTS table_reports (
    id UUID PRIMARY KEY,
    polling_station_id UUID NOT NULL REFERENCES polling_stations(id),
    table_number INT NOT NULL,
    votes_candidate INT NOT NULL CHECK (votes_candidate >= 0),
    votes_registered INT NOT NULL CHECK (votes_registered >= 0),
    votes_blank INT NOT NULL CHECK (votes_blank >= 0),
    votes_null INT NOT NULL CHECK (votes_null >= 0),
    total_votes INT NOT NULL,
    observations TEXT NOT NULL DEFAULT '',
    has_irregularities BOOLEAN NOT NULL DEFAULT FALSE,
    irregularity_detail TEXT NOT NULL DEFAULT '',
    reported_by UUID NOT NULL REFERENCES electoral_witnesses(id),
    reported_at TIMESTAMPTZ NOT NULL,
    is_validated BOOLEAN NOT NULL DEFAULT FALSE,
    validated_by UUID,
    validated_at TIMESTAMPTZ,
    UNIQUE (polling_station_id, table_number)
);

CREATE INDEX IF NOT EXISTS idx_table_reports_reporter ON table_reports(reported_by);
`
