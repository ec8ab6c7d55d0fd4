package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the estimates table. It matches
// migrations/0001_create_estimates.sql.
const Schema = `
CREATE TABLE IF NOT EXISTS estimates (
    id                TEXT PRIMARY KEY,
    created_at        TIMESTAMPTZ NOT NULL,
    origin_depot      TEXT NOT NULL,
    destination_depot TEXT NOT NULL,
    vehicle_model     TEXT NOT NULL,
    journey_date      DATE NOT NULL,
    total_distance_km DOUBLE PRECISION NOT NULL,
    final_cost        DOUBLE PRECISION NOT NULL,
    document          JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS estimates_created_at_idx ON estimates (created_at DESC);
`

// PostgresRepository is a PostgreSQL implementation of Repository. The
// full estimate is kept as a JSONB document next to a few query columns.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL estimate repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the estimates table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("creating estimates schema: %w", err)
	}
	return nil
}

// Save upserts an estimate.
func (r *PostgresRepository) Save(ctx context.Context, e *Estimate) error {
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding estimate: %w", err)
	}

	query := `
		INSERT INTO estimates (
			id, created_at, origin_depot, destination_depot, vehicle_model,
			journey_date, total_distance_km, final_cost, document
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			origin_depot = EXCLUDED.origin_depot,
			destination_depot = EXCLUDED.destination_depot,
			vehicle_model = EXCLUDED.vehicle_model,
			journey_date = EXCLUDED.journey_date,
			total_distance_km = EXCLUDED.total_distance_km,
			final_cost = EXCLUDED.final_cost,
			document = EXCLUDED.document
	`

	_, err = r.pool.Exec(ctx, query,
		e.ID,
		e.CreatedAt,
		e.Request.OriginDepot,
		e.Request.DestinationDepot,
		e.Request.VehicleModel,
		e.Request.JourneyDate,
		e.Route.TotalDistance,
		e.Analytics.FinalCost,
		doc,
	)
	if err != nil {
		return fmt.Errorf("saving estimate %s: %w", e.ID, err)
	}
	return nil
}

// Get retrieves an estimate by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Estimate, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT document FROM estimates WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeEstimate(doc)
}

// List returns the most recent estimates, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*Estimate, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT document FROM estimates
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Estimate
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		e, err := decodeEstimate(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeEstimate(doc []byte) (*Estimate, error) {
	var e Estimate
	if err := json.Unmarshal(doc, &e); err != nil {
		return nil, fmt.Errorf("decoding estimate: %w", err)
	}
	return &e, nil
}
