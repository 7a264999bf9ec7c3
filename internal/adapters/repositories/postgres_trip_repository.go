package repositories

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Postgres-backed implementation of the TripRepository port.
type PostgresTripRepository struct{ DB *sql.DB }

func NewPostgresTripRepository(db *sql.DB) *PostgresTripRepository {
	return &PostgresTripRepository{DB: db}
}

// ListTrips returns every stored trip row in insertion order, so grouping
// by day keeps the order in which days were first seen.
func (p *PostgresTripRepository) ListTrips(ctx context.Context) (_ []domain.TripRow, err error) {
	defer obs.Time(ctx, "trips.ListTrips")(&err)

	if p.DB == nil {
		return nil, errors.New("postgres trip repository: DB is nil")
	}

	query := `
	SELECT
		day_key,
		origin,
		waypoint
	FROM trip_requests
	ORDER BY id;
	`
	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list trips: query trip_requests table: %w", err)
	}
	defer rows.Close()

	trips := make([]domain.TripRow, 0, 64)
	for rows.Next() {
		var t domain.TripRow
		if err := rows.Scan(&t.DayKey, &t.Origin, &t.Waypoint); err != nil {
			return nil, fmt.Errorf("list trips: scan row: %w", err)
		}
		trips = append(trips, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trips: row iteration: %w", err)
	}

	return trips, nil
}
