package repositories

import (
	"commute-route-service/internal/adapters/tabular"
	"commute-route-service/internal/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
)

// InitSchema creates the trip_requests and geocode_cache tables.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createTripsQuery := `
	CREATE TABLE IF NOT EXISTS trip_requests (
		id BIGSERIAL PRIMARY KEY,
		day_key TEXT NOT NULL,
		origin TEXT NOT NULL,
		waypoint TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_trip_requests_day_key
	ON trip_requests(day_key);
	`

	statements := []string{
		createTripsQuery,
		createGeocodeCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// SeedFromCSV appends the trip rows of a CSV file to trip_requests.
func SeedFromCSV(ctx context.Context, db *sql.DB, csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("seed trips: open %q: %w", csvPath, err)
	}
	defer f.Close()

	rows, err := tabular.ParseTrips(f)
	if err != nil {
		return 0, fmt.Errorf("seed trips: %w", err)
	}

	return SeedRows(ctx, db, rows)
}

// SeedRows inserts trip rows in a single transaction. Rows with a blank
// origin, waypoint or day are rejected.
func SeedRows(ctx context.Context, db *sql.DB, rows []domain.TripRow) (int, error) {
	if db == nil {
		return 0, errors.New("seed trips: DB is nil")
	}

	for i, r := range rows {
		if strings.TrimSpace(r.DayKey) == "" {
			return 0, fmt.Errorf("seed trips: row %d: day cannot be empty", i+1)
		}
		if strings.TrimSpace(r.Origin) == "" {
			return 0, fmt.Errorf("seed trips: row %d: origin cannot be empty", i+1)
		}
		if strings.TrimSpace(r.Waypoint) == "" {
			return 0, fmt.Errorf("seed trips: row %d: waypoint cannot be empty", i+1)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed trips: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO trip_requests (
		day_key,
		origin,
		waypoint
	)
	VALUES ($1, $2, $3);
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed trips: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.DayKey, strings.TrimSpace(r.Origin), strings.TrimSpace(r.Waypoint)); err != nil {
			return 0, fmt.Errorf("seed trips: insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed trips: commit tx: %w", err)
	}

	return len(rows), nil
}
