package ports

import (
	"commute-route-service/internal/domain"
	"context"
)

// Port: a boundary for retrieving trip input rows from a data source.
type TripRepository interface {
	// Retrieve all stored (day, origin, waypoint) rows in insertion order.
	ListTrips(ctx context.Context) ([]domain.TripRow, error)
}
