package ports

import (
	"commute-route-service/internal/domain"
	"context"
)

// Driving distance and travel duration between two coordinates.
type RouteLeg struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// Contract for retrieving driving distance and duration between coordinates.
type RouteOracle interface {
	// Return the leg from -> to, or an error wrapping domain.ErrNoRoute when
	// the pair is unreachable.
	Route(ctx context.Context, from, to domain.Coordinates) (RouteLeg, error)
}
