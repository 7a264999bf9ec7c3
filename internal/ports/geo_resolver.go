package ports

import (
	"commute-route-service/internal/domain"
	"context"
)

// A successfully resolved address.
type GeoMatch struct {
	Coord       domain.Coordinates
	DisplayName string
}

// Contract for turning free-text addresses into coordinates.
type GeoResolver interface {
	// Resolve returns the best match for address. When nothing matches it
	// returns a *domain.AddressResolutionFailure wrapping domain.ErrAddressNotFound,
	// optionally carrying candidate suggestions.
	Resolve(ctx context.Context, address string) (GeoMatch, error)
}

// Optional extension for resolvers that can list alternative matches.
type SuggestionProvider interface {
	Suggest(ctx context.Context, address string, limit int) ([]domain.Candidate, error)
}
