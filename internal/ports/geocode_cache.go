package ports

import (
	"commute-route-service/internal/domain"
	"context"
)

// Address -> coordinate cache consulted before calling a geocoder.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
