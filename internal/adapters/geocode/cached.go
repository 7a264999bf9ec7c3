package geocode

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/ports"
	"context"
	"log"
	"strings"
)

// CachedResolver answers from a GeocodeCache before asking the inner
// resolver and stores successful resolutions. Cache errors are logged and
// never fail a resolution.
type CachedResolver struct {
	inner ports.GeoResolver
	cache ports.GeocodeCache
}

func NewCachedResolver(inner ports.GeoResolver, cache ports.GeocodeCache) *CachedResolver {
	return &CachedResolver{inner: inner, cache: cache}
}

func (c *CachedResolver) Resolve(ctx context.Context, address string) (ports.GeoMatch, error) {
	key := strings.TrimSpace(address)

	if c.cache != nil {
		hits, err := c.cache.GetMany(ctx, []string{key})
		if err != nil {
			log.Printf("op=geocode.cache.get address=%q err=%v", key, err)
		} else if coord, ok := hits[key]; ok {
			return ports.GeoMatch{Coord: coord, DisplayName: key}, nil
		}
	}

	match, err := c.inner.Resolve(ctx, key)
	if err != nil {
		return ports.GeoMatch{}, err
	}

	if c.cache != nil {
		if err := c.cache.PutMany(ctx, map[string]domain.Coordinates{key: match.Coord}); err != nil {
			log.Printf("op=geocode.cache.put address=%q err=%v", key, err)
		}
	}
	return match, nil
}

// Suggest passes through to the inner resolver when it can suggest.
func (c *CachedResolver) Suggest(ctx context.Context, address string, limit int) ([]domain.Candidate, error) {
	if s, ok := c.inner.(ports.SuggestionProvider); ok {
		return s.Suggest(ctx, address, limit)
	}
	return nil, nil
}
