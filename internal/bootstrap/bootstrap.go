package bootstrap

import (
	"commute-route-service/internal/adapters/cache"
	"commute-route-service/internal/adapters/geocode"
	"commute-route-service/internal/adapters/repositories"
	"commute-route-service/internal/adapters/routing"
	"commute-route-service/internal/config"
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/db"
	"commute-route-service/internal/ports"
	"commute-route-service/internal/services"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

// App holds the process-wide adapters. The resolver chain and its pacing
// are shared by every request; corrections are layered on per run.
type App struct {
	Config *config.Config

	DB    *sql.DB
	Redis *redis.Client

	Resolver   ports.GeoResolver
	Oracle     ports.RouteOracle
	Aggregator *services.Aggregator
	Trips      ports.TripRepository
	Policy     services.FailurePolicy
}

// New wires the adapters named by cfg. Postgres and Redis are optional:
// without DATABASE_URL stored trips are unavailable, and without either
// store geocoding is uncached.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is nil")
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.Policy, err = services.ParseFailurePolicy(cfg.Aggregation.FailurePolicy, cfg.Aggregation.Sentinel)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	if strings.TrimSpace(cfg.Database.URL) != "" {
		app.DB, err = db.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		app.Trips = repositories.NewPostgresTripRepository(app.DB)
	}

	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		app.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("bootstrap: ping redis %s: %w", cfg.Redis.Addr, err)
		}
	}

	app.Resolver, err = newResolver(cfg, app.geocodeCache())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	app.Oracle, err = newOracle(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	app.Aggregator = services.NewAggregator(app.Oracle, services.MatrixOptions{
		Workers:     cfg.Router.Workers,
		CallTimeout: cfg.Aggregation.CallTimeout,
	})

	log.Printf(
		"op=bootstrap geocoder=%s router=%s workers=%d policy=%s db=%t redis=%t",
		cfg.Geocoder.Provider, cfg.Router.Provider, cfg.Router.Workers, app.Policy, app.DB != nil, app.Redis != nil,
	)
	return app, nil
}

// ResolverFor layers a per-run corrections book over the shared resolver.
func (a *App) ResolverFor(book *domain.Corrections) *geocode.CorrectingResolver {
	return geocode.NewCorrectingResolver(a.Resolver, book)
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

// geocodeCache prefers Redis and falls back to the Postgres table.
func (a *App) geocodeCache() ports.GeocodeCache {
	switch {
	case a.Redis != nil:
		return cache.NewRedisGeocodeCache(a.Redis, a.Config.Redis.CacheTTL)
	case a.DB != nil:
		return cache.NewSQLGeocodeCache(a.DB)
	default:
		return nil
	}
}

func newResolver(cfg *config.Config, store ports.GeocodeCache) (ports.GeoResolver, error) {
	var provider ports.GeoResolver
	var err error

	// The provider's own HTTP timeout only starts once a pacing slot is granted.
	switch strings.ToLower(cfg.Geocoder.Provider) {
	case "nominatim":
		provider, err = geocode.NewNominatimResolver(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Aggregation.CallTimeout)
	case "ors":
		provider, err = geocode.NewORSResolver(cfg.Aggregation.ORSAPIKey, cfg.Geocoder.BaseURL, cfg.Aggregation.CallTimeout)
	default:
		err = fmt.Errorf("unknown geocoder %q", cfg.Geocoder.Provider)
	}
	if err != nil {
		return nil, err
	}

	paced, err := geocode.NewPacedResolver(
		provider,
		cfg.Geocoder.MinInterval,
		cfg.Geocoder.Suggestions,
		cfg.Aggregation.CallTimeout,
	)
	if err != nil {
		return nil, err
	}

	if store == nil {
		return paced, nil
	}
	return geocode.NewCachedResolver(paced, store), nil
}

func newOracle(cfg *config.Config) (ports.RouteOracle, error) {
	switch strings.ToLower(cfg.Router.Provider) {
	case "osrm":
		return routing.NewOSRMOracle(cfg.Router.BaseURL, cfg.Router.Profile, cfg.Aggregation.CallTimeout), nil
	case "ors":
		return routing.NewORSOracle(cfg.Aggregation.ORSAPIKey, cfg.Router.BaseURL, cfg.Router.Profile, cfg.Aggregation.CallTimeout)
	default:
		return nil, fmt.Errorf("unknown router %q", cfg.Router.Provider)
	}
}
