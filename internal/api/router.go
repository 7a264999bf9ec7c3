package api

import (
	"commute-route-service/internal/api/handlers"
	"commute-route-service/internal/ports"
	"commute-route-service/internal/services"
	"net/http"
)

// Dependencies of the HTTP surface. Trips may be nil when no database is configured.
type Deps struct {
	Trips         ports.TripRepository
	Aggregator    *services.Aggregator
	Resolver      handlers.ResolverFactory
	DefaultPolicy services.FailurePolicy
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	tripHandler := &handlers.TripHandler{Repo: d.Trips}
	aggHandler := &handlers.AggregateHandler{
		Aggregator:    d.Aggregator,
		Resolver:      d.Resolver,
		Trips:         d.Trips,
		DefaultPolicy: d.DefaultPolicy,
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/trips", tripHandler.List)
	mux.HandleFunc("/aggregate", aggHandler.Aggregate)

	return requestIDMiddleware(loggingMiddleware(mux))
}
