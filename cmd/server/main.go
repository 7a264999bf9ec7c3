package main

import (
	"commute-route-service/internal/api"
	"commute-route-service/internal/bootstrap"
	"commute-route-service/internal/config"
	"commute-route-service/internal/domain"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

// main is the application composition root.
// It wires concrete adapters behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	router := api.NewRouter(api.Deps{
		Trips:      app.Trips,
		Aggregator: app.Aggregator,
		Resolver: func(book *domain.Corrections) ports.GeoResolver {
			return app.ResolverFor(book)
		},
		DefaultPolicy: app.Policy,
	})

	// Write timeout covers cold-cache aggregations paced at one geocode per second.
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s", cfg.HTTP.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
