package main

import (
	"commute-route-service/internal/bootstrap"
	"commute-route-service/internal/config"
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tripctl",
		Short:         "Plan and total multi-stop commute days",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSchemaCmd(), newSeedCmd(), newAggregateCmd())
	return root
}

func loadApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg)
}

func requireDB(app *bootstrap.App) error {
	if app.DB == nil {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}
