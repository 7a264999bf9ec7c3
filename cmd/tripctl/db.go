package main

import (
	"commute-route-service/internal/adapters/repositories"
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the trip_requests and geocode_cache tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := requireDB(app); err != nil {
				return err
			}

			if err := repositories.InitSchema(cmd.Context(), app.DB); err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema ready.")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load trip rows from a CSV file into trip_requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := requireDB(app); err != nil {
				return err
			}

			if err := repositories.InitSchema(cmd.Context(), app.DB); err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}

			n, err := repositories.SeedFromCSV(cmd.Context(), app.DB, file)
			if err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d trip rows from %s.\n", n, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file with CASA/LAVORO/GIORNO columns")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
