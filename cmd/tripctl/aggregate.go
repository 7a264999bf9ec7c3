package main

import (
	"commute-route-service/internal/adapters/tabular"
	"commute-route-service/internal/api/dto"
	"commute-route-service/internal/bootstrap"
	"commute-route-service/internal/domain"
	"commute-route-service/internal/services"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type aggregateFlags struct {
	file     string
	stored   bool
	policy   string
	sentinel float64
	correct  []string
	asJSON   bool
}

func newAggregateCmd() *cobra.Command {
	var f aggregateFlags

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Sequence each day's stops and total the distance over all days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (f.file == "") == !f.stored {
				return errors.New("exactly one of --file or --stored is required")
			}

			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			rows, err := loadRows(cmd, app, f)
			if err != nil {
				return err
			}

			policy := app.Policy
			if cmd.Flags().Changed("policy") || cmd.Flags().Changed("sentinel") {
				mode := f.policy
				if mode == "" {
					mode = string(app.Policy.Mode)
				}
				sentinel := app.Policy.Sentinel
				if cmd.Flags().Changed("sentinel") {
					sentinel = f.sentinel
				}
				policy, err = services.ParseFailurePolicy(mode, sentinel)
				if err != nil {
					return err
				}
			}

			book, err := parseCorrections(f.correct)
			if err != nil {
				return err
			}

			res := app.Aggregator.Aggregate(cmd.Context(), services.GroupRows(rows), app.ResolverFor(book), policy)
			out := dto.NewAggregateResponse(res, policy.String(), book.Pending())

			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return printTable(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&f.file, "file", "f", "", "CSV file with CASA/LAVORO/GIORNO columns")
	cmd.Flags().BoolVar(&f.stored, "stored", false, "aggregate the rows stored in trip_requests")
	cmd.Flags().StringVar(&f.policy, "policy", "", "failure policy: fail_fast or substitute")
	cmd.Flags().Float64Var(&f.sentinel, "sentinel", domain.DefaultSentinel, "km/min value used for unreachable pairs under substitute")
	cmd.Flags().StringArrayVar(&f.correct, "correct", nil, "address correction as old=new (repeatable)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	return cmd
}

func loadRows(cmd *cobra.Command, app *bootstrap.App, f aggregateFlags) ([]domain.TripRow, error) {
	if f.stored {
		if app.Trips == nil {
			return nil, errors.New("DATABASE_URL is required for --stored")
		}
		return app.Trips.ListTrips(cmd.Context())
	}

	file, err := os.Open(f.file)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", f.file, err)
	}
	defer file.Close()

	return tabular.ParseTrips(file)
}

func parseCorrections(pairs []string) (*domain.Corrections, error) {
	book := domain.NewCorrections()
	for _, p := range pairs {
		old, replacement, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(old) == "" {
			return nil, fmt.Errorf("invalid --correct %q: expected old=new", p)
		}
		if err := book.Correct(old, replacement); err != nil {
			return nil, err
		}
	}
	return book, nil
}

func printTable(w io.Writer, res dto.AggregateResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "DAY\tWAYPOINTS\tKM\tMIN\tROUTE")
	for _, d := range res.Days {
		stops := make([]string, 0, len(d.Stops))
		for _, s := range d.Stops {
			stops = append(stops, s.Address)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.0f\t%s\n",
			d.Day, d.WaypointCount, d.TotalDistanceKm, d.TotalDurationMin, strings.Join(stops, " -> "))
	}
	fmt.Fprintf(tw, "TOTAL\t\t%.2f\t%.0f\t\n", res.TotalDistanceKm, res.TotalDurationMin)
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range res.Failures {
		fmt.Fprintf(w, "\nday %s failed at %s: %s (%s)\n", f.Day, f.Stage, f.Reason, f.Error)
		for _, u := range f.Unresolved {
			fmt.Fprintf(w, "  unresolved %s %q\n", u.Role, u.Address)
			for _, s := range u.Suggestions {
				fmt.Fprintf(w, "    try --correct %q\n", u.Address+"="+s.DisplayName)
			}
		}
	}
	return nil
}
