package services

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/obs"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

// Aggregator plans every day of a batch of trip requests and sums the totals.
type Aggregator struct {
	Oracle ports.RouteOracle
	Matrix MatrixOptions
}

func NewAggregator(oracle ports.RouteOracle, opts MatrixOptions) *Aggregator {
	return &Aggregator{Oracle: oracle, Matrix: opts}
}

// Aggregate processes each distinct day key in order of first appearance:
// resolve addresses, build the matrix, sequence the route and sum its legs.
//
// A failing day is recorded in AggregateResult.Failures and never stops the
// other days. When ctx is cancelled the remaining days are recorded as
// cancelled failures. The batch itself never fails; empty input yields an
// empty result.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	requests []domain.TripRequest,
	resolver ports.GeoResolver,
	policy FailurePolicy,
) domain.AggregateResult {
	runID := obs.RequestID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = obs.WithRequestID(ctx, runID)
	}

	var err error
	defer obs.Time(ctx, "aggregate")(&err)

	days := mergeByDay(requests)
	result := domain.AggregateResult{
		RunID:    runID,
		Days:     make([]domain.DayResult, 0, len(days)),
		Failures: make([]domain.DayFailure, 0),
	}

	for i, day := range days {
		if ctxErr := ctx.Err(); ctxErr != nil {
			for _, rest := range days[i:] {
				result.Failures = append(result.Failures, domain.DayFailure{
					DayKey: rest.DayKey,
					Stage:  domain.StageCancelled,
					Reason: "aggregation cancelled before the day was processed",
					Err:    ctxErr,
				})
			}
			err = ctxErr
			break
		}

		dayResult, failure := a.planDay(ctx, day, resolver, policy)
		if failure != nil {
			log.Printf("req_id=%s day=%q stage=%s err=%v", runID, failure.DayKey, failure.Stage, failure)
			result.Failures = append(result.Failures, *failure)
			continue
		}

		result.Days = append(result.Days, dayResult)
		result.TotalDistanceKm += dayResult.TotalDistanceKm
		result.TotalDurationMin += dayResult.TotalDurationMin
	}

	log.Printf(
		"req_id=%s op=aggregate days=%d succeeded=%d failed=%d km=%.2f min=%.0f",
		runID, len(days), len(result.Days), len(result.Failures), result.TotalDistanceKm, result.TotalDurationMin,
	)

	return result
}

func (a *Aggregator) planDay(
	ctx context.Context,
	day domain.TripRequest,
	resolver ports.GeoResolver,
	policy FailurePolicy,
) (domain.DayResult, *domain.DayFailure) {
	fail := func(stage domain.FailureStage, reason string, err error, unresolved ...domain.UnresolvedAddress) *domain.DayFailure {
		if ctx.Err() != nil {
			stage = domain.StageCancelled
		}
		return &domain.DayFailure{
			DayKey:     day.DayKey,
			Stage:      stage,
			Reason:     reason,
			Unresolved: unresolved,
			Err:        err,
		}
	}

	origin := strings.TrimSpace(day.Origin)
	if origin == "" {
		return domain.DayResult{}, fail(domain.StageInput, "origin address is empty", errors.New("empty origin"))
	}

	waypoints := day.DistinctWaypoints()
	if len(waypoints) == 0 {
		return domain.DayResult{}, fail(domain.StageInput, "no distinct waypoint addresses", domain.ErrEmptyWaypointSet)
	}

	if resolver == nil {
		return domain.DayResult{}, fail(domain.StageGeocode, "no geocoder configured", errors.New("geo resolver is nil"))
	}

	originMatch, err := resolver.Resolve(ctx, origin)
	if err != nil {
		return domain.DayResult{}, fail(
			domain.StageGeocode,
			"origin address could not be resolved",
			err,
			unresolvedFrom(origin, domain.RoleOrigin, err),
		)
	}

	stops := make([]domain.Stop, 0, 1+len(waypoints))
	stops = append(stops, newStop(domain.RoleOrigin, origin, originMatch.Coord))

	var unresolved []domain.UnresolvedAddress
	var firstErr error
	for _, w := range waypoints {
		match, err := resolver.Resolve(ctx, w)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			unresolved = append(unresolved, unresolvedFrom(w, domain.RoleWaypoint, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		stops = append(stops, newStop(domain.RoleWaypoint, w, match.Coord))
	}

	if len(unresolved) > 0 {
		return domain.DayResult{}, fail(
			domain.StageGeocode,
			fmt.Sprintf("%d waypoint address(es) could not be resolved", len(unresolved)),
			firstErr,
			unresolved...,
		)
	}

	coords := make([]domain.Coordinates, 0, len(stops))
	for _, s := range stops {
		coords = append(coords, *s.Coord)
	}

	m, err := BuildMatrix(ctx, a.Oracle, coords, policy, a.Matrix)
	if err != nil {
		return domain.DayResult{}, fail(domain.StageMatrix, "distance matrix could not be built", err)
	}

	route, err := BuildRoute(m, 0)
	if err != nil {
		return domain.DayResult{}, fail(domain.StageMatrix, "route could not be sequenced", err)
	}

	km, minutes := RouteCost(m, route)

	legs := make([]float64, len(route))
	for i := 1; i < len(route); i++ {
		legs[i] = m.Distance[route[i-1]][route[i]]
	}

	return domain.DayResult{
		DayKey:           day.DayKey,
		WaypointCount:    len(waypoints),
		TotalDistanceKm:  km,
		TotalDurationMin: minutes,
		Route:            route,
		Stops:            stops,
		LegDistancesKm:   legs,
	}, nil
}

func newStop(role domain.StopRole, address string, coord domain.Coordinates) domain.Stop {
	c := coord
	return domain.Stop{Role: role, Address: address, Coord: &c}
}

func unresolvedFrom(address string, role domain.StopRole, err error) domain.UnresolvedAddress {
	u := domain.UnresolvedAddress{Address: address, Role: role}

	var failure *domain.AddressResolutionFailure
	if errors.As(err, &failure) {
		u.Suggestions = failure.Suggestions
	}
	return u
}
