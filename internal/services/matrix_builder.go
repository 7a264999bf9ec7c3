package services

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/obs"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMatrixWorkers = 4
	MaxMatrixWorkers     = 8
	DefaultCallTimeout   = 15 * time.Second
)

// MatrixOptions bounds the fan-out of route queries for one matrix build.
type MatrixOptions struct {
	// Workers caps concurrent outstanding oracle calls (1..MaxMatrixWorkers).
	Workers int
	// CallTimeout applies to every single oracle call.
	CallTimeout time.Duration
}

func (o MatrixOptions) workers() int {
	switch {
	case o.Workers <= 0:
		return DefaultMatrixWorkers
	case o.Workers > MaxMatrixWorkers:
		return MaxMatrixWorkers
	default:
		return o.Workers
	}
}

func (o MatrixOptions) callTimeout() time.Duration {
	if o.CallTimeout <= 0 {
		return DefaultCallTimeout
	}
	return o.CallTimeout
}

// BuildMatrix queries the oracle for every ordered pair (i, j), i != j, and
// returns distances in kilometers and durations in minutes.
//
// Under FailFast the first unreachable pair aborts the build with a
// *domain.MatrixBuildFailure and outstanding queries are cancelled. Under
// Substitute the pair gets the policy sentinel in both planes. Cancellation of
// ctx aborts the build under either policy. Results are never cached.
func BuildMatrix(
	ctx context.Context,
	oracle ports.RouteOracle,
	coords []domain.Coordinates,
	policy FailurePolicy,
	opts MatrixOptions,
) (_ domain.DistanceMatrix, err error) {
	defer obs.Time(ctx, "matrix.Build")(&err)

	if oracle == nil {
		return domain.DistanceMatrix{}, errors.New("build matrix: route oracle must be non-nil")
	}

	n := len(coords)
	m := domain.NewDistanceMatrix(n)
	if n < 2 {
		return m, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	// Each goroutine owns exactly one (i, j) cell, so writes never overlap.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}

			i, j := i, j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				pair := domain.Pair{From: i, To: j}
				leg, err := queryPair(gctx, oracle, coords[i], coords[j], opts.callTimeout())
				if err == nil {
					m.Set(i, j, leg.DistanceMeters/1000, leg.DurationSeconds/60)
					return nil
				}

				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}

				failure := &domain.RouteQueryFailure{Pair: pair, Err: err}
				if policy.Mode == Substitute {
					log.Printf(
						"req_id=%s op=matrix.Build pair=%d->%d substitute=%g err=%v",
						obs.RequestID(ctx), i, j, policy.Sentinel, err,
					)
					m.Set(i, j, policy.Sentinel, policy.Sentinel)
					return nil
				}

				return &domain.MatrixBuildFailure{Pair: pair, Err: failure}
			})
		}
	}

	if err := g.Wait(); err != nil {
		return domain.DistanceMatrix{}, err
	}

	return m, nil
}

func queryPair(
	ctx context.Context,
	oracle ports.RouteOracle,
	from, to domain.Coordinates,
	timeout time.Duration,
) (ports.RouteLeg, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	leg, err := oracle.Route(callCtx, from, to)
	if err != nil {
		return ports.RouteLeg{}, err
	}
	if leg.DistanceMeters < 0 || leg.DurationSeconds < 0 {
		return ports.RouteLeg{}, fmt.Errorf("negative leg metrics (meters=%v seconds=%v)", leg.DistanceMeters, leg.DurationSeconds)
	}

	return leg, nil
}
