package routing

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/ports"
	"context"
	"fmt"
	"sync/atomic"
)

type MockPair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
}

// MockRouteOracle serves fixed legs; pairs it does not know are unreachable.
type MockRouteOracle struct {
	m     map[[2]domain.Coordinates]ports.RouteLeg
	calls atomic.Int64
}

func NewMockRouteOracle(pairs []MockPair) *MockRouteOracle {
	m := make(map[[2]domain.Coordinates]ports.RouteLeg, len(pairs))
	for _, p := range pairs {
		m[[2]domain.Coordinates{p.From, p.To}] = ports.RouteLeg{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockRouteOracle{m: m}
}

func (p *MockRouteOracle) Route(ctx context.Context, from, to domain.Coordinates) (ports.RouteLeg, error) {
	p.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return ports.RouteLeg{}, err
	}

	r, ok := p.m[[2]domain.Coordinates{from, to}]
	if !ok {
		return ports.RouteLeg{}, fmt.Errorf("mock pair %s -> %s: %w", from, to, domain.ErrNoRoute)
	}

	return r, nil
}

// Calls reports how many queries the oracle has served.
func (p *MockRouteOracle) Calls() int { return int(p.calls.Load()) }
