package services

import (
	"commute-route-service/internal/domain"
	"fmt"
)

// BuildRoute sequences a day's points with a greedy nearest-neighbor walk
// over outbound distances, starting and ending at origin.
//
// The heuristic picks the closest unvisited point at each step. It does not
// attempt global optimization, so the returned walk is valid but not
// necessarily the shortest one. Ties go to the lowest original index, which
// keeps the result reproducible for identical input.
//
// Matrices with two or fewer points return the identity order unchanged.
func BuildRoute(m domain.DistanceMatrix, origin int) (domain.Route, error) {
	n := m.Size()
	for i, row := range m.Distance {
		if len(row) != n {
			return nil, fmt.Errorf("build route: distance row %d has %d columns, want %d", i, len(row), n)
		}
	}

	if n <= 2 {
		route := make(domain.Route, n)
		for i := range route {
			route[i] = i
		}
		return route, nil
	}

	if origin < 0 || origin >= n {
		return nil, fmt.Errorf("build route: origin index %d out of range [0,%d)", origin, n)
	}

	visited := make([]bool, n)
	visited[origin] = true

	route := make(domain.Route, 0, n+1)
	route = append(route, origin)
	current := origin

	for step := 1; step < n; step++ {
		best := -1
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			// Strict comparison keeps the lowest index on equal distances.
			if best == -1 || m.Distance[current][candidate] < m.Distance[current][best] {
				best = candidate
			}
		}

		visited[best] = true
		route = append(route, best)
		current = best
	}

	if route[len(route)-1] != origin {
		route = append(route, origin)
	}

	return route, nil
}

// RouteCost sums the distance and duration of consecutive legs of route.
func RouteCost(m domain.DistanceMatrix, route domain.Route) (km float64, minutes float64) {
	for i := 0; i+1 < len(route); i++ {
		from, to := route[i], route[i+1]
		km += m.Distance[from][to]
		minutes += m.Duration[from][to]
	}
	return km, minutes
}
