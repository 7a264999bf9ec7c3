package services

import (
	"commute-route-service/internal/domain"
	"log"
	"strings"
)

// GroupRows partitions tabular triples by day key, in order of first
// appearance. The first row of a day provides its origin.
func GroupRows(rows []domain.TripRow) []domain.TripRequest {
	reqs := make([]domain.TripRequest, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, domain.TripRequest{
			DayKey:    r.DayKey,
			Origin:    r.Origin,
			Waypoints: []string{r.Waypoint},
		})
	}
	return mergeByDay(reqs)
}

// mergeByDay folds requests sharing a day key into one request, keeping the
// first-seen origin and concatenating waypoints.
func mergeByDay(requests []domain.TripRequest) []domain.TripRequest {
	index := make(map[string]int, len(requests))
	out := make([]domain.TripRequest, 0, len(requests))

	for _, req := range requests {
		i, ok := index[req.DayKey]
		if !ok {
			index[req.DayKey] = len(out)
			out = append(out, domain.TripRequest{
				DayKey:    req.DayKey,
				Origin:    strings.TrimSpace(req.Origin),
				Waypoints: append([]string(nil), req.Waypoints...),
			})
			continue
		}

		day := &out[i]
		if origin := strings.TrimSpace(req.Origin); origin != "" && origin != day.Origin {
			if day.Origin == "" {
				day.Origin = origin
			} else {
				log.Printf("day=%q ignoring origin %q: day already starts at %q", req.DayKey, origin, day.Origin)
			}
		}
		day.Waypoints = append(day.Waypoints, req.Waypoints...)
	}

	return out
}
