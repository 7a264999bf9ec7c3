package domain

import "strings"

type StopRole string

const (
	RoleOrigin   StopRole = "origin"
	RoleWaypoint StopRole = "waypoint"
)

// Represents a single point of a day's trip.
// The origin is unique per day and always occupies index 0 of the point list.
type Stop struct {
	Role    StopRole
	Address string
	Coord   *Coordinates
}

// One tabular input triple: the origin and a single waypoint visited on a day.
type TripRow struct {
	DayKey   string
	Origin   string
	Waypoint string
}

// Represents all the visits requested for one day.
// DayKey is opaque and compared by exact equality.
type TripRequest struct {
	DayKey    string
	Origin    string
	Waypoints []string
}

// DistinctWaypoints trims the waypoint addresses and collapses duplicates,
// keeping first-seen order. Blank addresses are dropped.
func (t TripRequest) DistinctWaypoints() []string {
	seen := make(map[string]struct{}, len(t.Waypoints))
	out := make([]string, 0, len(t.Waypoints))
	for _, w := range t.Waypoints {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
