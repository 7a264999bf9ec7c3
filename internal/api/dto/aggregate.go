package dto

import (
	"commute-route-service/internal/domain"
	"math"
)

// CorrectionRequest replaces an address for this run. With Lat and Lon set,
// the coordinates are used as-is and Replacement is only a display name.
type CorrectionRequest struct {
	Address     string   `json:"address"`
	Replacement string   `json:"replacement"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

type AggregateRequest struct {
	Source        string              `json:"source"`
	Trips         []TripRowRequest    `json:"trips"`
	FailurePolicy string              `json:"failure_policy"`
	Sentinel      *float64            `json:"sentinel"`
	Corrections   []CorrectionRequest `json:"corrections"`
}

type CandidateResponse struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

type StopResponse struct {
	Order         int      `json:"order"`
	Role          string   `json:"role"`
	Address       string   `json:"address"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	LegDistanceKm float64  `json:"leg_distance_km"`
}

type DayResponse struct {
	Day              string         `json:"day"`
	WaypointCount    int            `json:"waypoint_count"`
	TotalDistanceKm  float64        `json:"total_distance_km"`
	TotalDurationMin float64        `json:"total_duration_min"`
	Stops            []StopResponse `json:"stops"`
}

type UnresolvedResponse struct {
	Address     string              `json:"address"`
	Role        string              `json:"role"`
	Suggestions []CandidateResponse `json:"suggestions"`
}

type DayFailureResponse struct {
	Day        string               `json:"day"`
	Stage      string               `json:"stage"`
	Reason     string               `json:"reason"`
	Error      string               `json:"error"`
	Unresolved []UnresolvedResponse `json:"unresolved,omitempty"`
}

type PendingCorrectionResponse struct {
	Address     string              `json:"address"`
	State       string              `json:"state"`
	Suggestions []CandidateResponse `json:"suggestions"`
}

type AggregateResponse struct {
	RunID              string                      `json:"run_id"`
	FailurePolicy      string                      `json:"failure_policy"`
	TotalDistanceKm    float64                     `json:"total_distance_km"`
	TotalDurationMin   float64                     `json:"total_duration_min"`
	Days               []DayResponse               `json:"days"`
	Failures           []DayFailureResponse        `json:"failures"`
	PendingCorrections []PendingCorrectionResponse `json:"pending_corrections"`
}

// RoundKm rounds a distance to two decimals for presentation.
func RoundKm(v float64) float64 { return math.Round(v*100) / 100 }

// RoundMinutes rounds a duration to whole minutes for presentation.
func RoundMinutes(v float64) float64 { return math.Round(v) }

// NewAggregateResponse renders a result with presentation rounding and the
// visiting order expanded into stops.
func NewAggregateResponse(
	res domain.AggregateResult,
	policy string,
	pending []domain.AddressCorrection,
) AggregateResponse {
	out := AggregateResponse{
		RunID:              res.RunID,
		FailurePolicy:      policy,
		TotalDistanceKm:    RoundKm(res.TotalDistanceKm),
		TotalDurationMin:   RoundMinutes(res.TotalDurationMin),
		Days:               make([]DayResponse, 0, len(res.Days)),
		Failures:           make([]DayFailureResponse, 0, len(res.Failures)),
		PendingCorrections: make([]PendingCorrectionResponse, 0, len(pending)),
	}

	for _, d := range res.Days {
		out.Days = append(out.Days, NewDayResponse(d))
	}

	for _, f := range res.Failures {
		fr := DayFailureResponse{
			Day:    f.DayKey,
			Stage:  string(f.Stage),
			Reason: f.Reason,
			Error:  f.Error(),
		}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		}
		for _, u := range f.Unresolved {
			fr.Unresolved = append(fr.Unresolved, UnresolvedResponse{
				Address:     u.Address,
				Role:        string(u.Role),
				Suggestions: candidates(u.Suggestions),
			})
		}
		out.Failures = append(out.Failures, fr)
	}

	for _, p := range pending {
		out.PendingCorrections = append(out.PendingCorrections, PendingCorrectionResponse{
			Address:     p.Original,
			State:       string(p.State),
			Suggestions: candidates(p.Suggestions),
		})
	}

	return out
}

func NewDayResponse(d domain.DayResult) DayResponse {
	dr := DayResponse{
		Day:              d.DayKey,
		WaypointCount:    d.WaypointCount,
		TotalDistanceKm:  RoundKm(d.TotalDistanceKm),
		TotalDurationMin: RoundMinutes(d.TotalDurationMin),
		Stops:            make([]StopResponse, 0, len(d.Route)),
	}

	for i, idx := range d.Route {
		if idx < 0 || idx >= len(d.Stops) {
			continue
		}
		s := d.Stops[idx]
		sr := StopResponse{
			Order:   i,
			Role:    string(s.Role),
			Address: s.Address,
		}
		if s.Coord != nil {
			lat, lon := s.Coord.Lat, s.Coord.Lon
			sr.Lat, sr.Lon = &lat, &lon
		}
		if i < len(d.LegDistancesKm) {
			sr.LegDistanceKm = RoundKm(d.LegDistancesKm[i])
		}
		dr.Stops = append(dr.Stops, sr)
	}
	return dr
}

func candidates(in []domain.Candidate) []CandidateResponse {
	out := make([]CandidateResponse, 0, len(in))
	for _, c := range in {
		out = append(out, CandidateResponse{DisplayName: c.DisplayName, Lat: c.Coord.Lat, Lon: c.Coord.Lon})
	}
	return out
}
