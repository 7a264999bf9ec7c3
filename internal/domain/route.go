package domain

// Route is an ordered sequence of matrix indices.
//
// For n >= 3 points it is a closed walk of length n+1 that starts and ends at
// the origin and visits every other index exactly once. For n <= 2 it is the
// identity order with no return leg.
type Route []int

// Represents the outcome of one successfully planned day.
type DayResult struct {
	DayKey           string
	WaypointCount    int
	TotalDistanceKm  float64
	TotalDurationMin float64
	Route            Route
	Stops            []Stop
	LegDistancesKm   []float64
}

// Represents the outcome of a whole aggregation run.
// Only succeeded days contribute to the grand totals; failed days are listed
// separately so a caller can retry them selectively.
type AggregateResult struct {
	RunID            string
	Days             []DayResult
	TotalDistanceKm  float64
	TotalDurationMin float64
	Failures         []DayFailure
}
