package api

import (
	"commute-route-service/internal/adapters/geocode"
	"commute-route-service/internal/adapters/routing"
	"commute-route-service/internal/api/dto"
	"commute-route-service/internal/domain"
	"commute-route-service/internal/ports"
	"commute-route-service/internal/services"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	home  = domain.Coordinates{Lat: 45.0, Lon: 9.0}
	workA = domain.Coordinates{Lat: 45.1, Lon: 9.0}
	workB = domain.Coordinates{Lat: 45.2, Lon: 9.0}
	workC = domain.Coordinates{Lat: 45.3, Lon: 9.0}
)

type mapResolver map[string]domain.Coordinates

func (m mapResolver) Resolve(ctx context.Context, address string) (ports.GeoMatch, error) {
	c, ok := m[address]
	if !ok {
		return ports.GeoMatch{}, &domain.AddressResolutionFailure{
			Address:     address,
			Suggestions: []domain.Candidate{{DisplayName: "Home", Coord: home}},
			Err:         domain.ErrAddressNotFound,
		}
	}
	return ports.GeoMatch{Coord: c, DisplayName: address}, nil
}

type fakeTrips struct{ rows []domain.TripRow }

func (f fakeTrips) ListTrips(ctx context.Context) ([]domain.TripRow, error) { return f.rows, nil }

// newTestRouter serves the O, A, B, C example where the best visit order is
// Home, A, B, C, Home for 11.004 km.
func newTestRouter(trips ports.TripRepository) http.Handler {
	coords := []domain.Coordinates{home, workA, workB, workC}
	km := [][]float64{
		{0, 2, 10, 10},
		{10, 0, 3, 10},
		{10, 10, 0, 1.004},
		{5, 10, 10, 0},
	}

	pairs := make([]routing.MockPair, 0, 12)
	for i := range coords {
		for j := range coords {
			if i != j {
				pairs = append(pairs, routing.MockPair{
					From: coords[i], To: coords[j], Meters: km[i][j] * 1000, Seconds: km[i][j] * 60,
				})
			}
		}
	}

	resolver := mapResolver{"Home": home, "A": workA, "B": workB, "C": workC}

	return NewRouter(Deps{
		Trips:      trips,
		Aggregator: services.NewAggregator(routing.NewMockRouteOracle(pairs), services.MatrixOptions{}),
		Resolver: func(book *domain.Corrections) ports.GeoResolver {
			return geocode.NewCorrectingResolver(resolver, book)
		},
		DefaultPolicy: services.FailFastPolicy(),
	})
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeAggregate(t *testing.T, rec *httptest.ResponseRecorder) dto.AggregateResponse {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res dto.AggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealth(t *testing.T) {
	h := newTestRouter(nil)

	rec := do(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodPost, "/health", "", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListTrips(t *testing.T) {
	rec := do(t, newTestRouter(nil), http.MethodGet, "/trips", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h := newTestRouter(fakeTrips{rows: []domain.TripRow{{DayKey: "mon", Origin: "Home", Waypoint: "A"}}})
	rec = do(t, h, http.MethodGet, "/trips", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"trips":[{"day":"mon","origin":"Home","waypoint":"A"}]}`, rec.Body.String())
}

func TestAggregateJSON(t *testing.T) {
	h := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/aggregate", strings.NewReader(`{
		"trips": [
			{"day": "03/03/2025", "origin": "Home", "waypoint": "A"},
			{"day": "03/03/2025", "origin": "Home", "waypoint": "B"},
			{"day": "03/03/2025", "origin": "Home", "waypoint": "C"}
		]
	}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "run-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := decodeAggregate(t, rec)
	require.Equal(t, "run-42", res.RunID)
	require.Equal(t, "fail_fast", res.FailurePolicy)
	require.Empty(t, res.Failures)
	require.Len(t, res.Days, 1)

	day := res.Days[0]
	require.Equal(t, 3, day.WaypointCount)
	require.Equal(t, 11.0, day.TotalDistanceKm)
	require.Equal(t, 11.0, day.TotalDurationMin)
	require.Equal(t, 11.0, res.TotalDistanceKm)

	order := make([]string, 0, len(day.Stops))
	for _, s := range day.Stops {
		order = append(order, s.Address)
	}
	require.Equal(t, []string{"Home", "A", "B", "C", "Home"}, order)
	require.Equal(t, "origin", day.Stops[4].Role)
	require.Equal(t, 1.0, day.Stops[3].LegDistanceKm)
}

func TestAggregateCSVWithPolicyInQuery(t *testing.T) {
	h := newTestRouter(nil)

	body := "CASA;LAVORO;GIORNO\nHome;A;mon\nHome;Nowhere;tue\nHome;B;tue\n"
	rec := do(t, h, http.MethodPost, "/aggregate?failure_policy=substitute&sentinel=500", "text/csv; charset=utf-8", body)

	res := decodeAggregate(t, rec)
	require.Equal(t, "substitute(500)", res.FailurePolicy)
	require.Len(t, res.Days, 1)
	require.Equal(t, "mon", res.Days[0].Day)

	require.Len(t, res.Failures, 1)
	f := res.Failures[0]
	require.Equal(t, "tue", f.Day)
	require.Equal(t, "geocode", f.Stage)
	require.Len(t, f.Unresolved, 1)
	require.Equal(t, "Nowhere", f.Unresolved[0].Address)
	require.Equal(t, "Home", f.Unresolved[0].Suggestions[0].DisplayName)

	require.Len(t, res.PendingCorrections, 1)
	require.Equal(t, "suggestions_offered", res.PendingCorrections[0].State)
}

func TestAggregateSentinelZeroIsKept(t *testing.T) {
	h := newTestRouter(nil)
	trips := `"trips":[{"day":"d","origin":"Home","waypoint":"A"}]`

	res := decodeAggregate(t, do(t, h, http.MethodPost, "/aggregate", "application/json",
		`{"failure_policy":"substitute","sentinel":0,`+trips+`}`))
	require.Equal(t, "substitute(0)", res.FailurePolicy)

	res = decodeAggregate(t, do(t, h, http.MethodPost, "/aggregate", "application/json",
		`{"failure_policy":"substitute",`+trips+`}`))
	require.Equal(t, "substitute(9999)", res.FailurePolicy)
}

func TestAggregateAppliesCorrections(t *testing.T) {
	h := newTestRouter(nil)

	rec := do(t, h, http.MethodPost, "/aggregate", "application/json", `{
		"trips": [
			{"day": "d", "origin": "Hmoe", "waypoint": "A"},
			{"day": "d", "origin": "Hmoe", "waypoint": "Somewhere"}
		],
		"corrections": [
			{"address": "Hmoe", "replacement": "Home"},
			{"address": "Somewhere", "replacement": "B office", "lat": 45.2, "lon": 9.0}
		]
	}`)

	res := decodeAggregate(t, rec)
	require.Empty(t, res.Failures)
	require.Len(t, res.Days, 1)
	require.Empty(t, res.PendingCorrections)
}

func TestAggregateStoredSource(t *testing.T) {
	rec := do(t, newTestRouter(nil), http.MethodPost, "/aggregate", "application/json", `{"source":"stored"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h := newTestRouter(fakeTrips{rows: []domain.TripRow{
		{DayKey: "mon", Origin: "Home", Waypoint: "A"},
		{DayKey: "mon", Origin: "Home", Waypoint: "B"},
	}})
	res := decodeAggregate(t, do(t, h, http.MethodPost, "/aggregate", "application/json", `{"source":"stored"}`))
	require.Len(t, res.Days, 1)
	require.Equal(t, 2, res.Days[0].WaypointCount)
}

func TestAggregateRejectsBadInput(t *testing.T) {
	h := newTestRouter(nil)

	cases := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"wrong method", http.MethodGet, "", "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "application/json", `{"trips":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "application/json", `{"hub":"x"}`, http.StatusBadRequest},
		{"two objects", http.MethodPost, "application/json", `{}{}`, http.StatusBadRequest},
		{"unknown policy", http.MethodPost, "application/json", `{"failure_policy":"retry"}`, http.StatusBadRequest},
		{"unknown source", http.MethodPost, "application/json", `{"source":"s3"}`, http.StatusBadRequest},
		{"lat without lon", http.MethodPost, "application/json", `{"corrections":[{"address":"a","lat":1}]}`, http.StatusBadRequest},
		{"csv without columns", http.MethodPost, "text/csv", "A;B\n1;2\n", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, "/aggregate", tc.contentType, tc.body)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAggregateEmptyTrips(t *testing.T) {
	res := decodeAggregate(t, do(t, newTestRouter(nil), http.MethodPost, "/aggregate", "application/json", `{"trips":[]}`))
	require.Empty(t, res.Days)
	require.Empty(t, res.Failures)
	require.Zero(t, res.TotalDistanceKm)
}
