package routing

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/httpx"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultORSBaseURL = "https://api.openrouteservice.org"
	defaultORSProfile = "driving-car"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// ORSOracle implements RouteOracle using the OpenRouteService matrix endpoint
// with a single source and a single destination per query.
type ORSOracle struct {
	client  *httpx.Client
	baseURL string
	profile string
}

func NewORSOracle(apiKey, baseURL, profile string, timeout time.Duration) (*ORSOracle, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultORSBaseURL
	}
	if strings.TrimSpace(profile) == "" {
		profile = defaultORSProfile
	}

	return &ORSOracle{
		client:  httpx.New(timeout, map[string]string{"Authorization": apiKey}),
		baseURL: baseURL,
		profile: profile,
	}, nil
}

// Route retrieves distance and duration for one ordered pair.
func (o *ORSOracle) Route(ctx context.Context, from, to domain.Coordinates) (ports.RouteLeg, error) {
	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	body := matrixRequest{
		Locations:    [][]float64{from.CoordsToList(), to.CoordsToList()},
		Destinations: []int{1},
		Metrics:      []string{"distance", "duration"},
		Sources:      []int{0},
	}

	var mr matrixResponse
	if err := o.client.PostJSON(ctx, endpoint, body, &mr); err != nil {
		return ports.RouteLeg{}, fmt.Errorf("ors matrix %s -> %s: %w", from, to, err)
	}

	if len(mr.Distances) != 1 || len(mr.Durations) != 1 ||
		len(mr.Distances[0]) != 1 || len(mr.Durations[0]) != 1 {
		return ports.RouteLeg{}, fmt.Errorf(
			"ors matrix %s -> %s: expected a 1x1 result; got distances=%d durations=%d",
			from, to, len(mr.Distances), len(mr.Durations),
		)
	}

	meters := mr.Distances[0][0]
	seconds := mr.Durations[0][0]
	if meters == nil || seconds == nil {
		return ports.RouteLeg{}, fmt.Errorf("ors matrix %s -> %s: %w", from, to, domain.ErrNoRoute)
	}

	return ports.RouteLeg{DistanceMeters: *meters, DurationSeconds: *seconds}, nil
}
