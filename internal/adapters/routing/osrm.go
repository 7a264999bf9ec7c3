package routing

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/httpx"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultOSRMBaseURL = "https://router.project-osrm.org"
	defaultOSRMProfile = "driving"
)

type osrmRouteResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// OSRMOracle implements RouteOracle against an OSRM /route/v1 service.
// It is safe for concurrent use.
type OSRMOracle struct {
	client  *httpx.Client
	baseURL string
	profile string
}

func NewOSRMOracle(baseURL, profile string, timeout time.Duration) *OSRMOracle {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOSRMBaseURL
	}
	if strings.TrimSpace(profile) == "" {
		profile = defaultOSRMProfile
	}

	return &OSRMOracle{
		client:  httpx.New(timeout, nil),
		baseURL: baseURL,
		profile: profile,
	}
}

func (o *OSRMOracle) Route(ctx context.Context, from, to domain.Coordinates) (ports.RouteLeg, error) {
	endpoint := fmt.Sprintf(
		"%s/route/v1/%s/%s;%s",
		o.baseURL, url.PathEscape(o.profile), lonLat(from), lonLat(to),
	)
	q := url.Values{}
	q.Set("overview", "false")

	var decoded osrmRouteResponse
	err := o.client.GetJSON(ctx, endpoint, q, &decoded)
	if err != nil {
		var se *httpx.StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest && isNoRouteBody(se.Body) {
			return ports.RouteLeg{}, fmt.Errorf("osrm route %s -> %s: %s: %w", from, to, se.Body, domain.ErrNoRoute)
		}
		return ports.RouteLeg{}, fmt.Errorf("osrm route %s -> %s: %w", from, to, err)
	}

	if decoded.Code != "Ok" || len(decoded.Routes) == 0 {
		return ports.RouteLeg{}, fmt.Errorf("osrm route %s -> %s: code=%q %s: %w", from, to, decoded.Code, decoded.Message, domain.ErrNoRoute)
	}

	r := decoded.Routes[0]
	return ports.RouteLeg{DistanceMeters: r.Distance, DurationSeconds: r.Duration}, nil
}

func isNoRouteBody(body string) bool {
	return strings.Contains(body, "NoRoute") || strings.Contains(body, "NoSegment")
}

func lonLat(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}
