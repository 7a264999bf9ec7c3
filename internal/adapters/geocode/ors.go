package geocode

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/httpx"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// ORSResolver resolves addresses using OpenRouteService (/geocode/search)
// and offers suggestions from /geocode/autocomplete.
type ORSResolver struct {
	client  *httpx.Client
	baseURL string
}

func NewORSResolver(apiKey, baseURL string, timeout time.Duration) (*ORSResolver, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultORSBaseURL
	}

	// Retries go through PacedResolver so every attempt takes a pacing slot.
	client := httpx.New(timeout, map[string]string{"Authorization": apiKey})
	client.MaxAttempts = 1

	return &ORSResolver{
		client:  client,
		baseURL: baseURL,
	}, nil
}

func (o *ORSResolver) Resolve(ctx context.Context, address string) (ports.GeoMatch, error) {
	cands, err := o.query(ctx, "/geocode/search", address, 1)
	if err != nil {
		return ports.GeoMatch{}, err
	}
	if len(cands) == 0 {
		return ports.GeoMatch{}, &domain.AddressResolutionFailure{Address: address, Err: domain.ErrAddressNotFound}
	}
	return ports.GeoMatch{Coord: cands[0].Coord, DisplayName: cands[0].DisplayName}, nil
}

func (o *ORSResolver) Suggest(ctx context.Context, address string, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	return o.query(ctx, "/geocode/autocomplete", address, limit)
}

func (o *ORSResolver) query(ctx context.Context, path, address string, size int) ([]domain.Candidate, error) {
	q := url.Values{}
	q.Set("text", address)
	q.Set("size", strconv.Itoa(size))

	var decoded geocodeResponse
	if err := o.client.GetJSON(ctx, o.baseURL+path, q, &decoded); err != nil {
		return nil, fmt.Errorf("ors %s %q: %w", path, address, err)
	}

	out := make([]domain.Candidate, 0, len(decoded.Features))
	for _, f := range decoded.Features {
		coords := f.Geometry.Coordinates
		if len(coords) != 2 {
			return nil, fmt.Errorf("invalid coordinate format for %q", address)
		}

		c := domain.Coordinates{Lon: coords[0], Lat: coords[1]}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("ors %s %q: %w", path, address, err)
		}
		out = append(out, domain.Candidate{DisplayName: f.Properties.Label, Coord: c})
	}
	return out, nil
}
