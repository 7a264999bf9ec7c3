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

const defaultNominatimBaseURL = "https://nominatim.openstreetmap.org"

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimResolver resolves addresses with the OpenStreetMap Nominatim
// search API. Nominatim's usage policy requires an identifying User-Agent and
// at most one request per second; wrap it in a PacedResolver.
type NominatimResolver struct {
	client  *httpx.Client
	baseURL string
}

func NewNominatimResolver(baseURL, userAgent string, timeout time.Duration) (*NominatimResolver, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, errors.New("nominatim user agent is empty")
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultNominatimBaseURL
	}

	// Retries go through PacedResolver so every attempt takes a pacing slot.
	client := httpx.New(timeout, map[string]string{"User-Agent": userAgent})
	client.MaxAttempts = 1

	return &NominatimResolver{
		client:  client,
		baseURL: baseURL,
	}, nil
}

func (n *NominatimResolver) Resolve(ctx context.Context, address string) (ports.GeoMatch, error) {
	cands, err := n.search(ctx, address, 1)
	if err != nil {
		return ports.GeoMatch{}, err
	}
	if len(cands) == 0 {
		return ports.GeoMatch{}, &domain.AddressResolutionFailure{Address: address, Err: domain.ErrAddressNotFound}
	}
	return ports.GeoMatch{Coord: cands[0].Coord, DisplayName: cands[0].DisplayName}, nil
}

func (n *NominatimResolver) Suggest(ctx context.Context, address string, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	return n.search(ctx, address, limit)
}

func (n *NominatimResolver) search(ctx context.Context, address string, limit int) ([]domain.Candidate, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(limit))

	var places []nominatimPlace
	if err := n.client.GetJSON(ctx, n.baseURL+"/search", q, &places); err != nil {
		return nil, fmt.Errorf("nominatim search %q: %w", address, err)
	}

	out := make([]domain.Candidate, 0, len(places))
	for _, p := range places {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lon, errLon := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLon != nil {
			return nil, fmt.Errorf("nominatim search %q: invalid coordinates %q,%q", address, p.Lat, p.Lon)
		}
		c := domain.Coordinates{Lat: lat, Lon: lon}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("nominatim search %q: %w", address, err)
		}
		out = append(out, domain.Candidate{DisplayName: p.DisplayName, Coord: c})
	}
	return out, nil
}
