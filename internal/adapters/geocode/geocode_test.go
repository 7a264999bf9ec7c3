package geocode

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNominatimResolve(t *testing.T) {
	var agent, q, limit, format string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		q = r.URL.Query().Get("q")
		limit = r.URL.Query().Get("limit")
		format = r.URL.Query().Get("format")
		_, _ = w.Write([]byte(`[{"lat":"45.4642","lon":"9.19","display_name":"Milano, Lombardia, Italia"}]`))
	}))
	defer srv.Close()

	n, err := NewNominatimResolver(srv.URL, "commute-test/1.0", time.Second)
	require.NoError(t, err)

	m, err := n.Resolve(context.Background(), "Piazza del Duomo, Milano")
	require.NoError(t, err)
	require.Equal(t, "commute-test/1.0", agent)
	require.Equal(t, "Piazza del Duomo, Milano", q)
	require.Equal(t, "1", limit)
	require.Equal(t, "json", format)
	require.Equal(t, domain.Coordinates{Lat: 45.4642, Lon: 9.19}, m.Coord)
	require.Equal(t, "Milano, Lombardia, Italia", m.DisplayName)
}

func TestNominatimNotFoundAndSuggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") == "1" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[
			{"lat":"45.1","lon":"9.1","display_name":"Via Roma 1, Monza"},
			{"lat":"45.2","lon":"9.2","display_name":"Via Roma 1, Milano"}
		]`))
	}))
	defer srv.Close()

	n, err := NewNominatimResolver(srv.URL, "ua", time.Second)
	require.NoError(t, err)

	_, err = n.Resolve(context.Background(), "Via Rma 1")
	require.ErrorIs(t, err, domain.ErrAddressNotFound)

	var failure *domain.AddressResolutionFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "Via Rma 1", failure.Address)

	cands, err := n.Suggest(context.Background(), "Via Rma 1", 5)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	require.Equal(t, "Via Roma 1, Milano", cands[1].DisplayName)
}

func TestNominatimRequiresUserAgent(t *testing.T) {
	_, err := NewNominatimResolver("", "  ", time.Second)
	require.Error(t, err)
}

func TestORSResolveAndSuggest(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/geocode/search":
			_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[9.19,45.46]},"properties":{"label":"Milano"}}]}`))
		case "/geocode/autocomplete":
			_, _ = w.Write([]byte(`{"features":[
				{"geometry":{"coordinates":[9.2,45.5]},"properties":{"label":"Monza"}},
				{"geometry":{"coordinates":[9.3,45.6]},"properties":{"label":"Lecco"}}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	o, err := NewORSResolver("secret", srv.URL, time.Second)
	require.NoError(t, err)

	m, err := o.Resolve(context.Background(), "Milano")
	require.NoError(t, err)
	require.Equal(t, "secret", auth)
	require.Equal(t, domain.Coordinates{Lat: 45.46, Lon: 9.19}, m.Coord)

	cands, err := o.Suggest(context.Background(), "Mon", 2)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	require.Equal(t, "Monza", cands[0].DisplayName)
}

// fakeProvider resolves from a map and records call times.
type fakeProvider struct {
	mu          sync.Mutex
	coords      map[string]domain.Coordinates
	suggestions []domain.Candidate
	calls       []time.Time
	addresses   []string
	resolves    int
}

func (f *fakeProvider) Resolve(ctx context.Context, address string) (ports.GeoMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	f.addresses = append(f.addresses, address)
	f.resolves++

	c, ok := f.coords[address]
	if !ok {
		return ports.GeoMatch{}, &domain.AddressResolutionFailure{Address: address, Err: domain.ErrAddressNotFound}
	}
	return ports.GeoMatch{Coord: c, DisplayName: address}, nil
}

func (f *fakeProvider) Suggest(ctx context.Context, address string, limit int) ([]domain.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())

	if limit < len(f.suggestions) {
		return f.suggestions[:limit], nil
	}
	return f.suggestions, nil
}

func TestNewPacedResolverRejectsShortInterval(t *testing.T) {
	_, err := NewPacedResolver(&fakeProvider{}, 500*time.Millisecond, 3, time.Second)
	require.Error(t, err)

	_, err = NewPacedResolver(&fakeProvider{}, time.Second, 3, time.Second)
	require.NoError(t, err)
}

func TestPacedResolverSpacesConcurrentCalls(t *testing.T) {
	provider := &fakeProvider{coords: map[string]domain.Coordinates{"a": {Lat: 1, Lon: 1}}}
	p := newPacedResolver(provider, 40*time.Millisecond, 0, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Resolve(context.Background(), "a")
		}()
	}
	wg.Wait()

	require.Len(t, provider.calls, 4)
	for i := 1; i < len(provider.calls); i++ {
		gap := provider.calls[i].Sub(provider.calls[i-1])
		require.GreaterOrEqual(t, gap, 30*time.Millisecond, "call %d came %s after the previous one", i, gap)
	}
}

func TestPacedResolverAttachesSuggestions(t *testing.T) {
	provider := &fakeProvider{
		suggestions: []domain.Candidate{
			{DisplayName: "one", Coord: domain.Coordinates{Lat: 1, Lon: 1}},
			{DisplayName: "two", Coord: domain.Coordinates{Lat: 2, Lon: 2}},
			{DisplayName: "three", Coord: domain.Coordinates{Lat: 3, Lon: 3}},
			{DisplayName: "four", Coord: domain.Coordinates{Lat: 4, Lon: 4}},
		},
	}
	p := newPacedResolver(provider, time.Millisecond, 3, time.Second)

	_, err := p.Resolve(context.Background(), "nowhere")
	require.ErrorIs(t, err, domain.ErrAddressNotFound)

	var failure *domain.AddressResolutionFailure
	require.ErrorAs(t, err, &failure)
	require.Len(t, failure.Suggestions, 3)
	require.Equal(t, "one", failure.Suggestions[0].DisplayName)
	require.Len(t, provider.calls, 2)
}

func TestPacedResolverHonorsCancellation(t *testing.T) {
	provider := &fakeProvider{coords: map[string]domain.Coordinates{"a": {Lat: 1, Lon: 1}}}
	p := newPacedResolver(provider, time.Hour, 0, time.Second)

	_, err := p.Resolve(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = p.Resolve(ctx, "a")
	require.Error(t, err)
	require.Equal(t, 1, provider.resolves)
}

func TestPacedResolverRetriesWaitForTheirOwnSlot(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		first := len(hits) == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"45.46","lon":"9.19","display_name":"Milano"}]`))
	}))
	defer srv.Close()

	n, err := NewNominatimResolver(srv.URL, "ua", time.Second)
	require.NoError(t, err)
	p, err := NewPacedResolver(n, time.Second, 0, 5*time.Second)
	require.NoError(t, err)

	m, err := p.Resolve(context.Background(), "Milano")
	require.NoError(t, err)
	require.Equal(t, 45.46, m.Coord.Lat)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 2)
	require.GreaterOrEqual(t, hits[1].Sub(hits[0]), 990*time.Millisecond)
}

func TestPacedResolverGivesUpAfterRepeatedFailures(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n, err := NewNominatimResolver(srv.URL, "ua", time.Second)
	require.NoError(t, err)
	p := newPacedResolver(n, time.Millisecond, 0, time.Second)

	_, err = p.Resolve(context.Background(), "Milano")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrAddressNotFound)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, providerAttempts, hits)
}

type memoryCache struct {
	data    map[string]domain.Coordinates
	failGet bool
}

func (m *memoryCache) GetMany(ctx context.Context, keys []string) (map[string]domain.Coordinates, error) {
	if m.failGet {
		return nil, errors.New("cache down")
	}
	out := make(map[string]domain.Coordinates)
	for _, k := range keys {
		if c, ok := m.data[k]; ok {
			out[k] = c
		}
	}
	return out, nil
}

func (m *memoryCache) PutMany(ctx context.Context, entries map[string]domain.Coordinates) error {
	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}

func TestCachedResolverServesHitsWithoutProvider(t *testing.T) {
	provider := &fakeProvider{coords: map[string]domain.Coordinates{"Milano": {Lat: 45.46, Lon: 9.19}}}
	cache := &memoryCache{data: map[string]domain.Coordinates{}}
	r := NewCachedResolver(provider, cache)

	m, err := r.Resolve(context.Background(), " Milano ")
	require.NoError(t, err)
	require.Equal(t, 45.46, m.Coord.Lat)
	require.Equal(t, []string{"Milano"}, provider.addresses)
	require.Contains(t, cache.data, "Milano")

	_, err = r.Resolve(context.Background(), "Milano")
	require.NoError(t, err)
	require.Equal(t, 1, provider.resolves)

	_, err = r.Resolve(context.Background(), "Roma")
	require.ErrorIs(t, err, domain.ErrAddressNotFound)
	require.NotContains(t, cache.data, "Roma")
}

func TestCachedResolverToleratesCacheErrors(t *testing.T) {
	provider := &fakeProvider{coords: map[string]domain.Coordinates{"Milano": {Lat: 45.46, Lon: 9.19}}}
	r := NewCachedResolver(provider, &memoryCache{data: map[string]domain.Coordinates{}, failGet: true})

	_, err := r.Resolve(context.Background(), "Milano")
	require.NoError(t, err)
	require.Equal(t, 1, provider.resolves)
}

func TestCorrectingResolverWorkflow(t *testing.T) {
	milan := domain.Coordinates{Lat: 45.46, Lon: 9.19}
	provider := &fakeProvider{
		coords:      map[string]domain.Coordinates{"Via Roma 1, Milano": milan},
		suggestions: []domain.Candidate{{DisplayName: "Via Roma 1, Milano", Coord: milan}},
	}
	paced := newPacedResolver(provider, time.Millisecond, 3, time.Second)
	r := NewCorrectingResolver(paced, nil)
	book := r.Corrections()

	_, err := r.Resolve(context.Background(), "Via Rma 1")
	require.ErrorIs(t, err, domain.ErrAddressNotFound)

	entry, ok := book.Lookup("Via Rma 1")
	require.True(t, ok)
	require.Equal(t, domain.StateSuggestionsOffered, entry.State)
	require.Len(t, book.Pending(), 1)

	require.NoError(t, book.ChooseSuggestion("Via Rma 1", 0))
	calls := provider.resolves

	m, err := r.Resolve(context.Background(), "Via Rma 1")
	require.NoError(t, err)
	require.Equal(t, milan, m.Coord)
	require.Equal(t, calls, provider.resolves)

	entry, _ = book.Lookup("Via Rma 1")
	require.Equal(t, domain.StateValidated, entry.State)
	require.Empty(t, book.Pending())

	m, err = r.Resolve(context.Background(), "Via Rma 1")
	require.NoError(t, err)
	require.Equal(t, milan, m.Coord)
}

func TestCorrectingResolverUsesReplacementText(t *testing.T) {
	milan := domain.Coordinates{Lat: 45.46, Lon: 9.19}
	provider := &fakeProvider{coords: map[string]domain.Coordinates{"Milano": milan}}
	book := domain.NewCorrections()
	require.NoError(t, book.Correct("Milnao", "Milano"))
	require.NoError(t, book.Correct("Atlantis", "Atlantide"))

	r := NewCorrectingResolver(provider, book)

	m, err := r.Resolve(context.Background(), "Milnao")
	require.NoError(t, err)
	require.Equal(t, milan, m.Coord)

	entry, _ := book.Lookup("Milnao")
	require.Equal(t, domain.StateValidated, entry.State)

	_, err = r.Resolve(context.Background(), "Atlantis")
	require.ErrorIs(t, err, domain.ErrAddressNotFound)

	var failure *domain.AddressResolutionFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "Atlantis", failure.Address)

	entry, _ = book.Lookup("Atlantis")
	require.Equal(t, domain.StateUnresolved, entry.State)
}
