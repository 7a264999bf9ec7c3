package handlers

import (
	"commute-route-service/internal/adapters/tabular"
	"commute-route-service/internal/api/dto"
	"commute-route-service/internal/domain"
	"commute-route-service/internal/ports"
	"commute-route-service/internal/services"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 5 << 20

// ResolverFactory builds the per-run resolver around a corrections book.
type ResolverFactory func(book *domain.Corrections) ports.GeoResolver

type AggregateHandler struct {
	Aggregator    *services.Aggregator
	Resolver      ResolverFactory
	Trips         ports.TripRepository
	DefaultPolicy services.FailurePolicy
}

type aggregateInput struct {
	rows        []domain.TripRow
	policy      services.FailurePolicy
	corrections []dto.CorrectionRequest
}

// Aggregate plans every day in the submitted (or stored) trips. Days that
// fail are reported next to the successful ones, so the response is 200
// whenever the input itself is well formed.
func (h *AggregateHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var in aggregateInput
	var status int
	var err error
	if mediaType == "text/csv" {
		in, status, err = h.decodeCSV(r)
	} else {
		in, status, err = h.decodeJSON(r)
	}
	if err != nil {
		if status == http.StatusInternalServerError {
			log.Printf("aggregate input failed: %v", err)
			writeError(w, r, status, "internal server error")
			return
		}
		writeError(w, r, status, err.Error())
		return
	}

	book := domain.NewCorrections()
	for _, c := range in.corrections {
		if err := applyCorrection(book, c); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	res := h.Aggregator.Aggregate(r.Context(), services.GroupRows(in.rows), h.Resolver(book), in.policy)

	writeJSON(w, r, http.StatusOK, dto.NewAggregateResponse(res, in.policy.String(), book.Pending()))
}

func (h *AggregateHandler) decodeJSON(r *http.Request) (aggregateInput, int, error) {
	var req dto.AggregateRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		return aggregateInput{}, http.StatusBadRequest, errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return aggregateInput{}, http.StatusBadRequest, errors.New("body must contain only one JSON object")
	}

	policy, err := h.policy(req.FailurePolicy, req.Sentinel)
	if err != nil {
		return aggregateInput{}, http.StatusBadRequest, err
	}

	in := aggregateInput{policy: policy, corrections: req.Corrections}

	switch strings.ToLower(strings.TrimSpace(req.Source)) {
	case "", "request":
		in.rows = make([]domain.TripRow, 0, len(req.Trips))
		for _, t := range req.Trips {
			in.rows = append(in.rows, domain.TripRow{DayKey: t.Day, Origin: t.Origin, Waypoint: t.Waypoint})
		}
	case "stored":
		if len(req.Trips) > 0 {
			return aggregateInput{}, http.StatusBadRequest, errors.New("trips must be empty when source is stored")
		}
		if h.Trips == nil {
			return aggregateInput{}, http.StatusServiceUnavailable, errors.New("trip storage is not configured")
		}
		in.rows, err = h.Trips.ListTrips(r.Context())
		if err != nil {
			return aggregateInput{}, http.StatusInternalServerError, err
		}
	default:
		return aggregateInput{}, http.StatusBadRequest, fmt.Errorf("unknown source %q", req.Source)
	}

	return in, http.StatusOK, nil
}

func (h *AggregateHandler) decodeCSV(r *http.Request) (aggregateInput, int, error) {
	q := r.URL.Query()

	var sentinel *float64
	if v := q.Get("sentinel"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return aggregateInput{}, http.StatusBadRequest, fmt.Errorf("invalid sentinel %q", v)
		}
		sentinel = &f
	}

	policy, err := h.policy(q.Get("failure_policy"), sentinel)
	if err != nil {
		return aggregateInput{}, http.StatusBadRequest, err
	}

	rows, err := tabular.ParseTrips(r.Body)
	if err != nil {
		return aggregateInput{}, http.StatusBadRequest, err
	}

	return aggregateInput{rows: rows, policy: policy}, http.StatusOK, nil
}

// policy falls back to the configured default for any field left unset.
func (h *AggregateHandler) policy(mode string, sentinel *float64) (services.FailurePolicy, error) {
	if strings.TrimSpace(mode) == "" && sentinel == nil {
		return h.DefaultPolicy, nil
	}
	if strings.TrimSpace(mode) == "" {
		mode = string(h.DefaultPolicy.Mode)
	}
	s := h.DefaultPolicy.Sentinel
	if sentinel != nil {
		s = *sentinel
	}
	return services.ParseFailurePolicy(mode, s)
}

func applyCorrection(book *domain.Corrections, c dto.CorrectionRequest) error {
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("correction address is required")
	}

	if (c.Lat == nil) != (c.Lon == nil) {
		return fmt.Errorf("correction for %q: lat and lon must be given together", c.Address)
	}

	if c.Lat != nil {
		name := strings.TrimSpace(c.Replacement)
		if name == "" {
			name = strings.TrimSpace(c.Address)
		}
		return book.CorrectWithCandidate(c.Address, domain.Candidate{
			DisplayName: name,
			Coord:       domain.Coordinates{Lat: *c.Lat, Lon: *c.Lon},
		})
	}

	return book.Correct(c.Address, c.Replacement)
}
