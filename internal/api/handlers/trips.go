package handlers

import (
	"commute-route-service/internal/api/dto"
	"commute-route-service/internal/ports"
	"log"
	"net/http"
)

// TripHandler exposes the stored trip rows.
type TripHandler struct {
	Repo ports.TripRepository
}

func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if h.Repo == nil {
		writeError(w, r, http.StatusServiceUnavailable, "trip storage is not configured")
		return
	}

	trips, err := h.Repo.ListTrips(r.Context())
	if err != nil {
		log.Printf("list trips failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListTripsResponse{
		Trips: make([]dto.TripRowResponse, 0, len(trips)),
	}
	for _, t := range trips {
		res.Trips = append(res.Trips, dto.TripRowResponse{
			Day:      t.DayKey,
			Origin:   t.Origin,
			Waypoint: t.Waypoint,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
