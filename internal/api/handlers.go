package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/geo"
	"github.com/skyfleet/takeoff-tracker/internal/tracker"
	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

// TrackerStatus exposes the polling service's cycle status and counters.
type TrackerStatus interface {
	Status() (time.Time, bool)
	Counters() (cycles, events int64)
}

// Handler contains the API handlers
type Handler struct {
	trackerService TrackerStatus
	storage        tracker.Storage
	geoIndex       *geo.Index
	logger         *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(trackerService TrackerStatus, storage tracker.Storage, geoIndex *geo.Index, log *logger.Logger) *Handler {
	return &Handler{
		trackerService: trackerService,
		storage:        storage,
		geoIndex:       geoIndex,
		logger:         log.Named("api-handler"),
	}
}

// GetHealth reports process liveness.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus returns the last polling cycle outcome and lifetime counters.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	lastCycle, ok := h.trackerService.Status()
	cycles, events := h.trackerService.Counters()

	resp := map[string]interface{}{
		"last_cycle_ok": ok,
		"cycles_total":  cycles,
		"events_total":  events,
	}
	if !lastCycle.IsZero() {
		resp["last_cycle_time"] = lastCycle.UTC().Format(time.RFC3339)
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetFlights returns the most recent flight records, newest first. The
// optional limit query parameter caps the result (default 50, max 500).
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > 500 {
		limit = 500
	}

	flights, err := h.storage.RecentFlights(limit)
	if err != nil {
		h.logger.Error("Failed to load recent flights", logger.Error(err))
		http.Error(w, "Failed to load flights", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(flights),
		"flights": flights,
	})
}

// GetInProgressFlights returns all flights currently marked in progress.
func (h *Handler) GetInProgressFlights(w http.ResponseWriter, r *http.Request) {
	flights, err := h.storage.InProgressFlights()
	if err != nil {
		h.logger.Error("Failed to load in-progress flights", logger.Error(err))
		http.Error(w, "Failed to load flights", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(flights),
		"flights": flights,
	})
}

// GetNearestAirport resolves the closest known airport to the given
// coordinates.
func (h *Handler) GetNearestAirport(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		http.Error(w, "Invalid latitude: must be between -90 and 90", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		http.Error(w, "Invalid longitude: must be between -180 and 180", http.StatusBadRequest)
		return
	}

	airport := h.geoIndex.Nearest(lat, lon)
	if airport.IsUnknown() {
		http.Error(w, "No airports loaded", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"airport":     airport,
		"code":        airport.Code,
		"distance_km": geo.Distance(lat, lon, airport.Lat, airport.Lon),
	})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
