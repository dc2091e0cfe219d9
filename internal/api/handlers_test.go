package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/geo"
	"github.com/skyfleet/takeoff-tracker/internal/tracker"
	"github.com/skyfleet/takeoff-tracker/internal/websocket"
	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

type fakeTracker struct {
	lastCycle time.Time
	ok        bool
	cycles    int64
	events    int64
}

func (f *fakeTracker) Status() (time.Time, bool) { return f.lastCycle, f.ok }
func (f *fakeTracker) Counters() (int64, int64)  { return f.cycles, f.events }

type fakeStorage struct {
	flights []*tracker.FlightRecord
	err     error
}

func (f *fakeStorage) IsInProgress(string) (bool, error) { return false, nil }
func (f *fakeStorage) OpenFlight(string, string, string, time.Time) (bool, error) {
	return false, nil
}
func (f *fakeStorage) SetEstimatedArrival(string, time.Time) error { return nil }
func (f *fakeStorage) InProgressFlights() ([]*tracker.FlightRecord, error) {
	return f.flights, f.err
}
func (f *fakeStorage) RecentFlights(limit int) ([]*tracker.FlightRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.flights) {
		return f.flights[:limit], nil
	}
	return f.flights, nil
}

func testServer(t *testing.T, trk TrackerStatus, storage tracker.Storage, airports []geo.Airport) *httptest.Server {
	t.Helper()
	log := logger.NewNop()

	handler := NewHandler(trk, storage, geo.NewIndex(airports, log), log)
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	srv := httptest.NewServer(NewRouter(handler, wsServer).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestGetHealth(t *testing.T) {
	srv := testServer(t, &fakeTracker{}, &fakeStorage{}, nil)

	var body map[string]string
	if code := getJSON(t, srv.URL+"/api/health", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestGetStatus(t *testing.T) {
	trk := &fakeTracker{
		lastCycle: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ok:        true,
		cycles:    7,
		events:    2,
	}
	srv := testServer(t, trk, &fakeStorage{}, nil)

	var body map[string]interface{}
	if code := getJSON(t, srv.URL+"/api/status", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["last_cycle_ok"] != true {
		t.Errorf("last_cycle_ok = %v", body["last_cycle_ok"])
	}
	if body["cycles_total"].(float64) != 7 {
		t.Errorf("cycles_total = %v", body["cycles_total"])
	}
	if body["last_cycle_time"] != "2024-03-01T12:00:00Z" {
		t.Errorf("last_cycle_time = %v", body["last_cycle_time"])
	}
}

func TestGetFlights(t *testing.T) {
	now := time.Now().UTC()
	storage := &fakeStorage{flights: []*tracker.FlightRecord{
		{Icao24: "a1b2c3", Callsign: "SPEEDY1", TakeoffTime: now, Status: tracker.StatusInProgress},
		{Icao24: "d4e5f6", Callsign: "OTHER2", TakeoffTime: now.Add(-time.Hour), Status: tracker.StatusInProgress},
	}}
	srv := testServer(t, &fakeTracker{}, storage, nil)

	var body struct {
		Count   int                     `json:"count"`
		Flights []*tracker.FlightRecord `json:"flights"`
	}
	if code := getJSON(t, srv.URL+"/api/flights", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Count != 2 || len(body.Flights) != 2 {
		t.Errorf("count = %d, flights = %d", body.Count, len(body.Flights))
	}

	if code := getJSON(t, srv.URL+"/api/flights?limit=1", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Count != 1 {
		t.Errorf("limited count = %d", body.Count)
	}

	if code := getJSON(t, srv.URL+"/api/flights?limit=bogus", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", code)
	}
}

func TestGetNearestAirport(t *testing.T) {
	airports := []geo.Airport{
		{Code: "AAA", Name: "Alpha", Lat: 10, Lon: 10},
		{Code: "BBB", Name: "Bravo", Lat: 50, Lon: 50},
	}
	srv := testServer(t, &fakeTracker{}, &fakeStorage{}, airports)

	var body struct {
		Code       string  `json:"code"`
		DistanceKm float64 `json:"distance_km"`
	}
	if code := getJSON(t, srv.URL+"/api/airports/nearest?lat=11&lon=11", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Code != "AAA" {
		t.Errorf("code = %q", body.Code)
	}
	if body.DistanceKm <= 0 {
		t.Errorf("distance_km = %v", body.DistanceKm)
	}

	if code := getJSON(t, srv.URL+"/api/airports/nearest?lat=200&lon=11", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad latitude, got %d", code)
	}
}

func TestGetNearestAirportEmptyIndex(t *testing.T) {
	srv := testServer(t, &fakeTracker{}, &fakeStorage{}, nil)

	if code := getJSON(t, srv.URL+"/api/airports/nearest?lat=1&lon=1", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 with no airports loaded, got %d", code)
	}
}
