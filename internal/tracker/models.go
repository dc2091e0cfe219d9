package tracker

import (
	"context"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/feed"
	"github.com/skyfleet/takeoff-tracker/internal/geo"
)

// Flight lifecycle statuses. The completed transition is never written by
// this service (no landing detection); it exists so externally cleared
// records keep a well-defined status.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// FlightRecord is one persisted flight lifecycle record. Records are
// append-only history; they are never deleted.
type FlightRecord struct {
	Icao24           string     `json:"icao24"`
	Callsign         string     `json:"callsign"`
	OriginCountry    string     `json:"origin_country"`
	TakeoffTime      time.Time  `json:"takeoff_time"`
	LandingTime      *time.Time `json:"landing_time,omitempty"`
	EstimatedArrival *time.Time `json:"estimated_landing_time,omitempty"`
	Status           string     `json:"status"`
}

// Storage defines the interface for the flight ledger.
//
// Invariant: at most one record with status = in_progress exists per
// aircraft identity at any time. OpenFlight enforces this with a single
// conditional insert, so the invariant holds even if callers ever process
// snapshots concurrently.
type Storage interface {
	// IsInProgress reports whether an in_progress record exists for the
	// given aircraft identity.
	IsInProgress(icao24 string) (bool, error)

	// OpenFlight inserts a new in_progress record. It returns false (and no
	// error) when an in_progress record already existed for the identity.
	OpenFlight(icao24, callsign, originCountry string, takeoff time.Time) (bool, error)

	// SetEstimatedArrival updates the in_progress record for the identity;
	// a no-op when none exists.
	SetEstimatedArrival(icao24 string, eta time.Time) error

	// InProgressFlights returns all currently open flights.
	InProgressFlights() ([]*FlightRecord, error)

	// RecentFlights returns the most recent flights, newest first.
	RecentFlights(limit int) ([]*FlightRecord, error)
}

// EnrichedEvent is a detected takeoff with its resolved origin, heuristic
// destination, and projected arrival. It is handed to the notifier and the
// WebSocket hub, then folded into a FlightRecord write.
type EnrichedEvent struct {
	Snapshot         feed.PositionSnapshot `json:"snapshot"`
	Origin           geo.Airport           `json:"origin"`
	Destination      *geo.Airport          `json:"destination,omitempty"`
	EstimatedArrival *time.Time            `json:"estimated_arrival,omitempty"`
	MagneticBearing  *float64              `json:"magnetic_bearing,omitempty"`
	DetectedAt       time.Time             `json:"detected_at"`
}

// Notifier delivers a takeoff notification. Implementations own the retry
// policy for rate-limited deliveries.
type Notifier interface {
	Post(ctx context.Context, event *EnrichedEvent, message string) error
}

// FeedClient fetches one polling cycle's batch of snapshots.
type FeedClient interface {
	FetchBatch(ctx context.Context) (*feed.Batch, error)
}
