package tracker

import (
	"context"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/eta"
	"github.com/skyfleet/takeoff-tracker/internal/feed"
	"github.com/skyfleet/takeoff-tracker/internal/geo"
	"github.com/skyfleet/takeoff-tracker/internal/websocket"
	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

// DefaultStaleThreshold is how old a snapshot's last contact may be before
// it is treated as a late report rather than a live one.
const DefaultStaleThreshold = 10 * time.Minute

// WebSocketServer defines the interface for a WebSocket broadcast hub
type WebSocketServer interface {
	Broadcast(message *websocket.Message)
}

// Detector decides which snapshots in a polling cycle constitute a new
// takeoff event, enriches them, and commits them to the ledger.
//
// Processing is strictly sequential within a batch: the dedup check and the
// ledger insert are not interleaved across snapshots. OpenFlight is atomic
// per identity regardless, so the uniqueness invariant does not depend on
// this discipline.
type Detector struct {
	geoIndex       *geo.Index
	estimator      *eta.Estimator
	storage        Storage
	notifier       Notifier
	wsServer       WebSocketServer
	aircraftType   string
	staleThreshold time.Duration
	logger         *logger.Logger
	now            func() time.Time
}

// NewDetector creates a new takeoff event detector.
func NewDetector(
	geoIndex *geo.Index,
	estimator *eta.Estimator,
	storage Storage,
	notifier Notifier,
	wsServer WebSocketServer,
	aircraftType string,
	staleThreshold time.Duration,
	log *logger.Logger,
) *Detector {
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	return &Detector{
		geoIndex:       geoIndex,
		estimator:      estimator,
		storage:        storage,
		notifier:       notifier,
		wsServer:       wsServer,
		aircraftType:   aircraftType,
		staleThreshold: staleThreshold,
		logger:         log.Named("detector"),
		now:            time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// ProcessBatch runs one polling cycle's batch through the detector and
// returns the number of takeoff events committed. A failure on one snapshot
// is logged and never aborts the rest of the batch.
func (d *Detector) ProcessBatch(ctx context.Context, batch *feed.Batch) int {
	events := 0
	for i := range batch.Snapshots {
		snap := &batch.Snapshots[i]

		detected, err := d.processSnapshot(ctx, snap)
		if err != nil {
			d.logger.Error("Failed to process snapshot",
				logger.String("icao24", snap.Icao24),
				logger.Error(err))
			continue
		}
		if detected {
			events++
		}
	}
	return events
}

// processSnapshot evaluates a single snapshot and commits a takeoff event
// when it passes the staleness, ground, and dedup filters.
func (d *Detector) processSnapshot(ctx context.Context, snap *feed.PositionSnapshot) (bool, error) {
	now := d.now().UTC()

	if snap.Age(now) > d.staleThreshold {
		d.logger.Debug("Skipping stale snapshot",
			logger.String("icao24", snap.Icao24),
			logger.Duration("age", snap.Age(now)))
		return false, nil
	}

	if snap.OnGround {
		return false, nil
	}

	inProgress, err := d.storage.IsInProgress(snap.Icao24)
	if err != nil {
		return false, err
	}
	if inProgress {
		// Already recorded and notified; no repeat event until the record
		// is externally cleared.
		return false, nil
	}

	event := d.enrich(snap, now)

	inserted, err := d.storage.OpenFlight(snap.Icao24, snap.TrimmedCallsign(), snap.OriginCountry, now)
	if err != nil {
		return false, err
	}
	if !inserted {
		// Another in_progress record appeared between the check and the
		// insert; treat as a duplicate, not an event.
		return false, nil
	}

	if event.EstimatedArrival != nil {
		if err := d.storage.SetEstimatedArrival(snap.Icao24, *event.EstimatedArrival); err != nil {
			d.logger.Error("Failed to store estimated arrival",
				logger.String("icao24", snap.Icao24),
				logger.Error(err))
		}
	}

	d.logger.Info("Takeoff detected",
		logger.String("icao24", snap.Icao24),
		logger.String("callsign", snap.TrimmedCallsign()),
		logger.String("origin", event.Origin.Code),
		logger.Bool("destination_resolved", event.Destination != nil))

	// Delivery failure does not roll back the ledger write: the flight is
	// recorded even when the notification is dropped.
	if d.notifier != nil {
		message := RenderMessage(event, d.aircraftType)
		if err := d.notifier.Post(ctx, event, message); err != nil {
			d.logger.Error("Failed to deliver takeoff notification",
				logger.String("icao24", snap.Icao24),
				logger.Error(err))
		}
	}

	d.broadcastTakeoff(event)

	return true, nil
}

// enrich resolves the origin airport, the heuristic destination, the
// projected arrival, and the outbound bearing for a confirmed takeoff.
func (d *Detector) enrich(snap *feed.PositionSnapshot, now time.Time) *EnrichedEvent {
	event := &EnrichedEvent{
		Snapshot:   *snap,
		Origin:     geo.Unknown,
		DetectedAt: now,
	}

	if dest := d.resolveDestination(snap.TrimmedCallsign()); dest != nil {
		event.Destination = dest
	}

	if snap.HasPosition() {
		event.Origin = d.geoIndex.Nearest(*snap.Lat, *snap.Lon)
		event.EstimatedArrival = d.estimator.Estimate(*snap.Lat, *snap.Lon, event.Destination)

		if event.Destination != nil {
			trueBrg := geo.Bearing(*snap.Lat, *snap.Lon, event.Destination.Lat, event.Destination.Lon)
			magBrg := geo.MagneticBearing(trueBrg, *snap.Lat, *snap.Lon, now)
			event.MagneticBearing = &magBrg
		}
	}

	return event
}

// resolveDestination applies the callsign-suffix heuristic: the trailing
// three characters of the trimmed callsign, when they match a known airport
// code, are taken as the destination. Callsigns are not flight-plan
// identifiers, so this is a best-effort signal only, never authoritative.
func (d *Detector) resolveDestination(callsign string) *geo.Airport {
	if len(callsign) <= 3 {
		return nil
	}

	suffix := callsign[len(callsign)-3:]
	if airport, ok := d.geoIndex.Resolve(suffix); ok {
		return &airport
	}
	return nil
}

// broadcastTakeoff pushes the event to WebSocket subscribers.
func (d *Detector) broadcastTakeoff(event *EnrichedEvent) {
	if d.wsServer == nil {
		return
	}

	d.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeTakeoff,
		Data: map[string]any{
			"event": event,
		},
	})
}
