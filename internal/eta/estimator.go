// Package eta projects arrival times for detected takeoffs.
//
// The projection is deliberately coarse: great-circle distance divided by an
// assumed constant cruise speed, no wind, routing, or climb/descent
// modeling. It exists to give the notification a ballpark arrival time, not
// to predict schedules.
package eta

import (
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/geo"
)

// DefaultCruiseSpeedKmh is the assumed cruise speed when none is configured.
const DefaultCruiseSpeedKmh = 800.0

// Estimator computes projected arrival times from an origin position and a
// resolved destination airport.
type Estimator struct {
	cruiseSpeedKmh float64
	now            func() time.Time
}

// NewEstimator creates an estimator with the given assumed cruise speed in
// km/h. Non-positive speeds fall back to the default.
func NewEstimator(cruiseSpeedKmh float64) *Estimator {
	if cruiseSpeedKmh <= 0 {
		cruiseSpeedKmh = DefaultCruiseSpeedKmh
	}
	return &Estimator{
		cruiseSpeedKmh: cruiseSpeedKmh,
		now:            time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (e *Estimator) WithClock(now func() time.Time) *Estimator {
	e.now = now
	return e
}

// Estimate returns the projected arrival time for a flight currently at the
// origin position heading to dest. Returns nil when no destination was
// resolved.
func (e *Estimator) Estimate(originLat, originLon float64, dest *geo.Airport) *time.Time {
	if dest == nil {
		return nil
	}

	distanceKm := geo.Distance(originLat, originLon, dest.Lat, dest.Lon)
	duration := time.Duration(distanceKm / e.cruiseSpeedKmh * float64(time.Hour))

	arrival := e.now().UTC().Add(duration)
	return &arrival
}
