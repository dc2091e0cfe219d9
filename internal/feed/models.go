package feed

import (
	"strings"
	"time"
)

// PositionSnapshot is one aircraft's position/velocity/status report at a
// point in time, as delivered by the state-vector feed. It lives for one
// polling cycle and is never persisted directly.
type PositionSnapshot struct {
	Icao24        string   `json:"icao24"`               // fixed-format aircraft identity code
	Callsign      string   `json:"callsign"`             // free text, may be blank or padded
	OriginCountry string   `json:"origin_country"`
	Lon           *float64 `json:"lon,omitempty"`        // degrees, may be absent
	Lat           *float64 `json:"lat,omitempty"`        // degrees, may be absent
	AltitudeM     *float64 `json:"altitude_m,omitempty"` // barometric altitude in meters, optional
	OnGround      bool     `json:"on_ground"`
	VelocityMS    *float64 `json:"velocity_ms,omitempty"` // m/s, optional
	LastContact   int64    `json:"last_contact"`          // epoch seconds of the last received message
}

// TrimmedCallsign returns the callsign with surrounding whitespace removed.
// Feed callsigns are fixed-width and space padded.
func (s *PositionSnapshot) TrimmedCallsign() string {
	return strings.TrimSpace(s.Callsign)
}

// HasPosition reports whether the snapshot carries usable coordinates.
func (s *PositionSnapshot) HasPosition() bool {
	return s.Lat != nil && s.Lon != nil
}

// Age returns how long ago the feed last heard from this aircraft.
func (s *PositionSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(s.LastContact, 0))
}

// Batch is one polling cycle's worth of snapshots.
type Batch struct {
	Time      time.Time
	Snapshots []PositionSnapshot
}

// parseStateVector converts one raw OpenSky state-vector array into a
// snapshot. Index positions follow the states/all response documentation;
// extraction is defensive because every field may be null.
func parseStateVector(s []interface{}) PositionSnapshot {
	var snap PositionSnapshot

	if len(s) > 0 {
		if v, ok := s[0].(string); ok {
			snap.Icao24 = v
		}
	}
	if len(s) > 1 {
		if v, ok := s[1].(string); ok {
			snap.Callsign = v
		}
	}
	if len(s) > 2 {
		if v, ok := s[2].(string); ok {
			snap.OriginCountry = v
		}
	}
	if len(s) > 4 {
		if v, ok := s[4].(float64); ok {
			snap.LastContact = int64(v)
		}
	}
	if len(s) > 5 {
		if v, ok := s[5].(float64); ok {
			lon := v
			snap.Lon = &lon
		}
	}
	if len(s) > 6 {
		if v, ok := s[6].(float64); ok {
			lat := v
			snap.Lat = &lat
		}
	}
	if len(s) > 7 {
		if v, ok := s[7].(float64); ok {
			alt := v
			snap.AltitudeM = &alt
		}
	}
	if len(s) > 8 {
		if v, ok := s[8].(bool); ok {
			snap.OnGround = v
		}
	}
	if len(s) > 9 {
		if v, ok := s[9].(float64); ok {
			vel := v
			snap.VelocityMS = &vel
		}
	}

	return snap
}
