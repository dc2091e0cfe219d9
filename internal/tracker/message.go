package tracker

import (
	"fmt"
	"strings"
)

// RenderMessage builds the notification text for a takeoff event. Optional
// enrichment (origin airport, destination, bearing, ETA) is appended only
// when it was resolved.
func RenderMessage(event *EnrichedEvent, aircraftType string) string {
	snap := event.Snapshot

	callsign := snap.TrimmedCallsign()
	if callsign == "" {
		callsign = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A %s (callsign: %s) just took off from %s", aircraftType, callsign, snap.OriginCountry)
	if !event.Origin.IsUnknown() {
		fmt.Fprintf(&b, ", near %s (%s)", event.Origin.Name, event.Origin.Code)
	}
	b.WriteString(".")

	if snap.HasPosition() {
		fmt.Fprintf(&b, " Position: %.4f, %.4f", *snap.Lat, *snap.Lon)
		if snap.AltitudeM != nil {
			fmt.Fprintf(&b, " at %.0fm", *snap.AltitudeM)
		}
		if snap.VelocityMS != nil {
			fmt.Fprintf(&b, ", %.0fm/s", *snap.VelocityMS)
		}
		b.WriteString(".")
	}

	if event.Destination != nil {
		fmt.Fprintf(&b, " Possibly bound for %s (%s)", event.Destination.Name, event.Destination.Code)
		if event.MagneticBearing != nil {
			fmt.Fprintf(&b, " on heading %03.0f°M", *event.MagneticBearing)
		}
		b.WriteString(".")
	}

	if event.EstimatedArrival != nil {
		fmt.Fprintf(&b, " Estimated arrival: %s.", event.EstimatedArrival.UTC().Format("15:04 MST"))
	}

	return b.String()
}
