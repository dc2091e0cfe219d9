package geo

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// EarthRadiusKm is the mean Earth radius used for great-circle math
const EarthRadiusKm = 6371.0

// Distance returns the haversine great-circle distance in kilometers
// between two points given in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// Bearing returns the initial great-circle bearing in true degrees (0-360)
// from the first point to the second.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(rLat2)
	x := math.Cos(rLat1)*math.Sin(rLat2) - math.Sin(rLat1)*math.Cos(rLat2)*math.Cos(dLon)

	bearing := math.Atan2(y, x) * 180 / math.Pi
	if bearing < 0 {
		bearing += 360
	}
	return bearing
}

// MagneticVariation returns the WMM magnetic declination in degrees
// (+East, -West) for a position at the given time. Returns 0 if the model
// calculation fails.
func MagneticVariation(lat, lon float64, date time.Time) float64 {
	loc := egm96.NewLocationGeodetic(lat, lon, 0)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0.0
	}

	return mag.D()
}

// MagneticBearing converts a true bearing to a magnetic bearing at the
// given position and time.
func MagneticBearing(trueBearing, lat, lon float64, date time.Time) float64 {
	mag := trueBearing - MagneticVariation(lat, lon, date)
	if mag < 0 {
		mag += 360
	}
	if mag >= 360 {
		mag -= 360
	}
	return mag
}
