// Package geo provides the pure geospatial helpers used by the dispatch
// core: great-circle distance and ETA from distance.
package geo

import "math"

const earthRadiusKM = 6371

// Distance returns the haversine great-circle distance in kilometers between
// two coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// ETASeconds estimates travel time in seconds between two coordinates at the
// assumed average speed. Returns ok=false when the speed is not positive; the
// caller omits the ETA rather than fabricating one.
func ETASeconds(lat1, lon1, lat2, lon2, speedKMH float64) (float64, bool) {
	if speedKMH <= 0 {
		return 0, false
	}
	hours := Distance(lat1, lon1, lat2, lon2) / speedKMH
	return hours * 3600, true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
