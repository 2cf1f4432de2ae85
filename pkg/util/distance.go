package util

import "math"

const earthRadiusKm = 6371.0

// CalculateDistance returns the great-circle distance in kilometres between
// two points given in degrees (haversine formula).
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := degToRad(lat1), degToRad(lat2)
	dPhi := degToRad(lat2 - lat1)
	dLambda := degToRad(lon2 - lon1)

	a := math.Pow(math.Sin(dPhi/2), 2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidCoordinates reports whether lat/lon are inside the WGS84 range
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
