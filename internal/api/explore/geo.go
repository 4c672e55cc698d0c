package explore

import (
	"math"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

// earthRadiusMeters is the WGS84 mean radius.
const earthRadiusMeters = 6_371_008.8

// DistanceMeters is the great-circle (haversine) distance between a and b.
func DistanceMeters(a, b types.LatLon) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dlat := (b.Lat - a.Lat) * math.Pi / 180
	dlon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}
