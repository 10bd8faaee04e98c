// Package geo provides the small amount of spherical math the pipeline
// needs. Everything else geometric goes through the external directions
// capability or go-geom.
package geo

import (
	"math"

	"github.com/wanderlane/tour-cli/internal/model"
)

const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance between two points in meters.
func HaversineM(a, b model.Coord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}
