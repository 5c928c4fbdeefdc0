package proximity

import (
	"math"

	"github.com/ukydev/lifelink/internal/models"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b models.GeoPoint) float64 {
	dLat := (b.Lat() - a.Lat()) * math.Pi / 180
	dLng := (b.Lng() - a.Lng()) * math.Pi / 180
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return earthRadiusKm * c
}

// Locatable is an entity that may carry a stored point.
type Locatable interface {
	GeoLocation() *models.GeoPoint
	SetDistanceKm(km float64)
}

// Annotate fills in the distance from origin on every item with a valid point.
// Item order is left untouched.
func Annotate[T any, PT interface {
	*T
	Locatable
}](origin models.GeoPoint, items []T) {
	for i := range items {
		p := PT(&items[i])
		loc := p.GeoLocation()
		if loc == nil || !loc.Valid() {
			continue
		}
		p.SetDistanceKm(HaversineKm(origin, *loc))
	}
}
