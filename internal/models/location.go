package models

import "math"

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Valid reports whether the pair lies within the WGS84 coordinate ranges.
func (l Location) Valid() bool {
	return ValidCoordinates(l.Lat, l.Lng)
}

// Point converts the location into a GeoJSON point.
func (l Location) Point() GeoPoint {
	return NewPoint(l.Lat, l.Lng)
}

// GeoPoint is a GeoJSON Point as stored under a 2dsphere index.
// Coordinates are ordered [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewPoint builds a GeoJSON point from a latitude/longitude pair.
func NewPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Lat returns the latitude, or NaN for a malformed point.
func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) != 2 {
		return math.NaN()
	}
	return p.Coordinates[1]
}

// Lng returns the longitude, or NaN for a malformed point.
func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) != 2 {
		return math.NaN()
	}
	return p.Coordinates[0]
}

// Valid reports whether the point carries an in-range [lng, lat] pair.
func (p GeoPoint) Valid() bool {
	return p.Type == "Point" && len(p.Coordinates) == 2 && ValidCoordinates(p.Lat(), p.Lng())
}

// ValidCoordinates checks lat ∈ [-90, 90] and lng ∈ [-180, 180].
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
