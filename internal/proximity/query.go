// Package proximity shapes "near a point within a radius" lookups into
// document-store filters over a 2dsphere-indexed location field.
package proximity

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrInvalidArgument is returned for malformed or inconsistent query parameters.
var ErrInvalidArgument = errors.New("invalid argument")

// Default search radii in kilometers.
const (
	DefaultAmbulanceRadiusKm = 10
	DefaultDoctorRadiusKm    = 5
	DefaultHospitalRadiusKm  = 5
)

const (
	locationField = "location"
	metersPerKm   = 1000
)

// Query is a per-request proximity lookup. A nil Origin means no proximity
// filtering: the lookup degrades to an unordered scan under the same filters.
type Query struct {
	Origin   *models.GeoPoint
	RadiusKm float64
}

// ParseQuery validates raw lat/lng/radius parameters. lat and lng must be
// supplied together; radius falls back to defaultRadiusKm when empty.
func ParseQuery(lat, lng, radius string, defaultRadiusKm float64) (Query, error) {
	lat, lng, radius = strings.TrimSpace(lat), strings.TrimSpace(lng), strings.TrimSpace(radius)

	q := Query{RadiusKm: defaultRadiusKm}
	if radius != "" {
		r, err := strconv.ParseFloat(radius, 64)
		if err != nil || math.IsNaN(r) || math.IsInf(r, 0) {
			return Query{}, fmt.Errorf("%w: radius must be a number, got %q", ErrInvalidArgument, radius)
		}
		if r <= 0 {
			return Query{}, fmt.Errorf("%w: radius must be positive", ErrInvalidArgument)
		}
		q.RadiusKm = r
	}

	if lat == "" && lng == "" {
		return q, nil
	}
	if lat == "" || lng == "" {
		return Query{}, fmt.Errorf("%w: lat and lng must be supplied together", ErrInvalidArgument)
	}

	latVal, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Query{}, fmt.Errorf("%w: lat must be a number, got %q", ErrInvalidArgument, lat)
	}
	lngVal, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return Query{}, fmt.Errorf("%w: lng must be a number, got %q", ErrInvalidArgument, lng)
	}
	if !models.ValidCoordinates(latVal, lngVal) {
		return Query{}, fmt.Errorf("%w: coordinates out of range (%g, %g)", ErrInvalidArgument, latVal, lngVal)
	}

	origin := models.NewPoint(latVal, lngVal)
	q.Origin = &origin
	return q, nil
}

// HasOrigin reports whether the query is proximity-filtered.
func (q Query) HasOrigin() bool {
	return q.Origin != nil
}

// MaxDistanceMeters converts the radius to the store's native unit.
func (q Query) MaxDistanceMeters() float64 {
	return q.RadiusKm * metersPerKm
}

// Apply returns a copy of filter with the $near clause added when the query
// has an origin. $near results come back nearest-first; documents without an
// indexed location never match it.
func (q Query) Apply(filter bson.M) bson.M {
	out := make(bson.M, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	if !q.HasOrigin() {
		return out
	}
	out[locationField] = bson.M{
		"$near": bson.M{
			"$geometry":    bson.M{"type": "Point", "coordinates": q.Origin.Coordinates},
			"$maxDistance": q.MaxDistanceMeters(),
		},
	}
	return out
}

// ContainsAny builds a case-insensitive substring match over fields. The term
// is matched literally.
func ContainsAny(term string, fields ...string) bson.A {
	pattern := caseInsensitive(term)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return or
}

func caseInsensitive(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}
