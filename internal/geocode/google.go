// Package geocode resolves street addresses to coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/models"
	"googlemaps.github.io/maps"
)

// ErrEmptyResponse is returned when the Google Maps API finds nothing for an address.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// GoogleAPIClient is the subset of *maps.Client used for geocoding.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Google geocodes addresses with the Google Maps Geocoding API.
type Google struct {
	client GoogleAPIClient
	log    logrus.FieldLogger
}

func NewGoogle(client GoogleAPIClient, log logrus.FieldLogger) *Google {
	return &Google{client: client, log: log.WithField("component", "geocode")}
}

// NewGoogleFromKey builds a rate limited Maps client for apiKey.
func NewGoogleFromKey(apiKey string, rateLimit int, log logrus.FieldLogger) (*Google, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required for Google geocoding")
	}
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if rateLimit > 0 {
		opts = append(opts, maps.WithRateLimit(rateLimit))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return NewGoogle(client, log), nil
}

// Geocode returns the location of the first match for address.
func (g *Google) Geocode(ctx context.Context, address string) (*models.Location, error) {
	g.log.WithField("address", address).Debug("Geocoding address")

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	loc := results[0].Geometry.Location
	out := &models.Location{Lat: loc.Lat, Lng: loc.Lng}
	if !out.Valid() {
		return nil, fmt.Errorf("geocoder returned out of range coordinates (%g, %g)", loc.Lat, loc.Lng)
	}
	return out, nil
}
