package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AmbulanceStatus is the dispatch state of an ambulance unit.
type AmbulanceStatus string

const (
	AmbulanceAvailable   AmbulanceStatus = "available"
	AmbulanceDispatched  AmbulanceStatus = "dispatched"
	AmbulanceBusy        AmbulanceStatus = "busy"
	AmbulanceMaintenance AmbulanceStatus = "maintenance"
)

// IsValidAmbulanceStatus checks if a status is one of the known dispatch states.
func IsValidAmbulanceStatus(s AmbulanceStatus) bool {
	switch s {
	case AmbulanceAvailable, AmbulanceDispatched, AmbulanceBusy, AmbulanceMaintenance:
		return true
	default:
		return false
	}
}

// Ambulance represents an ambulance unit.
type Ambulance struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	VehiclePlate     string              `bson:"vehicle_plate" json:"vehicle_plate"`
	HospitalID       *primitive.ObjectID `bson:"hospital_id,omitempty" json:"hospital_id,omitempty"`
	DriverID         *primitive.ObjectID `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	Status           AmbulanceStatus     `bson:"status" json:"status"`
	Location         *GeoPoint           `bson:"location,omitempty" json:"location,omitempty"`
	CurrentBookingID *primitive.ObjectID `bson:"current_booking_id,omitempty" json:"current_booking_id,omitempty"`
	LocationUpdated  *time.Time          `bson:"location_updated_at,omitempty" json:"location_updated_at,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	DistanceKm       *float64            `bson:"-" json:"distance_km,omitempty"`
}

func (a *Ambulance) GeoLocation() *GeoPoint { return a.Location }
func (a *Ambulance) SetDistanceKm(km float64) { a.DistanceKm = &km }
