package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BloodUnit is the stock of one blood type at a hospital blood bank.
type BloodUnit struct {
	Type  string `bson:"type" json:"type"` // "A+", "O-", ...
	Units int    `bson:"units" json:"units"`
}

// Hospital represents a fixed-site care facility.
type Hospital struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Address    string             `bson:"address,omitempty" json:"address,omitempty"`
	Location   *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	Rating     float64            `bson:"rating" json:"rating"`
	Beds       int                `bson:"beds" json:"beds"`
	Emergency  bool               `bson:"emergency" json:"emergency"`
	BloodBank  []BloodUnit        `bson:"blood_bank,omitempty" json:"blood_bank,omitempty"`
	Facilities []string           `bson:"facilities,omitempty" json:"facilities,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	DistanceKm *float64           `bson:"-" json:"distance_km,omitempty"`
}

func (h *Hospital) GeoLocation() *GeoPoint { return h.Location }
func (h *Hospital) SetDistanceKm(km float64) { h.DistanceKm = &km }
