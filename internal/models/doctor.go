package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Doctor represents a practitioner listed for consultation.
type Doctor struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name            string             `bson:"name" json:"name"`
	Specialty       string             `bson:"specialty" json:"specialty"`
	Category        string             `bson:"category" json:"category"` // "cardio", "skin", "neurology", ...
	Rating          float64            `bson:"rating" json:"rating"`
	Available       bool               `bson:"available" json:"available"`
	ConsultationFee float64            `bson:"consultation_fee" json:"consultation_fee"`
	Location        *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	Experience      int                `bson:"experience" json:"experience"` // in years
	Qualifications  []string           `bson:"qualifications,omitempty" json:"qualifications,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	DistanceKm      *float64           `bson:"-" json:"distance_km,omitempty"`
}

func (d *Doctor) GeoLocation() *GeoPoint { return d.Location }
func (d *Doctor) SetDistanceKm(km float64) { d.DistanceKm = &km }
