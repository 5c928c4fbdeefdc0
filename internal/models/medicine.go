package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PharmacyPrice is the price and stock of a medicine at one pharmacy.
type PharmacyPrice struct {
	Shop      string  `bson:"shop" json:"shop"`
	Price     float64 `bson:"price" json:"price"`
	Available bool    `bson:"available" json:"available"`
}

// Medicine is an entry of the local medicine catalog.
type Medicine struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Type        string             `bson:"type,omitempty" json:"type,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	Dosage      string             `bson:"dosage,omitempty" json:"dosage,omitempty"`
	Prices      []PharmacyPrice    `bson:"prices,omitempty" json:"prices,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	SideEffects []string           `bson:"side_effects,omitempty" json:"side_effects,omitempty"`
	Warnings    []string           `bson:"warnings,omitempty" json:"warnings,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
