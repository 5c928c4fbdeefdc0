package db

import (
	"context"
	"time"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoHospitalCollection implements HospitalCollection for MongoDB.
type MongoHospitalCollection struct {
	Collection *mongo.Collection
}

// InsertHospital registers a hospital and fills in its generated ID.
func (c *MongoHospitalCollection) InsertHospital(ctx context.Context, hospital *models.Hospital) error {
	hospital.CreatedAt = time.Now()
	oid, err := insertOne(ctx, c.Collection, hospital)
	if err != nil {
		return err
	}
	hospital.ID = oid
	return nil
}

// FindHospitals queries hospitals with an optional $near clause.
func (c *MongoHospitalCollection) FindHospitals(ctx context.Context, filter bson.M) ([]models.Hospital, error) {
	return findAll[models.Hospital](ctx, c.Collection, filter)
}

// FindHospitalByID finds a hospital by its ID.
func (c *MongoHospitalCollection) FindHospitalByID(ctx context.Context, id string) (*models.Hospital, error) {
	return findByID[models.Hospital](ctx, c.Collection, id)
}

// UpdateBloodBank replaces the blood bank inventory.
func (c *MongoHospitalCollection) UpdateBloodBank(ctx context.Context, id string, bank []models.BloodUnit) (*models.Hospital, error) {
	return updateByID[models.Hospital](ctx, c.Collection, id, bson.M{"blood_bank": bank})
}
