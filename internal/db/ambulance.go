package db

import (
	"context"
	"time"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoAmbulanceCollection implements AmbulanceCollection for MongoDB.
type MongoAmbulanceCollection struct {
	Collection *mongo.Collection
}

// InsertAmbulance registers a new ambulance and fills in its generated ID.
func (c *MongoAmbulanceCollection) InsertAmbulance(ctx context.Context, ambulance *models.Ambulance) error {
	ambulance.CreatedAt = time.Now()
	if ambulance.Status == "" {
		ambulance.Status = models.AmbulanceAvailable
	}
	oid, err := insertOne(ctx, c.Collection, ambulance)
	if err != nil {
		return err
	}
	ambulance.ID = oid
	return nil
}

// FindAmbulances queries ambulances; a $near filter yields nearest-first order.
func (c *MongoAmbulanceCollection) FindAmbulances(ctx context.Context, filter bson.M) ([]models.Ambulance, error) {
	return findAll[models.Ambulance](ctx, c.Collection, filter)
}

// FindAmbulanceByID finds an ambulance by its ID.
func (c *MongoAmbulanceCollection) FindAmbulanceByID(ctx context.Context, id string) (*models.Ambulance, error) {
	return findByID[models.Ambulance](ctx, c.Collection, id)
}

// UpdateAmbulanceLocation stores a new position report.
func (c *MongoAmbulanceCollection) UpdateAmbulanceLocation(ctx context.Context, id string, loc models.Location) (*models.Ambulance, error) {
	return updateByID[models.Ambulance](ctx, c.Collection, id, bson.M{
		"location":            loc.Point(),
		"location_updated_at": time.Now(),
	})
}

// UpdateAmbulanceStatus toggles the dispatch state.
func (c *MongoAmbulanceCollection) UpdateAmbulanceStatus(ctx context.Context, id string, status models.AmbulanceStatus) (*models.Ambulance, error) {
	return updateByID[models.Ambulance](ctx, c.Collection, id, bson.M{"status": status})
}
