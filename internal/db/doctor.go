package db

import (
	"context"
	"time"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDoctorCollection implements DoctorCollection for MongoDB.
type MongoDoctorCollection struct {
	Collection *mongo.Collection
}

// InsertDoctor adds a doctor listing. Listings come from the seed catalog.
func (c *MongoDoctorCollection) InsertDoctor(ctx context.Context, doctor *models.Doctor) error {
	doctor.CreatedAt = time.Now()
	oid, err := insertOne(ctx, c.Collection, doctor)
	if err != nil {
		return err
	}
	doctor.ID = oid
	return nil
}

func (c *MongoDoctorCollection) FindDoctors(ctx context.Context, filter bson.M) ([]models.Doctor, error) {
	return findAll[models.Doctor](ctx, c.Collection, filter)
}

func (c *MongoDoctorCollection) FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error) {
	return findByID[models.Doctor](ctx, c.Collection, id)
}

func (c *MongoDoctorCollection) UpdateDoctorAvailability(ctx context.Context, id string, available bool) (*models.Doctor, error) {
	return updateByID[models.Doctor](ctx, c.Collection, id, bson.M{"available": available})
}
