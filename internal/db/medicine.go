package db

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMedicineCollection implements MedicineCollection for MongoDB.
type MongoMedicineCollection struct {
	Collection *mongo.Collection
}

// InsertMedicine adds a catalog entry.
func (c *MongoMedicineCollection) InsertMedicine(ctx context.Context, medicine *models.Medicine) error {
	medicine.CreatedAt = time.Now()
	oid, err := insertOne(ctx, c.Collection, medicine)
	if err != nil {
		return err
	}
	medicine.ID = oid
	return nil
}

// SearchMedicines matches name or category, case-insensitively.
func (c *MongoMedicineCollection) SearchMedicines(ctx context.Context, query string) ([]models.Medicine, error) {
	pattern := bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"category": pattern},
	}}
	return findAll[models.Medicine](ctx, c.Collection, filter)
}

// FindMedicineByID finds a catalog entry by its ID.
func (c *MongoMedicineCollection) FindMedicineByID(ctx context.Context, id string) (*models.Medicine, error) {
	return findByID[models.Medicine](ctx, c.Collection, id)
}

// SampleMedicines returns up to n catalog entries in natural order.
func (c *MongoMedicineCollection) SampleMedicines(ctx context.Context, n int) ([]models.Medicine, error) {
	return findAll[models.Medicine](ctx, c.Collection, bson.M{}, options.Find().SetLimit(int64(n)))
}

// MatchMedicine finds the first entry whose name starts with token.
func (c *MongoMedicineCollection) MatchMedicine(ctx context.Context, token string) (*models.Medicine, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	filter := bson.M{"name": bson.M{"$regex": "^" + regexp.QuoteMeta(token), "$options": "i"}}
	var medicine models.Medicine
	err := c.Collection.FindOne(ctx, filter).Decode(&medicine)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &medicine, nil
}
