package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetOTP(ctx context.Context, id string, hash string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	oid, err := insertOne(ctx, c.Collection, user)
	if err != nil {
		return err
	}
	user.ID = oid
	return nil
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return findByID[models.User](ctx, c.Collection, id)
}

// FindUserByEmail finds a user by their email
func (c *MongoUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	var user models.User
	err := c.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}

// SetOTP stores a hashed one-time password for the user
func (c *MongoUserCollection) SetOTP(ctx context.Context, id string, hash string, expiresAt time.Time) error {
	_, err := updateByID[models.User](ctx, c.Collection, id, bson.M{
		"otp_hash":       hash,
		"otp_expires_at": expiresAt,
		"updated_at":     time.Now(),
	})
	return err
}

// ClearOTP removes a consumed one-time password
func (c *MongoUserCollection) ClearOTP(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	_, err = c.Collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$unset": bson.M{"otp_hash": "", "otp_expires_at": ""}},
	)
	return err
}

// UpdateLastLogin updates the last login time for a user
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	_, err := updateByID[models.User](ctx, c.Collection, id, bson.M{"last_login": now, "updated_at": now})
	return err
}
