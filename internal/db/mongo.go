package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	AmbulancesCollection   = "ambulances"
	DoctorsCollection      = "doctors"
	HospitalsCollection    = "hospitals"
	MedicinesCollection    = "medicines"
	UsersCollection        = "users"
	AppointmentsCollection = "appointments"
	ReportsCollection      = "reports"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidID     = errors.New("invalid id")
	ErrDuplicate     = errors.New("duplicate key")
	errNilCollection = errors.New("mongo collection is nil")
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the 2dsphere indexes proximity lookups depend on,
// plus the uniqueness constraints of the registration flows.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for _, name := range []string{AmbulancesCollection, DoctorsCollection, HospitalsCollection} {
		_, err := database.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		})
		if err != nil {
			return fmt.Errorf("create 2dsphere index on %s: %w", name, err)
		}
	}

	unique := map[string]string{
		AmbulancesCollection: "vehicle_plate",
		UsersCollection:      "email",
	}
	for name, field := range unique {
		_, err := database.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create unique index on %s.%s: %w", name, field, err)
		}
	}
	return nil
}

// ClearCollections deletes every document of the named collections, keeping
// their indexes.
func ClearCollections(ctx context.Context, database *mongo.Database, names ...string) error {
	for _, name := range names {
		if _, err := database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	if coll == nil {
		return nil, errNilCollection
	}
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findByID[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	if coll == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc T
	err = coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// updateByID applies a $set and returns the updated document.
func updateByID[T any](ctx context.Context, coll *mongo.Collection, id string, set bson.M) (*T, error) {
	if coll == nil {
		return nil, errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	if coll == nil {
		return errNilCollection
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func insertOne(ctx context.Context, coll *mongo.Collection, doc interface{}) (primitive.ObjectID, error) {
	if coll == nil {
		return primitive.NilObjectID, errNilCollection
	}
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return primitive.NilObjectID, err
	}
	oid, _ := res.InsertedID.(primitive.ObjectID)
	return oid, nil
}
