package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/config"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/seed"
	"go.mongodb.org/mongo-driver/mongo"
)

// seededCollections are cleared when SEED_RESET is set.
var seededCollections = []string{
	db.UsersCollection,
	db.DoctorsCollection,
	db.HospitalsCollection,
	db.MedicinesCollection,
	db.AmbulancesCollection,
}

func stores(database *mongo.Database) seed.Stores {
	return seed.Stores{
		Users:      &db.MongoUserCollection{Collection: database.Collection(db.UsersCollection)},
		Doctors:    &db.MongoDoctorCollection{Collection: database.Collection(db.DoctorsCollection)},
		Hospitals:  &db.MongoHospitalCollection{Collection: database.Collection(db.HospitalsCollection)},
		Medicines:  &db.MongoMedicineCollection{Collection: database.Collection(db.MedicinesCollection)},
		Ambulances: &db.MongoAmbulanceCollection{Collection: database.Collection(db.AmbulancesCollection)},
	}
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	database := client.Database(cfg.Mongo.Database)
	if envBool("SEED_RESET") {
		if err := db.ClearCollections(ctx, database, seededCollections...); err != nil {
			log.WithError(err).Fatal("Failed to clear collections")
		}
		log.WithField("collections", seededCollections).Warn("Existing sample collections cleared")
	}
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}

	if _, err := seed.NewSeeder(stores(database), log.StandardLogger()).Run(ctx); err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
	log.WithField("database", cfg.Mongo.Database).Info("Database seeded")
}
