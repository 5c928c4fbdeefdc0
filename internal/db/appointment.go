package db

import (
	"context"
	"time"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAppointmentCollection implements AppointmentCollection for MongoDB.
type MongoAppointmentCollection struct {
	Collection *mongo.Collection
}

// InsertAppointment books a new appointment in the pending state.
func (c *MongoAppointmentCollection) InsertAppointment(ctx context.Context, appointment *models.Appointment) error {
	appointment.CreatedAt = time.Now()
	if appointment.Status == "" {
		appointment.Status = models.AppointmentPending
	}
	if appointment.PaymentStatus == "" {
		appointment.PaymentStatus = "pending"
	}
	oid, err := insertOne(ctx, c.Collection, appointment)
	if err != nil {
		return err
	}
	appointment.ID = oid
	return nil
}

// FindAppointments queries appointments, soonest first.
func (c *MongoAppointmentCollection) FindAppointments(ctx context.Context, filter bson.M) ([]models.Appointment, error) {
	return findAll[models.Appointment](ctx, c.Collection, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
}

// UpdateAppointmentStatus moves an appointment to a new booking state.
func (c *MongoAppointmentCollection) UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	return updateByID[models.Appointment](ctx, c.Collection, id, bson.M{"status": status})
}
