package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentStatus is the booking state of an appointment.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// IsValidAppointmentStatus checks if a status is a known booking state.
func IsValidAppointmentStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	default:
		return false
	}
}

// Appointment represents a consultation booked by a patient.
type Appointment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID     primitive.ObjectID `bson:"patient_id" json:"patient_id"`
	DoctorID      primitive.ObjectID `bson:"doctor_id" json:"doctor_id"`
	Date          time.Time          `bson:"date" json:"date"`
	Time          string             `bson:"time" json:"time"` // "10:30 AM"
	Status        AppointmentStatus  `bson:"status" json:"status"`
	PaymentStatus string             `bson:"payment_status" json:"payment_status"` // "pending", "paid", "refunded"
	PaymentMethod string             `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	Amount        float64            `bson:"amount" json:"amount"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}
