package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MedicalReport is a document attached to a patient record.
type MedicalReport struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID  primitive.ObjectID `bson:"patient_id" json:"patient_id"`
	Title      string             `bson:"title" json:"title"`
	Facility   string             `bson:"facility,omitempty" json:"facility,omitempty"`
	Type       string             `bson:"type" json:"type"`     // "lab", "imaging", "prescription", "other"
	Status     string             `bson:"status" json:"status"` // "normal", "review", "critical"
	FileURL    string             `bson:"file_url,omitempty" json:"file_url,omitempty"`
	FileKey    string             `bson:"file_key,omitempty" json:"-"`
	FileSize   int64              `bson:"file_size,omitempty" json:"file_size,omitempty"`
	AIAnalysis string             `bson:"ai_analysis,omitempty" json:"ai_analysis,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// IsValidReportType checks the report type against the known kinds.
func IsValidReportType(t string) bool {
	switch t {
	case "lab", "imaging", "prescription", "other":
		return true
	default:
		return false
	}
}
