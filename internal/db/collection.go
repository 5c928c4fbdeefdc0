package db

import (
	"context"

	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// AmbulanceCollection defines the interface for ambulance data operations.
type AmbulanceCollection interface {
	InsertAmbulance(ctx context.Context, ambulance *models.Ambulance) error
	FindAmbulances(ctx context.Context, filter bson.M) ([]models.Ambulance, error)
	FindAmbulanceByID(ctx context.Context, id string) (*models.Ambulance, error)
	UpdateAmbulanceLocation(ctx context.Context, id string, loc models.Location) (*models.Ambulance, error)
	UpdateAmbulanceStatus(ctx context.Context, id string, status models.AmbulanceStatus) (*models.Ambulance, error)
}

// DoctorCollection defines the interface for doctor data operations.
type DoctorCollection interface {
	FindDoctors(ctx context.Context, filter bson.M) ([]models.Doctor, error)
	FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error)
	UpdateDoctorAvailability(ctx context.Context, id string, available bool) (*models.Doctor, error)
}

// HospitalCollection defines the interface for hospital data operations.
type HospitalCollection interface {
	InsertHospital(ctx context.Context, hospital *models.Hospital) error
	FindHospitals(ctx context.Context, filter bson.M) ([]models.Hospital, error)
	FindHospitalByID(ctx context.Context, id string) (*models.Hospital, error)
	UpdateBloodBank(ctx context.Context, id string, bank []models.BloodUnit) (*models.Hospital, error)
}

// MedicineCollection defines the interface for the medicine catalog.
type MedicineCollection interface {
	SearchMedicines(ctx context.Context, query string) ([]models.Medicine, error)
	FindMedicineByID(ctx context.Context, id string) (*models.Medicine, error)
	SampleMedicines(ctx context.Context, n int) ([]models.Medicine, error)
	MatchMedicine(ctx context.Context, token string) (*models.Medicine, error)
}

// AppointmentCollection defines the interface for appointment data operations.
type AppointmentCollection interface {
	InsertAppointment(ctx context.Context, appointment *models.Appointment) error
	FindAppointments(ctx context.Context, filter bson.M) ([]models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error)
}

// ReportCollection defines the interface for medical report data operations.
type ReportCollection interface {
	InsertReport(ctx context.Context, report *models.MedicalReport) error
	FindReportsByPatient(ctx context.Context, patientID string, reportType string) ([]models.MedicalReport, error)
	FindReportByID(ctx context.Context, id string) (*models.MedicalReport, error)
	DeleteReport(ctx context.Context, id string) error
}
