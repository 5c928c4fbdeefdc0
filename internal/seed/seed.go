// Package seed loads the sample users, doctors, hospitals, medicines and
// ambulances a fresh deployment starts from.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type DoctorStore interface {
	InsertDoctor(ctx context.Context, doctor *models.Doctor) error
	FindDoctors(ctx context.Context, filter bson.M) ([]models.Doctor, error)
}

type HospitalStore interface {
	InsertHospital(ctx context.Context, hospital *models.Hospital) error
	FindHospitals(ctx context.Context, filter bson.M) ([]models.Hospital, error)
}

type MedicineStore interface {
	InsertMedicine(ctx context.Context, medicine *models.Medicine) error
	SearchMedicines(ctx context.Context, query string) ([]models.Medicine, error)
}

type AmbulanceStore interface {
	InsertAmbulance(ctx context.Context, ambulance *models.Ambulance) error
}

// Stores are the collections the seeder writes to.
type Stores struct {
	Users      UserStore
	Doctors    DoctorStore
	Hospitals  HospitalStore
	Medicines  MedicineStore
	Ambulances AmbulanceStore
}

// Result counts the records a run inserted. Records already present are
// left untouched and not counted.
type Result struct {
	Users      int
	Doctors    int
	Hospitals  int
	Medicines  int
	Ambulances int
}

// Seeder inserts the sample catalog. Runs are repeatable: users and
// ambulances are matched on their unique keys, everything else by name.
type Seeder struct {
	stores Stores
	log    logrus.FieldLogger
}

func NewSeeder(stores Stores, log logrus.FieldLogger) *Seeder {
	return &Seeder{stores: stores, log: log.WithField("component", "seed")}
}

func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	users := make(map[string]primitive.ObjectID)
	for _, u := range sampleUsers() {
		id, created, err := s.user(ctx, u)
		if err != nil {
			return res, err
		}
		users[u.Email] = id
		if created {
			res.Users++
		}
	}
	doctorUser := users[doctorEmail]

	for _, d := range sampleDoctors() {
		existing, err := s.stores.Doctors.FindDoctors(ctx, bson.M{"name": d.Name})
		if err != nil {
			return res, fmt.Errorf("look up doctor %q: %w", d.Name, err)
		}
		if len(existing) > 0 {
			continue
		}
		d.UserID = doctorUser
		if err := s.stores.Doctors.InsertDoctor(ctx, &d); err != nil {
			return res, fmt.Errorf("insert doctor %q: %w", d.Name, err)
		}
		res.Doctors++
	}

	hospitals := make([]primitive.ObjectID, 0, 2)
	for _, h := range sampleHospitals() {
		existing, err := s.stores.Hospitals.FindHospitals(ctx, bson.M{"name": h.Name})
		if err != nil {
			return res, fmt.Errorf("look up hospital %q: %w", h.Name, err)
		}
		if len(existing) > 0 {
			hospitals = append(hospitals, existing[0].ID)
			continue
		}
		if err := s.stores.Hospitals.InsertHospital(ctx, &h); err != nil {
			return res, fmt.Errorf("insert hospital %q: %w", h.Name, err)
		}
		hospitals = append(hospitals, h.ID)
		res.Hospitals++
	}

	for _, m := range sampleMedicines() {
		found, err := s.stores.Medicines.SearchMedicines(ctx, m.Name)
		if err != nil {
			return res, fmt.Errorf("look up medicine %q: %w", m.Name, err)
		}
		if containsMedicine(found, m.Name) {
			continue
		}
		if err := s.stores.Medicines.InsertMedicine(ctx, &m); err != nil {
			return res, fmt.Errorf("insert medicine %q: %w", m.Name, err)
		}
		res.Medicines++
	}

	for i, a := range sampleAmbulances() {
		hospitalID := hospitals[a.Hospital]
		ambulance := &models.Ambulance{
			VehiclePlate: a.Plate,
			HospitalID:   &hospitalID,
			Status:       models.AmbulanceAvailable,
			Location:     point(a.Location),
		}
		if i == 0 && !doctorUser.IsZero() {
			driver := doctorUser
			ambulance.DriverID = &driver
		}
		err := s.stores.Ambulances.InsertAmbulance(ctx, ambulance)
		if errors.Is(err, db.ErrDuplicate) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("insert ambulance %s: %w", a.Plate, err)
		}
		res.Ambulances++
	}

	s.log.WithFields(logrus.Fields{
		"users":      res.Users,
		"doctors":    res.Doctors,
		"hospitals":  res.Hospitals,
		"medicines":  res.Medicines,
		"ambulances": res.Ambulances,
	}).Info("Sample data loaded")
	return res, nil
}

// user inserts u unless its email is taken, returning the stored ID.
func (s *Seeder) user(ctx context.Context, u models.User) (primitive.ObjectID, bool, error) {
	err := s.stores.Users.InsertUser(ctx, &u)
	if err == nil {
		return u.ID, true, nil
	}
	if !errors.Is(err, db.ErrDuplicate) {
		return primitive.NilObjectID, false, fmt.Errorf("insert user %s: %w", u.Email, err)
	}
	existing, err := s.stores.Users.FindUserByEmail(ctx, u.Email)
	if err != nil {
		return primitive.NilObjectID, false, fmt.Errorf("look up user %s: %w", u.Email, err)
	}
	return existing.ID, false, nil
}

func containsMedicine(list []models.Medicine, name string) bool {
	for _, m := range list {
		if strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}
