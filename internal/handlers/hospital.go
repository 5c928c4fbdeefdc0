package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/models"
	"github.com/ukydev/lifelink/internal/proximity"
	"go.mongodb.org/mongo-driver/bson"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.Location, error)
}

var bloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

// HospitalHandler serves /api/hospitals.
type HospitalHandler struct {
	hospitals db.HospitalCollection
	geocoder  Geocoder // nil disables geocoding
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
}

func NewHospitalHandler(hospitals db.HospitalCollection, geocoder Geocoder, m *metrics.Metrics, log logrus.FieldLogger) *HospitalHandler {
	return &HospitalHandler{hospitals: hospitals, geocoder: geocoder, metrics: m, log: log.WithField("handler", "hospitals")}
}

// List returns hospitals, nearest first when lat/lng are given.
func (h *HospitalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := proximity.ParseQuery(q.Get("lat"), q.Get("lng"), q.Get("radius"), proximity.DefaultHospitalRadiusKm)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	hospitals, err := h.hospitals.FindHospitals(r.Context(), query.Apply(bson.M{}))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if query.HasOrigin() {
		proximity.Annotate(*query.Origin, hospitals)
		h.metrics.NearbyQueryHits.WithLabelValues("hospital").Observe(float64(len(hospitals)))
	}

	writeJSON(w, http.StatusOK, hospitals)
}

func (h *HospitalHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	hospital, err := h.hospitals.FindHospitalByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, hospital)
}

// UpdateBloodBank replaces the blood bank inventory.
func (h *HospitalHandler) UpdateBloodBank(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BloodBank []models.BloodUnit `json:"bloodBank"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if req.BloodBank == nil {
		writeError(w, http.StatusBadRequest, "bloodBank is required")
		return
	}
	if err := validateBloodBank(req.BloodBank); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hospital, err := h.hospitals.UpdateBloodBank(r.Context(), r.PathValue("id"), req.BloodBank)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, hospital)
}

// Register adds a hospital. Without coordinates the address is geocoded when
// a geocoder is configured; a geocoding failure leaves the hospital unlocated.
func (h *HospitalHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string             `json:"name"`
		Address    string             `json:"address"`
		Location   *locationRequest   `json:"location"`
		Rating     float64            `json:"rating"`
		Beds       int                `json:"beds"`
		Emergency  bool               `json:"emergency"`
		BloodBank  []models.BloodUnit `json:"bloodBank"`
		Facilities []string           `json:"facilities"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	hospital := &models.Hospital{
		Name:       strings.TrimSpace(req.Name),
		Address:    strings.TrimSpace(req.Address),
		Rating:     req.Rating,
		Beds:       req.Beds,
		Emergency:  req.Emergency,
		BloodBank:  req.BloodBank,
		Facilities: req.Facilities,
	}
	if hospital.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if hospital.Beds < 0 || hospital.Rating < 0 || hospital.Rating > 5 {
		writeError(w, http.StatusBadRequest, "beds must not be negative and rating must be between 0 and 5")
		return
	}
	if err := validateBloodBank(hospital.BloodBank); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case req.Location != nil:
		loc, err := req.Location.location()
		if err != nil {
			fail(w, r, h.log, err)
			return
		}
		p := loc.Point()
		hospital.Location = &p
	case hospital.Address != "" && h.geocoder != nil:
		loc, err := h.geocoder.Geocode(r.Context(), hospital.Address)
		if err != nil {
			h.log.WithError(err).WithField("address", hospital.Address).Warn("Geocoding failed, registering without location")
			break
		}
		p := loc.Point()
		hospital.Location = &p
	}

	if err := h.hospitals.InsertHospital(r.Context(), hospital); err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.log.WithFields(logrus.Fields{"hospital_id": hospital.ID.Hex(), "located": hospital.Location != nil}).Info("Hospital registered")
	writeJSON(w, http.StatusCreated, hospital)
}

func validateBloodBank(bank []models.BloodUnit) error {
	seen := make(map[string]bool, len(bank))
	for _, unit := range bank {
		if !bloodTypes[unit.Type] {
			return fmt.Errorf("unknown blood type %q", unit.Type)
		}
		if seen[unit.Type] {
			return fmt.Errorf("blood type %q listed twice", unit.Type)
		}
		if unit.Units < 0 {
			return fmt.Errorf("units for %s must not be negative", unit.Type)
		}
		seen[unit.Type] = true
	}
	return nil
}
