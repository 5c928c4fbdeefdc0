package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/models"
	"github.com/ukydev/lifelink/internal/proximity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AmbulanceHandler serves /api/ambulances.
type AmbulanceHandler struct {
	ambulances db.AmbulanceCollection
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
}

func NewAmbulanceHandler(ambulances db.AmbulanceCollection, m *metrics.Metrics, log logrus.FieldLogger) *AmbulanceHandler {
	return &AmbulanceHandler{ambulances: ambulances, metrics: m, log: log.WithField("handler", "ambulances")}
}

// Nearby lists available ambulances, nearest first when lat/lng are given.
func (h *AmbulanceHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := proximity.ParseQuery(q.Get("lat"), q.Get("lng"), q.Get("radius"), proximity.DefaultAmbulanceRadiusKm)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	filter := query.Apply(bson.M{"status": models.AmbulanceAvailable})
	ambulances, err := h.ambulances.FindAmbulances(r.Context(), filter)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if query.HasOrigin() {
		proximity.Annotate(*query.Origin, ambulances)
	}
	h.metrics.NearbyQueryHits.WithLabelValues("ambulance").Observe(float64(len(ambulances)))

	writeJSON(w, http.StatusOK, ambulances)
}

func (h *AmbulanceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ambulance, err := h.ambulances.FindAmbulanceByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ambulance)
}

// UpdateLocation applies a position report sent over HTTP.
func (h *AmbulanceHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.metrics.LocationUpdates.WithLabelValues("http", "rejected").Inc()
		fail(w, r, h.log, err)
		return
	}
	loc, err := req.location()
	if err != nil {
		h.metrics.LocationUpdates.WithLabelValues("http", "rejected").Inc()
		fail(w, r, h.log, err)
		return
	}

	ambulance, err := h.ambulances.UpdateAmbulanceLocation(r.Context(), r.PathValue("id"), loc)
	if err != nil {
		h.metrics.LocationUpdates.WithLabelValues("http", "failed").Inc()
		fail(w, r, h.log, err)
		return
	}
	h.metrics.LocationUpdates.WithLabelValues("http", "applied").Inc()
	writeJSON(w, http.StatusOK, ambulance)
}

func (h *AmbulanceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.AmbulanceStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if !models.IsValidAmbulanceStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	ambulance, err := h.ambulances.UpdateAmbulanceStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.log.WithFields(logrus.Fields{"ambulance_id": ambulance.ID.Hex(), "status": req.Status}).Info("Ambulance status changed")
	writeJSON(w, http.StatusOK, ambulance)
}

// Register adds an ambulance unit. The plate must be unique.
func (h *AmbulanceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VehiclePlate string                 `json:"vehicle_plate"`
		HospitalID   string                 `json:"hospital_id"`
		Status       models.AmbulanceStatus `json:"status"`
		Location     *locationRequest       `json:"location"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	ambulance := &models.Ambulance{VehiclePlate: strings.TrimSpace(req.VehiclePlate), Status: req.Status}
	if ambulance.VehiclePlate == "" {
		writeError(w, http.StatusBadRequest, "vehicle_plate is required")
		return
	}
	if ambulance.Status != "" && !models.IsValidAmbulanceStatus(ambulance.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if req.HospitalID != "" {
		oid, err := primitive.ObjectIDFromHex(req.HospitalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hospital_id")
			return
		}
		ambulance.HospitalID = &oid
	}
	if req.Location != nil {
		loc, err := req.Location.location()
		if err != nil {
			fail(w, r, h.log, err)
			return
		}
		p := loc.Point()
		ambulance.Location = &p
	}

	if err := h.ambulances.InsertAmbulance(r.Context(), ambulance); err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.log.WithFields(logrus.Fields{"ambulance_id": ambulance.ID.Hex(), "plate": ambulance.VehiclePlate}).Info("Ambulance registered")
	writeJSON(w, http.StatusCreated, ambulance)
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (req locationRequest) location() (models.Location, error) {
	if req.Lat == nil || req.Lng == nil {
		return models.Location{}, fmt.Errorf("%w: lat and lng are required", proximity.ErrInvalidArgument)
	}
	loc := models.Location{Lat: *req.Lat, Lng: *req.Lng}
	if !loc.Valid() {
		return models.Location{}, fmt.Errorf("%w: coordinates out of range (%g, %g)", proximity.ErrInvalidArgument, loc.Lat, loc.Lng)
	}
	return loc, nil
}
