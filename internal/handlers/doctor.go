package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/proximity"
	"go.mongodb.org/mongo-driver/bson"
)

// DoctorHandler serves /api/doctors.
type DoctorHandler struct {
	doctors db.DoctorCollection
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewDoctorHandler(doctors db.DoctorCollection, m *metrics.Metrics, log logrus.FieldLogger) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, metrics: m, log: log.WithField("handler", "doctors")}
}

// List filters doctors by category and a name/specialty search term,
// nearest first when lat/lng are given. category=all disables the category filter.
func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := proximity.ParseQuery(q.Get("lat"), q.Get("lng"), q.Get("radius"), proximity.DefaultDoctorRadiusKm)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	filter := bson.M{}
	if category := strings.TrimSpace(q.Get("category")); category != "" && category != "all" {
		filter["category"] = category
	}
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		filter["$or"] = proximity.ContainsAny(search, "name", "specialty")
	}

	doctors, err := h.doctors.FindDoctors(r.Context(), query.Apply(filter))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if query.HasOrigin() {
		proximity.Annotate(*query.Origin, doctors)
		h.metrics.NearbyQueryHits.WithLabelValues("doctor").Observe(float64(len(doctors)))
	}

	writeJSON(w, http.StatusOK, doctors)
}

func (h *DoctorHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.doctors.FindDoctorByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

func (h *DoctorHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Available *bool `json:"available"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if req.Available == nil {
		writeError(w, http.StatusBadRequest, "available is required")
		return
	}

	doctor, err := h.doctors.UpdateDoctorAvailability(r.Context(), r.PathValue("id"), *req.Available)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}
