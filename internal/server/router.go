// Package server assembles the HTTP surface of the LifeLink API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/handlers"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/middleware"
	"github.com/ukydev/lifelink/internal/models"
)

// Deps is everything the router serves.
type Deps struct {
	Guard       *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimitMiddleware
	DetectLimit int // detection requests per minute per client; <= 0 disables the limit
	Gatherer    prometheus.Gatherer
	Metrics     *metrics.Metrics
	Log         logrus.FieldLogger

	Ambulances   *handlers.AmbulanceHandler
	Doctors      *handlers.DoctorHandler
	Hospitals    *handlers.HospitalHandler
	Medicines    *handlers.MedicineHandler
	Auth         *handlers.AuthHandler
	Appointments *handlers.AppointmentHandler
	Reports      *handlers.ReportHandler
}

type chain []func(http.Handler) http.Handler

func (c chain) then(h http.HandlerFunc) http.Handler {
	var out http.Handler = h
	for i := len(c) - 1; i >= 0; i-- {
		out = c[i](out)
	}
	return out
}

// NewRouter registers every route. Requests are logged first, then
// authenticated; role guards sit on the routes that mutate shared records.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	hospital := chain{d.Guard.RequireRole(models.RoleHospital)}
	doctor := chain{d.Guard.RequireRole(models.RoleDoctor)}
	staff := chain{d.Guard.RequireRole(models.RoleDoctor, models.RoleHospital)}
	var detect chain
	if d.DetectLimit > 0 {
		detect = chain{d.RateLimiter.RateLimit(d.DetectLimit, time.Minute)}
	}

	mux.HandleFunc("GET /health", health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/auth/login", d.Auth.Login)
	mux.HandleFunc("POST /api/auth/verify-otp", d.Auth.VerifyOTP)
	mux.HandleFunc("GET /api/auth/me", d.Auth.Me)

	mux.HandleFunc("GET /api/ambulances/nearby", d.Ambulances.Nearby)
	mux.HandleFunc("GET /api/ambulances/{id}", d.Ambulances.GetByID)
	mux.Handle("PATCH /api/ambulances/{id}/location", hospital.then(d.Ambulances.UpdateLocation))
	mux.Handle("PATCH /api/ambulances/{id}/status", hospital.then(d.Ambulances.UpdateStatus))
	mux.Handle("POST /api/ambulances", hospital.then(d.Ambulances.Register))

	mux.HandleFunc("GET /api/doctors", d.Doctors.List)
	mux.HandleFunc("GET /api/doctors/{id}", d.Doctors.GetByID)
	mux.Handle("PATCH /api/doctors/{id}/availability", doctor.then(d.Doctors.UpdateAvailability))

	mux.HandleFunc("GET /api/hospitals", d.Hospitals.List)
	mux.HandleFunc("GET /api/hospitals/{id}", d.Hospitals.GetByID)
	mux.Handle("PATCH /api/hospitals/{id}/blood-bank", hospital.then(d.Hospitals.UpdateBloodBank))
	mux.Handle("POST /api/hospitals", hospital.then(d.Hospitals.Register))

	mux.HandleFunc("GET /api/medicines/search", d.Medicines.Search)
	mux.HandleFunc("GET /api/medicines/suggestions", d.Medicines.Suggestions)
	mux.HandleFunc("GET /api/medicines/ml-health", d.Medicines.MLHealth)
	mux.HandleFunc("GET /api/medicines/{id}", d.Medicines.GetByID)
	mux.Handle("POST /api/medicines/detect", detect.then(d.Medicines.Detect))
	mux.Handle("POST /api/medicines/detect-batch", detect.then(d.Medicines.DetectBatch))
	mux.Handle("POST /api/medicines/analyze-dosage", detect.then(d.Medicines.AnalyzeDosage))

	mux.HandleFunc("POST /api/appointments", d.Appointments.Create)
	mux.HandleFunc("GET /api/appointments/patient/{id}", d.Appointments.ListByPatient)
	mux.Handle("GET /api/appointments/doctor/{id}", staff.then(d.Appointments.ListByDoctor))
	mux.Handle("PATCH /api/appointments/{id}/status", staff.then(d.Appointments.UpdateStatus))

	mux.HandleFunc("POST /api/reports", d.Reports.Create)
	mux.HandleFunc("GET /api/reports/patient/{id}", d.Reports.ListByPatient)
	mux.HandleFunc("GET /api/reports/{id}", d.Reports.GetByID)
	mux.HandleFunc("DELETE /api/reports/{id}", d.Reports.Delete)

	return middleware.RequestLogger(d.Log, d.Metrics)(d.Guard.Authenticate(mux))
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": "LifeLink API is running",
	})
}
