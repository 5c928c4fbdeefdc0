package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/auth"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/middleware"
	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentHandler serves /api/appointments.
type AppointmentHandler struct {
	appointments db.AppointmentCollection
	doctors      db.DoctorCollection
	log          logrus.FieldLogger
}

func NewAppointmentHandler(appointments db.AppointmentCollection, doctors db.DoctorCollection, log logrus.FieldLogger) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, doctors: doctors, log: log.WithField("handler", "appointments")}
}

type appointmentRequest struct {
	PatientID     string  `json:"patient_id"`
	DoctorID      string  `json:"doctor_id"`
	Date          string  `json:"date"` // RFC 3339 or YYYY-MM-DD
	Time          string  `json:"time"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Notes         string  `json:"notes"`
}

// Create books an appointment. Patients always book for themselves; the fee
// defaults to the doctor's consultation fee.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	if claims, ok := middleware.GetUserFromContext(r.Context()); ok && claims.Role == models.RolePatient {
		req.PatientID = claims.UserID
	}
	patientID, err := primitive.ObjectIDFromHex(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid patient_id")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be RFC 3339 or YYYY-MM-DD")
		return
	}
	if strings.TrimSpace(req.Time) == "" {
		writeError(w, http.StatusBadRequest, "time is required")
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	doctor, err := h.doctors.FindDoctorByID(r.Context(), req.DoctorID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if !doctor.Available {
		writeError(w, http.StatusConflict, "Doctor is not available")
		return
	}
	if req.Amount == 0 {
		req.Amount = doctor.ConsultationFee
	}

	appointment := &models.Appointment{
		PatientID:     patientID,
		DoctorID:      doctor.ID,
		Date:          date,
		Time:          strings.TrimSpace(req.Time),
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	if err := h.appointments.InsertAppointment(r.Context(), appointment); err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.log.WithFields(logrus.Fields{"appointment_id": appointment.ID.Hex(), "doctor_id": doctor.ID.Hex()}).Info("Appointment booked")
	writeJSON(w, http.StatusCreated, appointment)
}

func (h *AppointmentHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := authorizePatient(r, id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.list(w, r, "patient_id", id)
}

// ListByDoctor exposes every patient of a doctor, so patients are refused.
func (h *AppointmentHandler) ListByDoctor(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		fail(w, r, h.log, auth.ErrInvalidToken)
		return
	}
	if claims.Role == models.RolePatient {
		fail(w, r, h.log, fmt.Errorf("%w: patients may only list their own appointments", errForbidden))
		return
	}
	h.list(w, r, "doctor_id", r.PathValue("id"))
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request, field, id string) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		fail(w, r, h.log, db.ErrInvalidID)
		return
	}
	appointments, err := h.appointments.FindAppointments(r.Context(), bson.M{field: oid})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, appointments)
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.AppointmentStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if !models.IsValidAppointmentStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	appointment, err := h.appointments.UpdateAppointmentStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
