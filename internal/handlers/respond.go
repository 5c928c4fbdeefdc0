// Package handlers implements the HTTP endpoints of the API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/auth"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/detection"
	"github.com/ukydev/lifelink/internal/middleware"
	"github.com/ukydev/lifelink/internal/models"
	"github.com/ukydev/lifelink/internal/proximity"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

var (
	// errInvalidBody marks a request body that could not be decoded.
	errInvalidBody = errors.New("invalid request body")
	errForbidden   = errors.New("forbidden")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidBody),
		errors.Is(err, proximity.ErrInvalidArgument),
		errors.Is(err, db.ErrInvalidID),
		errors.Is(err, detection.ErrInvalidImage),
		errors.Is(err, detection.ErrNoImages),
		errors.Is(err, detection.ErrTooManyImages),
		errors.Is(err, detection.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidOTP), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, db.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, detection.ErrUnknownMedicine):
		return http.StatusNotFound
	case errors.Is(err, db.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, detection.ErrUpstream), errors.Is(err, detection.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server-side failures are logged and
// their detail is not echoed to the client.
func fail(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.RequestID(r.Context()),
		}).Error("Request failed")
		if status == http.StatusInternalServerError {
			writeError(w, status, "Internal server error")
			return
		}
	}
	writeError(w, status, err.Error())
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON", errInvalidBody)
	}
	return nil
}

// authorizePatient lets patients act only on their own records. Other roles
// may act on any patient.
func authorizePatient(r *http.Request, patientID string) error {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return auth.ErrInvalidToken
	}
	if claims.Role == models.RolePatient && claims.UserID != patientID {
		return fmt.Errorf("%w: patients may only access their own records", errForbidden)
	}
	return nil
}
