package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/auth"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/middleware"
	"github.com/ukydev/lifelink/internal/models"
)

// AuthHandler handles one-time-password login
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	exposeOTP      bool
	log            logrus.FieldLogger
}

// NewAuthHandler creates a new authentication handler. exposeOTP returns the
// code in the login response and is meant for local development only.
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, exposeOTP bool, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		exposeOTP:      exposeOTP,
		log:            log.WithField("handler", "auth"),
	}
}

// Login issues a login code, creating the user on first login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if req.Role == "" {
		req.Role = models.RolePatient
	}
	if !models.IsValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	user, err := h.findOrCreateUser(r, req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	code, hash, expiresAt, err := h.authService.GenerateOTP()
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.userCollection.SetOTP(r.Context(), user.ID.Hex(), hash, expiresAt); err != nil {
		fail(w, r, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": user.ID.Hex(), "role": user.Role}).Info("Login code issued")
	challenge := models.LoginChallenge{Message: "Login code sent", ExpiresAt: expiresAt}
	if h.exposeOTP {
		challenge.OTP = code
	}
	writeJSON(w, http.StatusOK, challenge)
}

// errSelfAssignedAdmin rejects creating a superadmin through login.
var errSelfAssignedAdmin = fmt.Errorf("%w: superadmin accounts cannot be created through login", errForbidden)

func (h *AuthHandler) findOrCreateUser(r *http.Request, req models.LoginRequest) (*models.User, error) {
	user, err := h.userCollection.FindUserByEmail(r.Context(), req.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if req.Role == models.RoleSuperAdmin {
		return nil, errSelfAssignedAdmin
	}

	user = &models.User{
		Email: req.Email,
		Name:  req.Email[:strings.LastIndex(req.Email, "@")],
		Role:  req.Role,
	}
	err = h.userCollection.InsertUser(r.Context(), user)
	if errors.Is(err, db.ErrDuplicate) {
		// Lost a race with a concurrent first login.
		return h.userCollection.FindUserByEmail(r.Context(), req.Email)
	}
	if err != nil {
		return nil, err
	}
	h.log.WithFields(logrus.Fields{"user_id": user.ID.Hex(), "role": user.Role}).Info("User created on first login")
	return user, nil
}

// VerifyOTP exchanges a valid login code for a session token
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || strings.TrimSpace(req.OTP) == "" {
		writeError(w, http.StatusBadRequest, "Email and otp are required")
		return
	}

	user, err := h.userCollection.FindUserByEmail(r.Context(), req.Email)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidOTP.Error())
		return
	}
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	if err := h.authService.CheckOTP(user, req.OTP); err != nil {
		h.log.WithField("user_id", user.ID.Hex()).Warn("Rejected login code")
		fail(w, r, h.log, err)
		return
	}
	if err := h.userCollection.ClearOTP(r.Context(), user.ID.Hex()); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to record last login")
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	user.OTPHash = ""
	user.OTPExpiresAt = nil
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// Me returns the current user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
