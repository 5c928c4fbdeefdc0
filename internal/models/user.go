package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RoleHospital   Role = "hospital"
	RoleSuperAdmin Role = "superadmin"
)

// User represents a user in the system
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email          string             `bson:"email" json:"email"`
	Name           string             `bson:"name" json:"name"`
	Role           Role               `bson:"role" json:"role"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	BloodType      string             `bson:"blood_type,omitempty" json:"blood_type,omitempty"`
	Age            int                `bson:"age,omitempty" json:"age,omitempty"`
	MedicalHistory []string           `bson:"medical_history,omitempty" json:"medical_history,omitempty"`
	Allergies      []string           `bson:"allergies,omitempty" json:"allergies,omitempty"`
	OTPHash        string             `bson:"otp_hash,omitempty" json:"-"`
	OTPExpiresAt   *time.Time         `bson:"otp_expires_at,omitempty" json:"-"`
	LastLogin      *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest starts a one-time-password login
type LoginRequest struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// LoginChallenge is returned after a login request; OTP is only set in local environments
type LoginChallenge struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
	OTP       string    `json:"otp,omitempty"`
}

// VerifyOTPRequest completes a one-time-password login
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RolePatient, RoleDoctor, RoleHospital, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// HasRole reports whether the role satisfies any of the required roles.
// Superadmins satisfy every role.
func (r Role) HasRole(required ...Role) bool {
	if r == RoleSuperAdmin {
		return true
	}
	for _, want := range required {
		if r == want {
			return true
		}
	}
	return false
}
