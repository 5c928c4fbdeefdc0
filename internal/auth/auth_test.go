package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService("test-secret", time.Hour, 5*time.Minute)
	require.NoError(t, err)
	return service
}

func TestNewService(t *testing.T) {
	service, err := NewService("secret", 0, 0)
	assert.NoError(t, err)
	assert.NotNil(t, service)
	assert.Equal(t, 30*24*time.Hour, service.tokenExp)
	assert.Equal(t, 5*time.Minute, service.otpExp)

	_, err = NewService("", time.Hour, time.Minute)
	assert.Error(t, err)
}

func TestService_GenerateOTP(t *testing.T) {
	service := newTestService(t)

	code, hash, expiresAt, err := service.GenerateOTP()
	require.NoError(t, err)
	assert.Len(t, code, OTPLength)
	assert.Regexp(t, `^\d{6}$`, code)
	assert.NotEqual(t, code, hash)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 2*time.Second)
}

func TestService_CheckOTP(t *testing.T) {
	service := newTestService(t)
	code, hash, expiresAt, err := service.GenerateOTP()
	require.NoError(t, err)

	user := &models.User{OTPHash: hash, OTPExpiresAt: &expiresAt}
	assert.NoError(t, service.CheckOTP(user, code))
	assert.NoError(t, service.CheckOTP(user, " "+code+" "))

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, service.CheckOTP(user, wrong), ErrInvalidOTP)

	past := time.Now().Add(-time.Second)
	expired := &models.User{OTPHash: hash, OTPExpiresAt: &past}
	assert.ErrorIs(t, service.CheckOTP(expired, code), ErrInvalidOTP)

	assert.ErrorIs(t, service.CheckOTP(&models.User{}, code), ErrInvalidOTP)
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t)

	user := &models.User{
		ID:    primitive.NewObjectID(),
		Email: "test@example.com",
		Role:  models.RoleHospital,
	}

	token, err := service.GenerateToken(user)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)

	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	other, _ := NewService("other-secret", time.Hour, time.Minute)
	_, err = other.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	service := newTestService(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"email":   "a@b.co",
		"role":    "patient",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.ValidateToken(signed)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateToken_UnknownRole(t *testing.T) {
	service := newTestService(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"email":   "a@b.co",
		"role":    "admin",
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	signed, _ := token.SignedString([]byte("test-secret"))

	_, err := service.ValidateToken(signed)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := newTestService(t)

	extracted, err := service.ExtractTokenFromHeader("Bearer valid-token")
	assert.NoError(t, err)
	assert.Equal(t, "valid-token", extracted)

	for _, header := range []string{"", "InvalidFormat", "Bearer ", "Basic abc"} {
		_, err = service.ExtractTokenFromHeader(header)
		assert.Equal(t, ErrInvalidToken, err, "header %q", header)
	}
}

func TestService_ValidateEmail(t *testing.T) {
	service := newTestService(t)

	assert.NoError(t, service.ValidateEmail("test@example.com"))
	for _, email := range []string{"testexample.com", "test@", "test", "@example.com"} {
		err := service.ValidateEmail(email)
		assert.Error(t, err, email)
		assert.Contains(t, err.Error(), "invalid email format")
	}
}
