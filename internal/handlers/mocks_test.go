package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/lifelink/internal/detection"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/middleware"
	"github.com/ukydev/lifelink/internal/models"
	"github.com/ukydev/lifelink/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
)

func testLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func testMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

// asUser attaches authenticated claims to the request.
func asUser(r *http.Request, role models.Role, userID string) *http.Request {
	claims := &models.Claims{UserID: userID, Email: "user@example.com", Role: role, Exp: time.Now().Add(time.Hour).Unix()}
	return r.WithContext(middleware.WithUser(r.Context(), claims))
}

// MockAmbulanceCollection is a mock implementation of AmbulanceCollection
type MockAmbulanceCollection struct {
	mock.Mock
}

func (m *MockAmbulanceCollection) InsertAmbulance(ctx context.Context, ambulance *models.Ambulance) error {
	return m.Called(ctx, ambulance).Error(0)
}

func (m *MockAmbulanceCollection) FindAmbulances(ctx context.Context, filter bson.M) ([]models.Ambulance, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ambulance), args.Error(1)
}

func (m *MockAmbulanceCollection) FindAmbulanceByID(ctx context.Context, id string) (*models.Ambulance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ambulance), args.Error(1)
}

func (m *MockAmbulanceCollection) UpdateAmbulanceLocation(ctx context.Context, id string, loc models.Location) (*models.Ambulance, error) {
	args := m.Called(ctx, id, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ambulance), args.Error(1)
}

func (m *MockAmbulanceCollection) UpdateAmbulanceStatus(ctx context.Context, id string, status models.AmbulanceStatus) (*models.Ambulance, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ambulance), args.Error(1)
}

// MockDoctorCollection is a mock implementation of DoctorCollection
type MockDoctorCollection struct {
	mock.Mock
}

func (m *MockDoctorCollection) FindDoctors(ctx context.Context, filter bson.M) ([]models.Doctor, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Doctor), args.Error(1)
}

func (m *MockDoctorCollection) FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Doctor), args.Error(1)
}

func (m *MockDoctorCollection) UpdateDoctorAvailability(ctx context.Context, id string, available bool) (*models.Doctor, error) {
	args := m.Called(ctx, id, available)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Doctor), args.Error(1)
}

// MockHospitalCollection is a mock implementation of HospitalCollection
type MockHospitalCollection struct {
	mock.Mock
}

func (m *MockHospitalCollection) InsertHospital(ctx context.Context, hospital *models.Hospital) error {
	return m.Called(ctx, hospital).Error(0)
}

func (m *MockHospitalCollection) FindHospitals(ctx context.Context, filter bson.M) ([]models.Hospital, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Hospital), args.Error(1)
}

func (m *MockHospitalCollection) FindHospitalByID(ctx context.Context, id string) (*models.Hospital, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Hospital), args.Error(1)
}

func (m *MockHospitalCollection) UpdateBloodBank(ctx context.Context, id string, bank []models.BloodUnit) (*models.Hospital, error) {
	args := m.Called(ctx, id, bank)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Hospital), args.Error(1)
}

// MockMedicineCollection is a mock implementation of MedicineCollection
type MockMedicineCollection struct {
	mock.Mock
}

func (m *MockMedicineCollection) SearchMedicines(ctx context.Context, query string) ([]models.Medicine, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Medicine), args.Error(1)
}

func (m *MockMedicineCollection) FindMedicineByID(ctx context.Context, id string) (*models.Medicine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Medicine), args.Error(1)
}

func (m *MockMedicineCollection) SampleMedicines(ctx context.Context, n int) ([]models.Medicine, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Medicine), args.Error(1)
}

func (m *MockMedicineCollection) MatchMedicine(ctx context.Context, token string) (*models.Medicine, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Medicine), args.Error(1)
}

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) SetOTP(ctx context.Context, id string, hash string, expiresAt time.Time) error {
	return m.Called(ctx, id, hash, expiresAt).Error(0)
}

func (m *MockUserCollection) ClearOTP(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockAppointmentCollection is a mock implementation of AppointmentCollection
type MockAppointmentCollection struct {
	mock.Mock
}

func (m *MockAppointmentCollection) InsertAppointment(ctx context.Context, appointment *models.Appointment) error {
	return m.Called(ctx, appointment).Error(0)
}

func (m *MockAppointmentCollection) FindAppointments(ctx context.Context, filter bson.M) ([]models.Appointment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *MockAppointmentCollection) UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

// MockReportCollection is a mock implementation of ReportCollection
type MockReportCollection struct {
	mock.Mock
}

func (m *MockReportCollection) InsertReport(ctx context.Context, report *models.MedicalReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockReportCollection) FindReportsByPatient(ctx context.Context, patientID string, reportType string) ([]models.MedicalReport, error) {
	args := m.Called(ctx, patientID, reportType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MedicalReport), args.Error(1)
}

func (m *MockReportCollection) FindReportByID(ctx context.Context, id string) (*models.MedicalReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MedicalReport), args.Error(1)
}

func (m *MockReportCollection) DeleteReport(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockDetector is a mock implementation of Detector
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(ctx context.Context, img detection.Image) (*models.DetectionResult, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DetectionResult), args.Error(1)
}

func (m *MockDetector) DetectBatch(ctx context.Context, images []detection.Image) (*models.BatchResult, error) {
	args := m.Called(ctx, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchResult), args.Error(1)
}

func (m *MockDetector) AnalyzeDosage(ctx context.Context, req models.DosageRequest) (*models.DosageResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DosageResult), args.Error(1)
}

func (m *MockDetector) Health(ctx context.Context) (*detection.HealthStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*detection.HealthStatus), args.Error(1)
}

// MockFileStore is a mock implementation of FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Upload(ctx context.Context, patientID, filename, contentType string, r io.Reader, size int64) (*storage.StoredObject, error) {
	args := m.Called(ctx, patientID, filename, contentType, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoredObject), args.Error(1)
}

func (m *MockFileStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockGeocoder is a mock implementation of Geocoder
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (*models.Location, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}
