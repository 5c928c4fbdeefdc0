package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/models"
	"github.com/ukydev/lifelink/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func reportUpload(t *testing.T, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withFile {
		part, err := mw.CreateFormFile("file", "cbc.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 report"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReportHandler_Create(t *testing.T) {
	patientID := primitive.NewObjectID()

	t.Run("json body", func(t *testing.T) {
		reports := new(MockReportCollection)
		handler := NewReportHandler(reports, nil, testLogger())
		reports.On("InsertReport", mock.Anything, mock.MatchedBy(func(r *models.MedicalReport) bool {
			return r.PatientID == patientID && r.Title == "CBC" && r.Type == "lab" && r.FileURL == "https://files/cbc.pdf"
		})).Return(nil).Once()

		body := `{"patient_id":"` + patientID.Hex() + `","title":"CBC","type":"lab","file_url":"https://files/cbc.pdf"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(body)), models.RolePatient, patientID.Hex())
		w := httptest.NewRecorder()
		handler.Create(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		reports.AssertExpectations(t)
	})

	t.Run("multipart upload stores the file", func(t *testing.T) {
		reports := new(MockReportCollection)
		files := new(MockFileStore)
		handler := NewReportHandler(reports, files, testLogger())

		files.On("Upload", mock.Anything, patientID.Hex(), "cbc.pdf", "application/octet-stream", mock.Anything, int64(15)).
			Return(&storage.StoredObject{Key: "reports/p/1-cbc.pdf", URL: "http://minio/reports/p/1-cbc.pdf", Size: 15}, nil).Once()
		reports.On("InsertReport", mock.Anything, mock.MatchedBy(func(r *models.MedicalReport) bool {
			return r.FileKey == "reports/p/1-cbc.pdf" && r.FileSize == 15 && r.FileURL == "http://minio/reports/p/1-cbc.pdf"
		})).Return(nil).Once()

		req := reportUpload(t, map[string]string{"patient_id": patientID.Hex(), "title": "CBC", "type": "lab"}, true)
		w := httptest.NewRecorder()
		handler.Create(w, asUser(req, models.RoleHospital, "h1"))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "file_key")
		reports.AssertExpectations(t)
		files.AssertExpectations(t)
	})

	t.Run("insert failure removes the uploaded file", func(t *testing.T) {
		reports := new(MockReportCollection)
		files := new(MockFileStore)
		handler := NewReportHandler(reports, files, testLogger())

		files.On("Upload", mock.Anything, patientID.Hex(), "cbc.pdf", mock.Anything, mock.Anything, mock.Anything).
			Return(&storage.StoredObject{Key: "k", URL: "u", Size: 15}, nil).Once()
		reports.On("InsertReport", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		files.On("Delete", mock.Anything, "k").Return(nil).Once()

		req := reportUpload(t, map[string]string{"patient_id": patientID.Hex(), "title": "CBC"}, true)
		w := httptest.NewRecorder()
		handler.Create(w, asUser(req, models.RoleHospital, "h1"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		files.AssertExpectations(t)
	})

	t.Run("upload without storage", func(t *testing.T) {
		handler := NewReportHandler(new(MockReportCollection), nil, testLogger())

		req := reportUpload(t, map[string]string{"patient_id": patientID.Hex(), "title": "CBC"}, true)
		w := httptest.NewRecorder()
		handler.Create(w, asUser(req, models.RoleHospital, "h1"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("multipart without file", func(t *testing.T) {
		files := new(MockFileStore)
		handler := NewReportHandler(new(MockReportCollection), files, testLogger())

		req := reportUpload(t, map[string]string{"patient_id": patientID.Hex(), "title": "CBC"}, false)
		w := httptest.NewRecorder()
		handler.Create(w, asUser(req, models.RoleHospital, "h1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		files.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("patient cannot file for someone else", func(t *testing.T) {
		reports := new(MockReportCollection)
		handler := NewReportHandler(reports, nil, testLogger())

		body := `{"patient_id":"` + patientID.Hex() + `","title":"CBC"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(body)), models.RolePatient, primitive.NewObjectID().Hex())
		w := httptest.NewRecorder()
		handler.Create(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		reports.AssertNotCalled(t, "InsertReport", mock.Anything, mock.Anything)
	})

	for name, body := range map[string]string{
		"missing title": `{"patient_id":"` + patientID.Hex() + `"}`,
		"bad type":      `{"patient_id":"` + patientID.Hex() + `","title":"X","type":"xray"}`,
		"bad status":    `{"patient_id":"` + patientID.Hex() + `","title":"X","status":"fine"}`,
		"bad patient":   `{"patient_id":"p","title":"X"}`,
	} {
		t.Run(name, func(t *testing.T) {
			reports := new(MockReportCollection)
			handler := NewReportHandler(reports, nil, testLogger())

			req := asUser(httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString(body)), models.RoleHospital, "h1")
			w := httptest.NewRecorder()
			handler.Create(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			reports.AssertNotCalled(t, "InsertReport", mock.Anything, mock.Anything)
		})
	}
}

func TestReportHandler_ListByPatient(t *testing.T) {
	patientID := primitive.NewObjectID().Hex()

	t.Run("filtered by type", func(t *testing.T) {
		reports := new(MockReportCollection)
		handler := NewReportHandler(reports, nil, testLogger())
		reports.On("FindReportsByPatient", mock.Anything, patientID, "lab").Return([]models.MedicalReport{}, nil).Once()

		req := asUser(httptest.NewRequest(http.MethodGet, "/?type=lab", nil), models.RolePatient, patientID)
		req.SetPathValue("id", patientID)
		w := httptest.NewRecorder()
		handler.ListByPatient(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		reports.AssertExpectations(t)
	})

	t.Run("unknown type", func(t *testing.T) {
		reports := new(MockReportCollection)
		handler := NewReportHandler(reports, nil, testLogger())

		req := asUser(httptest.NewRequest(http.MethodGet, "/?type=xray", nil), models.RoleDoctor, "d1")
		req.SetPathValue("id", patientID)
		w := httptest.NewRecorder()
		handler.ListByPatient(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportHandler_Delete(t *testing.T) {
	patientID := primitive.NewObjectID()
	report := &models.MedicalReport{ID: primitive.NewObjectID(), PatientID: patientID, FileKey: "reports/p/1-a.pdf"}

	t.Run("removes record and file", func(t *testing.T) {
		reports := new(MockReportCollection)
		files := new(MockFileStore)
		handler := NewReportHandler(reports, files, testLogger())
		reports.On("FindReportByID", mock.Anything, report.ID.Hex()).Return(report, nil).Once()
		reports.On("DeleteReport", mock.Anything, report.ID.Hex()).Return(nil).Once()
		files.On("Delete", mock.Anything, "reports/p/1-a.pdf").Return(nil).Once()

		req := asUser(httptest.NewRequest(http.MethodDelete, "/", nil), models.RolePatient, patientID.Hex())
		req.SetPathValue("id", report.ID.Hex())
		w := httptest.NewRecorder()
		handler.Delete(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		reports.AssertExpectations(t)
		files.AssertExpectations(t)
	})

	t.Run("other patient's report", func(t *testing.T) {
		reports := new(MockReportCollection)
		handler := NewReportHandler(reports, nil, testLogger())
		reports.On("FindReportByID", mock.Anything, report.ID.Hex()).Return(report, nil).Once()

		req := asUser(httptest.NewRequest(http.MethodDelete, "/", nil), models.RolePatient, primitive.NewObjectID().Hex())
		req.SetPathValue("id", report.ID.Hex())
		w := httptest.NewRecorder()
		handler.Delete(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		reports.AssertNotCalled(t, "DeleteReport", mock.Anything, mock.Anything)
	})

	t.Run("missing", func(t *testing.T) {
		reports := new(MockReportCollection)
		handler := NewReportHandler(reports, nil, testLogger())
		reports.On("FindReportByID", mock.Anything, "x").Return(nil, db.ErrNotFound).Once()

		req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), models.RoleDoctor, "d1")
		req.SetPathValue("id", "x")
		w := httptest.NewRecorder()
		handler.GetByID(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
