package handlers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/models"
	"github.com/ukydev/lifelink/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxReportBytes is the size ceiling of an uploaded report file.
const MaxReportBytes = 20 << 20

// FileStore keeps report files.
type FileStore interface {
	Upload(ctx context.Context, patientID, filename, contentType string, r io.Reader, size int64) (*storage.StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// ReportHandler serves /api/reports.
type ReportHandler struct {
	reports db.ReportCollection
	files   FileStore // nil disables file uploads
	log     logrus.FieldLogger
}

func NewReportHandler(reports db.ReportCollection, files FileStore, log logrus.FieldLogger) *ReportHandler {
	return &ReportHandler{reports: reports, files: files, log: log.WithField("handler", "reports")}
}

type reportRequest struct {
	PatientID  string `json:"patient_id"`
	Title      string `json:"title"`
	Facility   string `json:"facility"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	FileURL    string `json:"file_url"`
	AIAnalysis string `json:"ai_analysis"`
}

// ListByPatient returns a patient's reports, newest first, optionally of one type.
func (h *ReportHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := authorizePatient(r, id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	reportType := strings.TrimSpace(r.URL.Query().Get("type"))
	if reportType != "" && !models.IsValidReportType(reportType) {
		writeError(w, http.StatusBadRequest, "Invalid report type")
		return
	}

	reports, err := h.reports.FindReportsByPatient(r.Context(), id, reportType)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Create stores a report from a JSON body, or from a multipart form whose
// "file" part is uploaded to object storage.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.createWithFile(w, r)
		return
	}

	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	report, err := h.newReport(r, req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	report.FileURL = strings.TrimSpace(req.FileURL)
	h.insert(w, r, report)
}

func (h *ReportHandler) createWithFile(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		writeError(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxReportBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid upload: file must be at most %d MB", MaxReportBytes>>20))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := reportRequest{
		PatientID:  r.FormValue("patient_id"),
		Title:      r.FormValue("title"),
		Facility:   r.FormValue("facility"),
		Type:       r.FormValue("type"),
		Status:     r.FormValue("status"),
		AIAnalysis: r.FormValue("ai_analysis"),
	}
	report, err := h.newReport(r, req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "field \"file\" is required")
		return
	}
	defer file.Close()

	obj, err := h.files.Upload(r.Context(), report.PatientID.Hex(), header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	report.FileURL, report.FileKey, report.FileSize = obj.URL, obj.Key, obj.Size
	h.insert(w, r, report)
}

func (h *ReportHandler) newReport(r *http.Request, req reportRequest) (*models.MedicalReport, error) {
	patientID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.PatientID))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid patient_id", errInvalidBody)
	}
	if err := authorizePatient(r, patientID.Hex()); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", errInvalidBody)
	}
	if req.Type != "" && !models.IsValidReportType(req.Type) {
		return nil, fmt.Errorf("%w: invalid report type %q", errInvalidBody, req.Type)
	}
	switch req.Status {
	case "", "normal", "review", "critical":
	default:
		return nil, fmt.Errorf("%w: invalid report status %q", errInvalidBody, req.Status)
	}
	return &models.MedicalReport{
		PatientID:  patientID,
		Title:      strings.TrimSpace(req.Title),
		Facility:   strings.TrimSpace(req.Facility),
		Type:       req.Type,
		Status:     req.Status,
		AIAnalysis: req.AIAnalysis,
	}, nil
}

func (h *ReportHandler) insert(w http.ResponseWriter, r *http.Request, report *models.MedicalReport) {
	if err := h.reports.InsertReport(r.Context(), report); err != nil {
		if report.FileKey != "" {
			h.removeFile(r.Context(), report.FileKey)
		}
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *ReportHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	report, err := h.authorizedReport(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Delete removes the report and then its stored file.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	report, err := h.authorizedReport(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.reports.DeleteReport(r.Context(), report.ID.Hex()); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if report.FileKey != "" {
		h.removeFile(r.Context(), report.FileKey)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReportHandler) authorizedReport(r *http.Request) (*models.MedicalReport, error) {
	report, err := h.reports.FindReportByID(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if err := authorizePatient(r, report.PatientID.Hex()); err != nil {
		return nil, err
	}
	return report, nil
}

func (h *ReportHandler) removeFile(ctx context.Context, key string) {
	if h.files == nil {
		return
	}
	if err := h.files.Delete(ctx, key); err != nil {
		h.log.WithError(err).WithField("key", key).Warn("Failed to remove report file")
	}
}
