package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/detection"
	"github.com/ukydev/lifelink/internal/models"
)

const (
	suggestionCount = 5
	// multipartOverhead covers form boundaries and headers around the image bytes.
	multipartOverhead = 1 << 20
)

// Detector runs medicine detection and dosage analysis.
type Detector interface {
	Detect(ctx context.Context, img detection.Image) (*models.DetectionResult, error)
	DetectBatch(ctx context.Context, images []detection.Image) (*models.BatchResult, error)
	AnalyzeDosage(ctx context.Context, req models.DosageRequest) (*models.DosageResult, error)
	Health(ctx context.Context) (*detection.HealthStatus, error)
}

// MedicineHandler serves /api/medicines.
type MedicineHandler struct {
	medicines db.MedicineCollection
	detector  Detector
	log       logrus.FieldLogger
}

func NewMedicineHandler(medicines db.MedicineCollection, detector Detector, log logrus.FieldLogger) *MedicineHandler {
	return &MedicineHandler{medicines: medicines, detector: detector, log: log.WithField("handler", "medicines")}
}

// Search matches name or category; an empty query lists the whole catalog.
func (h *MedicineHandler) Search(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.medicines.SearchMedicines(r.Context(), strings.TrimSpace(r.URL.Query().Get("query")))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, medicines)
}

func (h *MedicineHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.medicines.SampleMedicines(r.Context(), suggestionCount)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, medicines)
}

func (h *MedicineHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	medicine, err := h.medicines.FindMedicineByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, medicine)
}

// Detect identifies the medicine in the multipart field "image".
func (h *MedicineHandler) Detect(w http.ResponseWriter, r *http.Request) {
	images, err := readImages(w, r, "image", 1)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if len(images) == 0 {
		fail(w, r, h.log, fmt.Errorf("%w: field \"image\" is required", detection.ErrNoImages))
		return
	}

	result, err := h.detector.Detect(r.Context(), images[0])
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DetectBatch identifies every image in the multipart field "images".
func (h *MedicineHandler) DetectBatch(w http.ResponseWriter, r *http.Request) {
	images, err := readImages(w, r, "images", detection.MaxBatchImages)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	result, err := h.detector.DetectBatch(r.Context(), images)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *MedicineHandler) AnalyzeDosage(w http.ResponseWriter, r *http.Request) {
	var req models.DosageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}

	result, err := h.detector.AnalyzeDosage(r.Context(), req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// MLHealth reports the detection backend's state; 503 when it is down.
func (h *MedicineHandler) MLHealth(w http.ResponseWriter, r *http.Request) {
	status, err := h.detector.Health(r.Context())
	if err != nil {
		h.log.WithError(err).Warn("Detection backend health check failed")
		if status == nil {
			status = &detection.HealthStatus{Status: "unavailable", Detail: err.Error()}
		}
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// readImages parses a multipart upload and reads the files under field. The
// body is bounded by max images of the largest accepted size; a file read
// stops one byte past the image limit so oversize files fail validation.
func readImages(w http.ResponseWriter, r *http.Request, field string, max int) ([]detection.Image, error) {
	limit := int64(max)*(detection.MaxImageBytes+1) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: upload exceeds %d bytes", detection.ErrInvalidImage, limit)
		}
		return nil, fmt.Errorf("%w: expected multipart form data", detection.ErrNoImages)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[field]
	if len(headers) > max {
		return nil, fmt.Errorf("%w: at most %d images per request, got %d", detection.ErrTooManyImages, max, len(headers))
	}

	images := make([]detection.Image, 0, len(headers))
	for _, fh := range headers {
		img, err := readImage(fh)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func readImage(fh *multipart.FileHeader) (detection.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return detection.Image{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, detection.MaxImageBytes+1))
	if err != nil {
		return detection.Image{}, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return detection.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
