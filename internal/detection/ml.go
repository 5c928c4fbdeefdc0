package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/models"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// MLStrategy forwards images to the external detection microservice.
type MLStrategy struct {
	baseURL      string
	client       HTTPClient
	catalog      Catalog
	timeout      time.Duration
	batchTimeout time.Duration
	log          logrus.FieldLogger
}

func NewMLStrategy(baseURL string, client HTTPClient, catalog Catalog, timeout, batchTimeout time.Duration, log logrus.FieldLogger) *MLStrategy {
	return &MLStrategy{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       client,
		catalog:      catalog,
		timeout:      timeout,
		batchTimeout: batchTimeout,
		log:          log.WithField("strategy", models.ProvenanceMLService),
	}
}

func (s *MLStrategy) Name() models.Provenance { return models.ProvenanceMLService }

// mlMedicine is a medicine as described by the microservice.
type mlMedicine struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	Category    string                 `json:"category"`
	Dosage      string                 `json:"dosage"`
	SideEffects []string               `json:"sideEffects"`
	Warnings    []string               `json:"warnings"`
	Prices      []models.PharmacyPrice `json:"prices"`
}

type mlDetection struct {
	Filename   string      `json:"filename"`
	Success    bool        `json:"success"`
	Confidence float64     `json:"confidence"`
	Detected   *mlMedicine `json:"detected"`
	Message    string      `json:"message"`
	Error      string      `json:"error"`
}

func (s *MLStrategy) Identify(ctx context.Context, img Image) (*models.DetectionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, contentType, err := multipartImages("file", []Image{img})
	if err != nil {
		return nil, err
	}
	raw, err := s.do(ctx, http.MethodPost, "/api/detect", body, contentType)
	if err != nil {
		return nil, err
	}

	var det mlDetection
	if err := json.Unmarshal(raw, &det); err != nil {
		return nil, fmt.Errorf("%w: decode detection: %v", ErrUpstream, err)
	}
	det.Success = det.Success || det.Detected != nil
	result := s.toResult(ctx, det)
	result.Raw = raw
	return result, nil
}

// IdentifyBatch sends every image in one call. Per-image failures reported by
// the service stay per-image.
func (s *MLStrategy) IdentifyBatch(ctx context.Context, images []Image) ([]models.BatchItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()

	body, contentType, err := multipartImages("files", images)
	if err != nil {
		return nil, err
	}
	raw, err := s.do(ctx, http.MethodPost, "/api/detect-batch", body, contentType)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode batch: %v", ErrUpstream, err)
	}

	items := make([]models.BatchItem, len(images))
	for i, img := range images {
		items[i] = models.BatchItem{Index: i, Filename: img.Filename}
		if i >= len(resp.Results) {
			items[i].Error = "no result returned for image"
			continue
		}
		var det mlDetection
		if err := json.Unmarshal(resp.Results[i], &det); err != nil {
			items[i].Error = fmt.Sprintf("decode result: %v", err)
			continue
		}
		if !det.Success {
			items[i].Error = det.Error
			if items[i].Error == "" {
				items[i].Error = "detection failed"
			}
			continue
		}
		result := s.toResult(ctx, det)
		result.Raw = resp.Results[i]
		items[i].Success = true
		items[i].Result = result
	}
	return items, nil
}

// AnalyzeDosage queries the service with the medicine key and patient details as query parameters.
func (s *MLStrategy) AnalyzeDosage(ctx context.Context, req models.DosageRequest) (*models.DosageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	med, err := resolveMedicine(ctx, s.catalog, req)
	if err != nil {
		return nil, fmt.Errorf("resolve medicine: %w", err)
	}

	q := url.Values{}
	q.Set("medicine_id", strings.ToLower(firstToken(displayName(req, med))))
	q.Set("patient_age", strconv.Itoa(req.PatientAge))
	if req.PatientWeight > 0 {
		q.Set("patient_weight", strconv.FormatFloat(req.PatientWeight, 'f', -1, 64))
	}

	raw, err := s.do(ctx, http.MethodPost, "/api/analyze-dosage?"+q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Medicine          string   `json:"medicine"`
		PatientAge        int      `json:"patient_age"`
		RecommendedDosage string   `json:"recommended_dosage"`
		Warnings          []string `json:"warnings"`
		Note              string   `json:"note"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.RecommendedDosage == "" {
		s.log.WithError(err).Warn("Unparsable dosage from detection service")
		return &models.DosageResult{
			Success:           true,
			Medicine:          displayName(req, med),
			RecommendedDosage: "Unable to determine dosage",
			Warnings:          []string{"Consult a doctor or pharmacist before use"},
			PatientAge:        req.PatientAge,
			PatientWeight:     req.PatientWeight,
			Raw:               raw,
			Note:              "Unable to parse dosage analysis",
		}, nil
	}

	return &models.DosageResult{
		Success:           true,
		Medicine:          resp.Medicine,
		RecommendedDosage: resp.RecommendedDosage,
		Warnings:          resp.Warnings,
		PatientAge:        req.PatientAge,
		PatientWeight:     req.PatientWeight,
		Raw:               raw,
		Note:              resp.Note,
	}, nil
}

func (s *MLStrategy) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := s.do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return &HealthStatus{Strategy: s.Name(), Status: "unavailable", Detail: err.Error()}, err
	}
	var resp struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(raw, &resp)
	if resp.Status == "" {
		resp.Status = "unknown"
	}
	return &HealthStatus{Strategy: s.Name(), Status: resp.Status, Upstream: raw}, nil
}

func (s *MLStrategy) toResult(ctx context.Context, det mlDetection) *models.DetectionResult {
	result := &models.DetectionResult{
		Success:    det.Success,
		Confidence: clamp01(det.Confidence),
		Note:       det.Message,
	}
	if det.Detected != nil {
		result.Detected = &models.MedicineInfo{
			Name:        det.Detected.Name,
			Category:    det.Detected.Category,
			Usage:       det.Detected.Type,
			SideEffects: det.Detected.SideEffects,
			Precautions: det.Detected.Warnings,
			DosageInfo:  det.Detected.Dosage,
			Confidence:  result.Confidence,
		}
		result.CatalogMatch = matchCatalog(ctx, s.catalog, det.Detected.Name, s.log)
	}
	return result
}

// do sends one request and returns the body of a 2xx response.
func (s *MLStrategy) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classify("detection service", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify("read detection service response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/api/analyze-dosage"):
		return nil, fmt.Errorf("%w: %s", ErrUnknownMedicine, upstreamDetail(raw))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: detection service returned %d: %s", ErrUpstream, resp.StatusCode, upstreamDetail(raw))
	}
	return raw, nil
}

// upstreamDetail extracts the FastAPI style {"detail": ...} message when present.
func upstreamDetail(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}

func multipartImages(field string, images []Image) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, img := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, img.Filename))
		h.Set("Content-Type", img.mediaType())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create form part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("write form part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
