package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchTimeout = 60 * time.Second
	batchConcurrency    = 4
	fallbackSampleSize  = 3
)

// Gateway validates detection and dosage requests, runs them on the configured
// strategy and turns backend outages into labeled fallback answers.
type Gateway struct {
	strategy     Strategy
	catalog      Catalog
	metrics      *metrics.Metrics
	log          logrus.FieldLogger
	batchTimeout time.Duration
}

func NewGateway(strategy Strategy, catalog Catalog, m *metrics.Metrics, log logrus.FieldLogger) *Gateway {
	return &Gateway{
		strategy:     strategy,
		catalog:      catalog,
		metrics:      m,
		log:          log.WithField("component", "detection"),
		batchTimeout: defaultBatchTimeout,
	}
}

// Strategy returns the provenance tag of the configured backend.
func (g *Gateway) Strategy() models.Provenance {
	return g.strategy.Name()
}

// Detect identifies the medicine in one image.
func (g *Gateway) Detect(ctx context.Context, img Image) (*models.DetectionResult, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return g.identify(ctx, img)
}

// DetectBatch identifies each image independently. Result i always describes
// image i, and one failed image never fails the batch.
func (g *Gateway) DetectBatch(ctx context.Context, images []Image) (*models.BatchResult, error) {
	if err := ValidateBatch(images); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.batchTimeout)
	defer cancel()

	var items []models.BatchItem
	if bs, ok := g.strategy.(BatchStrategy); ok {
		items = g.identifyBatch(ctx, bs, images)
	} else {
		items = make([]models.BatchItem, len(images))
		var eg errgroup.Group
		eg.SetLimit(batchConcurrency)
		for i, img := range images {
			eg.Go(func() error {
				items[i] = g.batchItem(ctx, i, img)
				return nil
			})
		}
		_ = eg.Wait()
	}

	out := &models.BatchResult{Success: true, Provenance: g.strategy.Name(), Results: items}
	return out, nil
}

// AnalyzeDosage recommends a dosage for a patient.
func (g *Gateway) AnalyzeDosage(ctx context.Context, req models.DosageRequest) (*models.DosageResult, error) {
	if err := validateDosage(req); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := g.strategy.AnalyzeDosage(ctx, req)
	g.observe("analyze_dosage", start)
	if err != nil {
		g.upstreamError(err)
		if !errors.Is(err, ErrUpstreamUnavailable) {
			return nil, err
		}
		g.log.WithError(err).Warn("Dosage backend unavailable, answering from catalog")
		result, err = g.dosageFallback(ctx, req)
		if err != nil {
			return nil, err
		}
	}
	g.stampDosage(result)
	return result, nil
}

// Health reports the configured backend's state.
func (g *Gateway) Health(ctx context.Context) (*HealthStatus, error) {
	return g.strategy.Health(ctx)
}

func (g *Gateway) identify(ctx context.Context, img Image) (*models.DetectionResult, error) {
	start := time.Now()
	result, err := g.strategy.Identify(ctx, img)
	g.observe("identify", start)
	if err != nil {
		g.upstreamError(err)
		if !errors.Is(err, ErrUpstreamUnavailable) {
			g.count(g.strategy.Name(), "failed")
			return nil, err
		}
		g.log.WithError(err).WithField("filename", img.Filename).Warn("Detection backend unavailable, answering from catalog")
		result, err = g.detectionFallback(ctx)
		if err != nil {
			return nil, err
		}
	}
	g.stamp(result)
	return result, nil
}

func (g *Gateway) batchItem(ctx context.Context, i int, img Image) models.BatchItem {
	item := models.BatchItem{Index: i, Filename: img.Filename}
	result, err := g.identify(ctx, img)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Success = result.Success
	item.Result = result
	return item
}

func (g *Gateway) identifyBatch(ctx context.Context, bs BatchStrategy, images []Image) []models.BatchItem {
	start := time.Now()
	items, err := bs.IdentifyBatch(ctx, images)
	g.observe("identify_batch", start)
	if err == nil {
		for i := range items {
			if items[i].Result != nil {
				g.stamp(items[i].Result)
			} else {
				g.count(g.strategy.Name(), "failed")
			}
		}
		return items
	}

	g.upstreamError(err)
	items = make([]models.BatchItem, len(images))
	var fallback *models.DetectionResult
	if errors.Is(err, ErrUpstreamUnavailable) {
		g.log.WithError(err).Warn("Batch backend unavailable, answering from catalog")
		fallback, err = g.detectionFallback(ctx)
	}
	for i, img := range images {
		items[i] = models.BatchItem{Index: i, Filename: img.Filename}
		if fallback == nil {
			items[i].Error = err.Error()
			g.count(g.strategy.Name(), "failed")
			continue
		}
		res := *fallback
		g.stamp(&res)
		items[i].Success = true
		items[i].Result = &res
	}
	return items
}

func (g *Gateway) detectionFallback(ctx context.Context) (*models.DetectionResult, error) {
	sample, err := g.catalog.SampleMedicines(ctx, fallbackSampleSize)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog fallback failed: %v", ErrUpstreamUnavailable, err)
	}
	result := &models.DetectionResult{
		Success:     true,
		Provenance:  models.ProvenanceFallback,
		Confidence:  0,
		Suggestions: sample,
		Degraded:    true,
		Note:        "Detection service unavailable. Showing catalog suggestions instead of a detection.",
	}
	return result, nil
}

func (g *Gateway) dosageFallback(ctx context.Context, req models.DosageRequest) (*models.DosageResult, error) {
	med, err := resolveMedicine(ctx, g.catalog, req)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog fallback failed: %v", ErrUpstreamUnavailable, err)
	}
	result := &models.DosageResult{
		Success:           true,
		Provenance:        models.ProvenanceFallback,
		Medicine:          displayName(req, med),
		RecommendedDosage: "Consult a doctor or pharmacist",
		Warnings:          []string{},
		PatientAge:        req.PatientAge,
		PatientWeight:     req.PatientWeight,
		Degraded:          true,
		Note:              "Dosage service unavailable. Showing the catalog's standard dosage.",
	}
	if med != nil {
		if med.Dosage != "" {
			result.RecommendedDosage = med.Dosage
		}
		if med.Warnings != nil {
			result.Warnings = med.Warnings
		}
	}
	if req.PatientAge < pediatricAge {
		result.RecommendedDosage = pediatricDosage
	}
	return result, nil
}

func (g *Gateway) stamp(result *models.DetectionResult) {
	if result.Provenance == "" {
		result.Provenance = g.strategy.Name()
	}
	result.Disclaimer = models.Disclaimer

	outcome := "success"
	switch {
	case result.Degraded:
		outcome = "degraded"
	case !result.Success:
		outcome = "unreadable"
	}
	g.count(result.Provenance, outcome)
}

func (g *Gateway) stampDosage(result *models.DosageResult) {
	if result.Provenance == "" {
		result.Provenance = g.strategy.Name()
	}
	result.Disclaimer = models.Disclaimer
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
}

func (g *Gateway) count(p models.Provenance, outcome string) {
	g.metrics.Detections.WithLabelValues(string(p), outcome).Inc()
}

func (g *Gateway) observe(op string, start time.Time) {
	g.metrics.UpstreamSeconds.WithLabelValues(string(g.strategy.Name()), op).Observe(time.Since(start).Seconds())
}

func (g *Gateway) upstreamError(err error) {
	kind := "error"
	if errors.Is(err, ErrUpstreamUnavailable) {
		kind = "unavailable"
	}
	g.metrics.UpstreamErrors.WithLabelValues(string(g.strategy.Name()), kind).Inc()
}

func validateDosage(req models.DosageRequest) error {
	if req.MedicineID == "" && req.MedicineName == "" {
		return fmt.Errorf("%w: medicine_id or medicine_name is required", ErrInvalidRequest)
	}
	if req.PatientAge < 0 || req.PatientAge > 150 {
		return fmt.Errorf("%w: patient_age must be between 0 and 150", ErrInvalidRequest)
	}
	if req.PatientWeight < 0 {
		return fmt.Errorf("%w: patient_weight must not be negative", ErrInvalidRequest)
	}
	return nil
}
