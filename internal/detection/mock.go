package detection

import (
	"context"
	"fmt"

	"github.com/ukydev/lifelink/internal/models"
)

const mockConfidence = 0.85

// MockStrategy ignores image content and answers from the local catalog.
type MockStrategy struct {
	catalog Catalog
}

func NewMockStrategy(catalog Catalog) *MockStrategy {
	return &MockStrategy{catalog: catalog}
}

func (s *MockStrategy) Name() models.Provenance { return models.ProvenanceMock }

func (s *MockStrategy) Identify(ctx context.Context, _ Image) (*models.DetectionResult, error) {
	sample, err := s.catalog.SampleMedicines(ctx, 3)
	if err != nil {
		return nil, fmt.Errorf("sample catalog: %w", err)
	}

	result := &models.DetectionResult{
		Success:     true,
		Confidence:  mockConfidence,
		Suggestions: sample,
		Note:        "Mock detection, image content is not analyzed",
	}
	if len(sample) > 0 {
		result.Detected = infoFromCatalog(sample[0], mockConfidence)
		result.CatalogMatch = &sample[0]
	} else {
		result.Detected = &models.MedicineInfo{
			Name:       "Sample Medicine",
			Category:   "General",
			Usage:      "Medicine detection placeholder",
			Confidence: mockConfidence,
		}
	}
	return result, nil
}

func (s *MockStrategy) AnalyzeDosage(_ context.Context, req models.DosageRequest) (*models.DosageResult, error) {
	return &models.DosageResult{
		Success:           true,
		Medicine:          displayName(req, nil),
		RecommendedDosage: "500mg twice daily",
		Warnings:          []string{"Take with food", "Avoid alcohol"},
		PatientAge:        req.PatientAge,
		PatientWeight:     req.PatientWeight,
		Note:              "Mock dosage analysis, not medical advice",
	}, nil
}

func (s *MockStrategy) Health(context.Context) (*HealthStatus, error) {
	return &HealthStatus{Strategy: s.Name(), Status: "healthy", Detail: "mock backend"}, nil
}

// infoFromCatalog presents a catalog entry in the identification schema.
func infoFromCatalog(med models.Medicine, confidence float64) *models.MedicineInfo {
	return &models.MedicineInfo{
		Name:        med.Name,
		Category:    med.Category,
		Usage:       med.Description,
		SideEffects: med.SideEffects,
		Precautions: med.Warnings,
		DosageInfo:  med.Dosage,
		Confidence:  confidence,
	}
}
