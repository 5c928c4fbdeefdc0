package models

import "encoding/json"

// Provenance identifies which backend produced a detection or dosage answer.
type Provenance string

const (
	ProvenanceMock      Provenance = "mock"
	ProvenanceLLM       Provenance = "llm_ocr"
	ProvenanceMLService Provenance = "ml_service"
	ProvenanceFallback  Provenance = "fallback"
)

// Disclaimer is attached to every answer produced by a probabilistic backend.
const Disclaimer = "This identification is AI-assisted and may be inaccurate. " +
	"Always verify with a pharmacist or doctor before taking any medication."

// MedicineInfo is the structured identification schema requested from the language model.
type MedicineInfo struct {
	Name         string   `json:"name"`
	GenericName  string   `json:"genericName,omitempty"`
	Category     string   `json:"category,omitempty"`
	Usage        string   `json:"usage,omitempty"`
	Uses         []string `json:"uses,omitempty"`
	SideEffects  []string `json:"sideEffects,omitempty"`
	Precautions  []string `json:"precautions,omitempty"`
	Interactions []string `json:"interactions,omitempty"`
	DosageInfo   string   `json:"dosageInfo,omitempty"`
	Confidence   float64  `json:"confidence"`
}

// DetectionResult is a best-effort identification of a medicine from one image.
type DetectionResult struct {
	Success       bool            `json:"success"`
	Provenance    Provenance      `json:"provenance"`
	Confidence    float64         `json:"confidence"`
	Detected      *MedicineInfo   `json:"detected,omitempty"`
	CatalogMatch  *Medicine       `json:"catalog_match,omitempty"`
	Suggestions   []Medicine      `json:"suggestions,omitempty"`
	ExtractedText string          `json:"extracted_text,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
	Degraded      bool            `json:"degraded"`
	Note          string          `json:"note,omitempty"`
	Disclaimer    string          `json:"disclaimer,omitempty"`
}

// BatchItem is the outcome for one image of a batch, at the same index as the upload.
type BatchItem struct {
	Index    int              `json:"index"`
	Filename string           `json:"filename"`
	Success  bool             `json:"success"`
	Result   *DetectionResult `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// BatchResult wraps the per-image outcomes of a batch detection.
type BatchResult struct {
	Success    bool        `json:"success"`
	Provenance Provenance  `json:"provenance"`
	Results    []BatchItem `json:"results"`
}

// DosageRequest asks for a patient-specific dosage recommendation.
type DosageRequest struct {
	MedicineID    string  `json:"medicine_id,omitempty"`
	MedicineName  string  `json:"medicine_name,omitempty"`
	PatientAge    int     `json:"patient_age"`
	PatientWeight float64 `json:"patient_weight,omitempty"` // in kilograms
}

// DosageResult is a structured dosage recommendation.
type DosageResult struct {
	Success           bool            `json:"success"`
	Provenance        Provenance      `json:"provenance"`
	Medicine          string          `json:"medicine"`
	RecommendedDosage string          `json:"recommended_dosage"`
	Warnings          []string        `json:"warnings"`
	Precautions       []string        `json:"precautions,omitempty"`
	PatientAge        int             `json:"patient_age"`
	PatientWeight     float64         `json:"patient_weight,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"`
	Degraded          bool            `json:"degraded"`
	Note              string          `json:"note,omitempty"`
	Disclaimer        string          `json:"disclaimer,omitempty"`
}
