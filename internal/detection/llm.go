package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/models"
)

// MinLabelTextLength is the shortest OCR output worth sending to the language model.
const MinLabelTextLength = 10

// TextRecognizer extracts printed text from an image.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Completer is the subset of an OpenAI-compatible client the strategy needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	GetModel(ctx context.Context, modelID string) (openai.Model, error)
}

const identifyPrompt = `You are a pharmacist assistant. Identify the medicine described by the label text below.
Use ONLY the label text; do not guess beyond it. Respond with a single JSON object and nothing else:
{"name": string, "genericName": string, "category": string, "usage": string, "uses": [string],
 "sideEffects": [string], "precautions": [string], "interactions": [string], "dosageInfo": string,
 "confidence": number between 0 and 1}`

const dosagePrompt = `You are a pharmacist assistant. Recommend a dosage for the medicine and patient below.
Respond with a single JSON object and nothing else:
{"recommendedDosage": string, "warnings": [string], "precautions": [string]}`

// LLMStrategy reads the label with OCR and asks a language model to identify it.
type LLMStrategy struct {
	ocr     TextRecognizer
	llm     Completer
	model   string
	catalog Catalog
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewLLMStrategy(ocr TextRecognizer, llm Completer, model string, catalog Catalog, timeout time.Duration, log logrus.FieldLogger) *LLMStrategy {
	return &LLMStrategy{
		ocr:     ocr,
		llm:     llm,
		model:   model,
		catalog: catalog,
		timeout: timeout,
		log:     log.WithField("strategy", models.ProvenanceLLM),
	}
}

func (s *LLMStrategy) Name() models.Provenance { return models.ProvenanceLLM }

// Identify runs OCR then, only when enough text was read, one completion.
func (s *LLMStrategy) Identify(ctx context.Context, img Image) (*models.DetectionResult, error) {
	s.log.WithField("filename", img.Filename).Debug("Running OCR")
	text, err := s.ocr.Recognize(ctx, img.Data)
	if err != nil {
		s.log.WithError(err).WithField("filename", img.Filename).Warn("OCR failed")
		return unreadableResult(""), nil
	}
	text = strings.TrimSpace(text)
	s.log.WithFields(logrus.Fields{"filename": img.Filename, "text_length": len(text)}).Debug("OCR finished")

	if utf8.RuneCountInString(text) < MinLabelTextLength {
		return unreadableResult(text), nil
	}

	content, err := s.complete(ctx, identifyPrompt, "Label text:\n"+text, 800)
	if err != nil {
		return nil, err
	}

	var info models.MedicineInfo
	if err := decodeJSON(content, &info); err != nil || info.Name == "" {
		s.log.WithError(err).Warn("Unparsable identification from language model")
		return unparsableResult(text), nil
	}
	info.Confidence = clamp01(info.Confidence)

	return &models.DetectionResult{
		Success:       true,
		Confidence:    info.Confidence,
		Detected:      &info,
		CatalogMatch:  matchCatalog(ctx, s.catalog, info.Name, s.log),
		ExtractedText: text,
	}, nil
}

func (s *LLMStrategy) AnalyzeDosage(ctx context.Context, req models.DosageRequest) (*models.DosageResult, error) {
	med, err := resolveMedicine(ctx, s.catalog, req)
	if err != nil {
		return nil, fmt.Errorf("resolve medicine: %w", err)
	}
	name := displayName(req, med)

	var b strings.Builder
	fmt.Fprintf(&b, "Medicine: %s\nPatient age: %d years\n", name, req.PatientAge)
	if req.PatientWeight > 0 {
		fmt.Fprintf(&b, "Patient weight: %g kg\n", req.PatientWeight)
	}
	if med != nil && med.Dosage != "" {
		fmt.Fprintf(&b, "Standard adult dosage: %s\n", med.Dosage)
	}

	content, err := s.complete(ctx, dosagePrompt, b.String(), 500)
	if err != nil {
		return nil, err
	}

	result := &models.DosageResult{
		Success:       true,
		Medicine:      name,
		PatientAge:    req.PatientAge,
		PatientWeight: req.PatientWeight,
	}
	var parsed struct {
		RecommendedDosage string   `json:"recommendedDosage"`
		Warnings          []string `json:"warnings"`
		Precautions       []string `json:"precautions"`
	}
	if err := decodeJSON(content, &parsed); err != nil || parsed.RecommendedDosage == "" {
		s.log.WithError(err).Warn("Unparsable dosage from language model")
		result.RecommendedDosage = "Unable to determine dosage"
		result.Warnings = []string{"Consult a doctor or pharmacist before use"}
		result.Note = "Unable to parse dosage analysis"
		return result, nil
	}
	result.RecommendedDosage = parsed.RecommendedDosage
	result.Warnings = parsed.Warnings
	result.Precautions = parsed.Precautions
	return result, nil
}

// Health looks up the configured model, which proves both reachability and
// that the API key is accepted.
func (s *LLMStrategy) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.llm.GetModel(ctx, s.model); err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			err = fmt.Errorf("%w: language model returned %d: %s", ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
		} else {
			err = classify("language model", err)
		}
		return &HealthStatus{Strategy: s.Name(), Status: "unavailable", Detail: err.Error()}, err
	}
	return &HealthStatus{Strategy: s.Name(), Status: "healthy", Detail: "model " + s.model}, nil
}

func (s *LLMStrategy) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: language model returned %d: %s", ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", classify("language model", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// decodeJSON parses model output that should be a JSON object, tolerating
// markdown fences and surrounding prose.
func decodeJSON(content string, v any) error {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return errors.New("no JSON object in model output")
	}
	return json.Unmarshal([]byte(content[start:end+1]), v)
}

func unreadableResult(text string) *models.DetectionResult {
	return &models.DetectionResult{
		Success:       false,
		Confidence:    0,
		ExtractedText: text,
		Note:          "Could not read label. Retake the photo with the label in focus and good lighting.",
	}
}

func unparsableResult(text string) *models.DetectionResult {
	return &models.DetectionResult{
		Success:    false,
		Confidence: 0,
		Detected: &models.MedicineInfo{
			Name:        "Unknown",
			Usage:       "Unable to parse medicine information",
			Precautions: []string{"Consult a pharmacist to identify this medicine"},
			Confidence:  0,
		},
		ExtractedText: text,
		Note:          "Unable to parse medicine information",
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
