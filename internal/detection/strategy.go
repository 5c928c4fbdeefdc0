// Package detection identifies medicines from photos through one of several
// interchangeable analysis backends, and recommends dosages.
package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/models"
)

// Strategy is one analysis backend. Exactly one is selected at process start.
type Strategy interface {
	Name() models.Provenance
	Identify(ctx context.Context, img Image) (*models.DetectionResult, error)
	AnalyzeDosage(ctx context.Context, req models.DosageRequest) (*models.DosageResult, error)
	Health(ctx context.Context) (*HealthStatus, error)
}

// BatchStrategy is implemented by backends that accept several images in one call.
type BatchStrategy interface {
	IdentifyBatch(ctx context.Context, images []Image) ([]models.BatchItem, error)
}

// Catalog is the read-only view of the local medicine catalog.
type Catalog interface {
	SampleMedicines(ctx context.Context, n int) ([]models.Medicine, error)
	MatchMedicine(ctx context.Context, token string) (*models.Medicine, error)
	FindMedicineByID(ctx context.Context, id string) (*models.Medicine, error)
}

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HealthStatus reports the state of the configured backend.
type HealthStatus struct {
	Strategy models.Provenance `json:"strategy"`
	Status   string            `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Upstream json.RawMessage   `json:"upstream,omitempty"`
}

// StrategyType names a backend in configuration.
type StrategyType string

const (
	StrategyMock StrategyType = "mock"
	StrategyLLM  StrategyType = "llm"
	StrategyML   StrategyType = "ml"
)

// Config holds configuration for creating a detection strategy.
type Config struct {
	Type    StrategyType
	Catalog Catalog
	Logger  logrus.FieldLogger
	Timeout time.Duration // bound on every single-image and dosage call

	// llm
	Recognizer TextRecognizer
	Completer  Completer
	Model      string

	// ml
	BaseURL      string
	HTTPClient   HTTPClient
	BatchTimeout time.Duration
}

// NewStrategy creates the backend named by the configuration.
func NewStrategy(cfg Config) (Strategy, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("medicine catalog is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	switch cfg.Type {
	case StrategyMock, "":
		return NewMockStrategy(cfg.Catalog), nil
	case StrategyLLM:
		if cfg.Recognizer == nil || cfg.Completer == nil {
			return nil, errors.New("OCR recognizer and language model client are required for llm strategy")
		}
		if cfg.Model == "" {
			return nil, errors.New("model is required for llm strategy")
		}
		return NewLLMStrategy(cfg.Recognizer, cfg.Completer, cfg.Model, cfg.Catalog, cfg.Timeout, cfg.Logger), nil
	case StrategyML:
		if cfg.BaseURL == "" {
			return nil, errors.New("base URL is required for ml strategy")
		}
		if cfg.HTTPClient == nil {
			cfg.HTTPClient = &http.Client{}
		}
		if cfg.BatchTimeout <= 0 {
			cfg.BatchTimeout = 60 * time.Second
		}
		return NewMLStrategy(cfg.BaseURL, cfg.HTTPClient, cfg.Catalog, cfg.Timeout, cfg.BatchTimeout, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported detection strategy: %s", cfg.Type)
	}
}

// isUnavailable reports whether err means the backend could not be reached
// at all, as opposed to answering badly.
func isUnavailable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify wraps a transport error with the matching upstream sentinel.
func classify(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}

// firstToken returns the leading word of a medicine name, e.g. "Paracetamol" of "Paracetamol 500mg".
func firstToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,;:()")
}

// matchCatalog looks up the first token of name in the catalog. A miss is not an error.
func matchCatalog(ctx context.Context, catalog Catalog, name string, log logrus.FieldLogger) *models.Medicine {
	token := firstToken(name)
	if token == "" {
		return nil
	}
	med, err := catalog.MatchMedicine(ctx, token)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).WithField("token", token).Warn("Catalog lookup failed")
		}
		return nil
	}
	return med
}

// resolveMedicine finds the catalog entry a dosage request refers to, by id
// first and then by name. It returns nil when the catalog has no such entry.
func resolveMedicine(ctx context.Context, catalog Catalog, req models.DosageRequest) (*models.Medicine, error) {
	if req.MedicineID != "" {
		med, err := catalog.FindMedicineByID(ctx, req.MedicineID)
		switch {
		case err == nil:
			return med, nil
		case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrInvalidID):
		default:
			return nil, err
		}
	}
	name := req.MedicineName
	if name == "" {
		name = req.MedicineID
	}
	token := firstToken(name)
	if token == "" {
		return nil, nil
	}
	med, err := catalog.MatchMedicine(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return med, err
}

// displayName is the best human-readable name for the medicine of a request.
func displayName(req models.DosageRequest, med *models.Medicine) string {
	switch {
	case med != nil:
		return med.Name
	case req.MedicineName != "":
		return req.MedicineName
	default:
		return req.MedicineID
	}
}

const (
	pediatricAge    = 12
	pediatricDosage = "Consult pediatrician for child dosage"
)
