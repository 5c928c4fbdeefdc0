package detection

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/models"
)

// MockCatalog is a mock implementation of Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) SampleMedicines(ctx context.Context, n int) ([]models.Medicine, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Medicine), args.Error(1)
}

func (m *MockCatalog) MatchMedicine(ctx context.Context, token string) (*models.Medicine, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Medicine), args.Error(1)
}

func (m *MockCatalog) FindMedicineByID(ctx context.Context, id string) (*models.Medicine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Medicine), args.Error(1)
}

// MockStrategyBackend is a mock implementation of Strategy
type MockStrategyBackend struct {
	mock.Mock
}

func (m *MockStrategyBackend) Name() models.Provenance {
	return models.Provenance(m.Called().String(0))
}

func (m *MockStrategyBackend) Identify(ctx context.Context, img Image) (*models.DetectionResult, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DetectionResult), args.Error(1)
}

func (m *MockStrategyBackend) AnalyzeDosage(ctx context.Context, req models.DosageRequest) (*models.DosageResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DosageResult), args.Error(1)
}

func (m *MockStrategyBackend) Health(ctx context.Context) (*HealthStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HealthStatus), args.Error(1)
}

type fakeRecognizer struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeRecognizer) Recognize(context.Context, []byte) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type fakeCompleter struct {
	content  string
	err      error
	modelErr error
	calls    atomic.Int32
	last     openai.ChatCompletionRequest
}

func (f *fakeCompleter) GetModel(_ context.Context, modelID string) (openai.Model, error) {
	if f.modelErr != nil {
		return openai.Model{}, f.modelErr
	}
	return openai.Model{ID: modelID}, nil
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls.Add(1)
	f.last = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func testLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func testMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testImage(name string) Image {
	return Image{Filename: name, ContentType: "image/png", Data: pngHeader}
}

var paracetamol = models.Medicine{
	Name:     "Paracetamol 500mg",
	Category: "Analgesic",
	Dosage:   "1 tab / 6 hrs",
	Warnings: []string{"Do not exceed 4g per day", "Avoid with alcohol"},
}
