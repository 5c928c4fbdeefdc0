package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/lifelink/internal/metrics"
)

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := metrics.NewMetrics(prometheus.NewRegistry())

	var seenID string
	handler := RequestLogger(logger, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest("GET", "/api/ambulances/abc", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	_, err := uuid.Parse(seenID)
	require.NoError(t, err)
	assert.Equal(t, seenID, w.Header().Get(RequestIDHeader))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 404, entry.Data["status"])
	assert.Equal(t, "/api/ambulances/abc", entry.Data["path"])
	assert.Equal(t, seenID, entry.Data["request_id"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "404")))
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	logger, _ := test.NewNullLogger()
	handler := RequestLogger(logger, metrics.NewMetrics(prometheus.NewRegistry()))(http.NotFoundHandler())

	id := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))

	req.Header.Set(RequestIDHeader, "not-a-uuid\r\n")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid\r\n", w.Header().Get(RequestIDHeader))
}
