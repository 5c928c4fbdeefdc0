package tracking

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/models"
)

type mockLocationStore struct {
	mock.Mock
}

func (m *mockLocationStore) UpdateAmbulanceLocation(ctx context.Context, id string, loc models.Location) (*models.Ambulance, error) {
	args := m.Called(ctx, id, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ambulance), args.Error(1)
}

// fakeMessage satisfies mqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return qosAtLeastOnce }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func newTestSubscriber(store LocationStore) (*Subscriber, *metrics.Metrics) {
	logger, _ := test.NewNullLogger()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewSubscriber(Config{Topic: "lifelink/ambulances/+/location"}, store, m, logger), m
}

func TestDecodeUpdate(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		wantID  string
		wantErr bool
	}{
		{"id from topic", Topic("a1"), `{"location":{"lat":12.9,"lng":77.6}}`, "a1", false},
		{"matching ids", Topic("a1"), `{"ambulance_id":"a1","location":{"lat":12.9,"lng":77.6}}`, "a1", false},
		{"id from payload", "lifelink/ambulances", `{"ambulance_id":"a2","location":{"lat":1,"lng":2}}`, "a2", false},
		{"mismatched ids", Topic("a1"), `{"ambulance_id":"a2","location":{"lat":1,"lng":2}}`, "", true},
		{"no id", "lifelink/ambulances", `{"location":{"lat":1,"lng":2}}`, "", true},
		{"latitude out of range", Topic("a1"), `{"location":{"lat":91,"lng":2}}`, "", true},
		{"malformed json", Topic("a1"), `{"location":`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd, err := decodeUpdate(tt.topic, []byte(tt.payload))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidUpdate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, upd.AmbulanceID)
		})
	}
}

func TestHandleMessage(t *testing.T) {
	t.Run("valid update is stored", func(t *testing.T) {
		store := new(mockLocationStore)
		s, m := newTestSubscriber(store)
		store.On("UpdateAmbulanceLocation", mock.Anything, "a1", models.Location{Lat: 12.9, Lng: 77.6}).
			Return(&models.Ambulance{}, nil).Once()

		s.handleMessage(nil, fakeMessage{topic: Topic("a1"), payload: []byte(`{"location":{"lat":12.9,"lng":77.6}}`)})

		store.AssertExpectations(t)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LocationUpdates.WithLabelValues("mqtt", "applied")))
	})

	t.Run("invalid update never reaches the store", func(t *testing.T) {
		store := new(mockLocationStore)
		s, m := newTestSubscriber(store)

		s.handleMessage(nil, fakeMessage{topic: Topic("a1"), payload: []byte(`{"location":{"lat":"north","lng":77.6}}`)})

		store.AssertNotCalled(t, "UpdateAmbulanceLocation", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LocationUpdates.WithLabelValues("mqtt", "rejected")))
	})

	t.Run("store failure is counted", func(t *testing.T) {
		store := new(mockLocationStore)
		s, m := newTestSubscriber(store)
		store.On("UpdateAmbulanceLocation", mock.Anything, "a1", mock.Anything).Return(nil, assert.AnError).Once()

		s.handleMessage(nil, fakeMessage{topic: Topic("a1"), payload: []byte(`{"location":{"lat":1,"lng":1}}`)})

		assert.Equal(t, 1.0, testutil.ToFloat64(m.LocationUpdates.WithLabelValues("mqtt", "failed")))
	})
}
