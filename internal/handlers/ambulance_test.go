package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func nearFilter(base bson.M, lng, lat, meters float64) bson.M {
	base["location"] = bson.M{
		"$near": bson.M{
			"$geometry":    bson.M{"type": "Point", "coordinates": []float64{lng, lat}},
			"$maxDistance": meters,
		},
	}
	return base
}

func TestAmbulanceHandler_Nearby(t *testing.T) {
	t.Run("nearest first with distances", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		m := testMetrics()
		handler := NewAmbulanceHandler(store, m, testLogger())

		near := models.NewPoint(12.9716, 77.5946)
		far := models.NewPoint(13.0, 77.6)
		want := nearFilter(bson.M{"status": models.AmbulanceAvailable}, 77.5946, 12.9716, 10000)
		store.On("FindAmbulances", mock.Anything, want).Return([]models.Ambulance{
			{ID: primitive.NewObjectID(), VehiclePlate: "KA-01", Location: &near},
			{ID: primitive.NewObjectID(), VehiclePlate: "KA-02", Location: &far},
		}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/ambulances/nearby?lat=12.9716&lng=77.5946", nil)
		w := httptest.NewRecorder()
		handler.Nearby(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var got []models.Ambulance
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "KA-01", got[0].VehiclePlate)
		require.NotNil(t, got[0].DistanceKm)
		require.NotNil(t, got[1].DistanceKm)
		assert.InDelta(t, 0, *got[0].DistanceKm, 0.001)
		assert.Greater(t, *got[1].DistanceKm, *got[0].DistanceKm)
		assert.Equal(t, 1, testutil.CollectAndCount(m.NearbyQueryHits))
		store.AssertExpectations(t)
	})

	t.Run("custom radius in meters", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		handler := NewAmbulanceHandler(store, testMetrics(), testLogger())
		want := nearFilter(bson.M{"status": models.AmbulanceAvailable}, 2, 1, 2500)
		store.On("FindAmbulances", mock.Anything, want).Return([]models.Ambulance{}, nil).Once()

		w := httptest.NewRecorder()
		handler.Nearby(w, httptest.NewRequest(http.MethodGet, "/api/ambulances/nearby?lat=1&lng=2&radius=2.5", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
		store.AssertExpectations(t)
	})

	t.Run("no origin scans available units", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		handler := NewAmbulanceHandler(store, testMetrics(), testLogger())
		store.On("FindAmbulances", mock.Anything, bson.M{"status": models.AmbulanceAvailable}).Return([]models.Ambulance{{VehiclePlate: "X"}}, nil).Once()

		w := httptest.NewRecorder()
		handler.Nearby(w, httptest.NewRequest(http.MethodGet, "/api/ambulances/nearby", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "distance_km")
		store.AssertExpectations(t)
	})

	for _, query := range []string{"lat=abc&lng=77.5", "lat=12.9", "lat=95&lng=0", "lat=1&lng=1&radius=-3", "lat=1&lng=1&radius=ten"} {
		t.Run("rejects "+query, func(t *testing.T) {
			store := new(MockAmbulanceCollection)
			handler := NewAmbulanceHandler(store, testMetrics(), testLogger())

			w := httptest.NewRecorder()
			handler.Nearby(w, httptest.NewRequest(http.MethodGet, "/api/ambulances/nearby?"+query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
			store.AssertNotCalled(t, "FindAmbulances", mock.Anything, mock.Anything)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		handler := NewAmbulanceHandler(store, testMetrics(), testLogger())
		store.On("FindAmbulances", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

		w := httptest.NewRecorder()
		handler.Nearby(w, httptest.NewRequest(http.MethodGet, "/api/ambulances/nearby", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	})
}

func TestAmbulanceHandler_GetByID(t *testing.T) {
	store := new(MockAmbulanceCollection)
	handler := NewAmbulanceHandler(store, testMetrics(), testLogger())
	store.On("FindAmbulanceByID", mock.Anything, "missing").Return(nil, db.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/ambulances/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	handler.GetByID(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAmbulanceHandler_UpdateLocation(t *testing.T) {
	id := primitive.NewObjectID().Hex()

	t.Run("valid", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		m := testMetrics()
		handler := NewAmbulanceHandler(store, m, testLogger())
		store.On("UpdateAmbulanceLocation", mock.Anything, id, models.Location{Lat: 12.5, Lng: 77.25}).
			Return(&models.Ambulance{VehiclePlate: "KA-01"}, nil).Once()

		req := httptest.NewRequest(http.MethodPatch, "/api/ambulances/"+id+"/location", bytes.NewBufferString(`{"lat":12.5,"lng":77.25}`))
		req.SetPathValue("id", id)
		w := httptest.NewRecorder()
		handler.UpdateLocation(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LocationUpdates.WithLabelValues("http", "applied")))
		store.AssertExpectations(t)
	})

	for name, body := range map[string]string{
		"malformed lat":  `{"lat":"north","lng":77.25}`,
		"missing lng":    `{"lat":12.5}`,
		"out of range":   `{"lat":12.5,"lng":181}`,
		"not json":       `lat=1`,
		"empty document": `{}`,
	} {
		t.Run(name+" never reaches the store", func(t *testing.T) {
			store := new(MockAmbulanceCollection)
			m := testMetrics()
			handler := NewAmbulanceHandler(store, m, testLogger())

			req := httptest.NewRequest(http.MethodPatch, "/api/ambulances/"+id+"/location", bytes.NewBufferString(body))
			req.SetPathValue("id", id)
			w := httptest.NewRecorder()
			handler.UpdateLocation(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.LocationUpdates.WithLabelValues("http", "rejected")))
			store.AssertNotCalled(t, "UpdateAmbulanceLocation", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAmbulanceHandler_UpdateStatus(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("valid", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		handler := NewAmbulanceHandler(store, testMetrics(), testLogger())
		store.On("UpdateAmbulanceStatus", mock.Anything, id.Hex(), models.AmbulanceBusy).
			Return(&models.Ambulance{ID: id, Status: models.AmbulanceBusy}, nil).Once()

		req := httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{"status":"busy"}`))
		req.SetPathValue("id", id.Hex())
		w := httptest.NewRecorder()
		handler.UpdateStatus(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"busy"`)
	})

	t.Run("unknown status", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		handler := NewAmbulanceHandler(store, testMetrics(), testLogger())

		req := httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{"status":"parked"}`))
		req.SetPathValue("id", id.Hex())
		w := httptest.NewRecorder()
		handler.UpdateStatus(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		store.AssertNotCalled(t, "UpdateAmbulanceStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid id", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		handler := NewAmbulanceHandler(store, testMetrics(), testLogger())
		store.On("UpdateAmbulanceStatus", mock.Anything, "nope", models.AmbulanceAvailable).Return(nil, db.ErrInvalidID).Once()

		req := httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{"status":"available"}`))
		req.SetPathValue("id", "nope")
		w := httptest.NewRecorder()
		handler.UpdateStatus(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAmbulanceHandler_Register(t *testing.T) {
	t.Run("created with location", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		handler := NewAmbulanceHandler(store, testMetrics(), testLogger())
		store.On("InsertAmbulance", mock.Anything, mock.MatchedBy(func(a *models.Ambulance) bool {
			return a.VehiclePlate == "KA-01-AB-1234" && a.Location != nil && a.Location.Lat() == 12.9 && a.Location.Lng() == 77.6
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Ambulance).ID = primitive.NewObjectID()
		}).Return(nil).Once()

		body := `{"vehicle_plate":" KA-01-AB-1234 ","location":{"lat":12.9,"lng":77.6}}`
		w := httptest.NewRecorder()
		handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/ambulances", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
		store.AssertExpectations(t)
	})

	t.Run("duplicate plate", func(t *testing.T) {
		store := new(MockAmbulanceCollection)
		handler := NewAmbulanceHandler(store, testMetrics(), testLogger())
		store.On("InsertAmbulance", mock.Anything, mock.Anything).Return(db.ErrDuplicate).Once()

		w := httptest.NewRecorder()
		handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/ambulances", bytes.NewBufferString(`{"vehicle_plate":"KA-01"}`)))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	tests := map[string]string{
		"missing plate":    `{}`,
		"bad status":       `{"vehicle_plate":"KA-01","status":"flying"}`,
		"bad hospital id":  `{"vehicle_plate":"KA-01","hospital_id":"xyz"}`,
		"bad coordinates":  `{"vehicle_plate":"KA-01","location":{"lat":100,"lng":0}}`,
		"partial location": `{"vehicle_plate":"KA-01","location":{"lat":10}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			store := new(MockAmbulanceCollection)
			handler := NewAmbulanceHandler(store, testMetrics(), testLogger())

			w := httptest.NewRecorder()
			handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/ambulances", bytes.NewBufferString(body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			store.AssertNotCalled(t, "InsertAmbulance", mock.Anything, mock.Anything)
		})
	}
}
