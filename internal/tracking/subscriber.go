// Package tracking applies ambulance position reports received over MQTT.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/models"
)

// ErrInvalidUpdate is returned for a position report that cannot be applied.
var ErrInvalidUpdate = errors.New("invalid location update")

const (
	qosAtLeastOnce = 1
	applyTimeout   = 5 * time.Second
	connectTimeout = 10 * time.Second
)

// LocationStore persists ambulance positions.
type LocationStore interface {
	UpdateAmbulanceLocation(ctx context.Context, id string, loc models.Location) (*models.Ambulance, error)
}

// Config holds the broker settings.
type Config struct {
	Broker   string
	ClientID string
	Topic    string // may contain a single-level wildcard for the ambulance id
}

// Subscriber listens for position reports and writes them to the store.
type Subscriber struct {
	cfg     Config
	client  mqtt.Client
	store   LocationStore
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewSubscriber(cfg Config, store LocationStore, m *metrics.Metrics, log logrus.FieldLogger) *Subscriber {
	return &Subscriber{
		cfg:     cfg,
		store:   store,
		metrics: m,
		log:     log.WithField("component", "tracking"),
	}
}

// Start connects to the broker. The subscription is renewed on every reconnect.
func (s *Subscriber) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(s.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.log.WithError(err).Warn("MQTT connection lost")
		})

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to MQTT broker %s: timed out", s.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to MQTT broker %s: %w", s.cfg.Broker, err)
	}
	return nil
}

// Stop disconnects, letting in-flight handlers finish for up to 250ms.
func (s *Subscriber) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

func (s *Subscriber) subscribe(client mqtt.Client) {
	token := client.Subscribe(s.cfg.Topic, qosAtLeastOnce, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		s.log.WithError(token.Error()).WithField("topic", s.cfg.Topic).Error("MQTT subscribe failed")
		return
	}
	s.log.WithField("topic", s.cfg.Topic).Info("Subscribed to ambulance locations")
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	fields := logrus.Fields{"topic": msg.Topic()}
	upd, err := decodeUpdate(msg.Topic(), msg.Payload())
	if err != nil {
		s.metrics.LocationUpdates.WithLabelValues("mqtt", "rejected").Inc()
		s.log.WithError(err).WithFields(fields).Warn("Dropping location update")
		return
	}
	fields["ambulance_id"] = upd.AmbulanceID

	if _, err := s.store.UpdateAmbulanceLocation(ctx, upd.AmbulanceID, upd.Location); err != nil {
		s.metrics.LocationUpdates.WithLabelValues("mqtt", "failed").Inc()
		s.log.WithError(err).WithFields(fields).Error("Failed to store location update")
		return
	}
	s.metrics.LocationUpdates.WithLabelValues("mqtt", "applied").Inc()
	s.log.WithFields(fields).Debug("Applied location update")
}

// decodeUpdate parses a payload published on lifelink/ambulances/{id}/location.
// The id in the topic wins; a different id in the body is rejected.
func decodeUpdate(topic string, payload []byte) (models.LocationUpdate, error) {
	var upd models.LocationUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		return upd, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}

	id := ambulanceIDFromTopic(topic)
	switch {
	case id == "" && upd.AmbulanceID == "":
		return upd, fmt.Errorf("%w: no ambulance id", ErrInvalidUpdate)
	case id != "" && upd.AmbulanceID != "" && id != upd.AmbulanceID:
		return upd, fmt.Errorf("%w: topic id %q does not match payload id %q", ErrInvalidUpdate, id, upd.AmbulanceID)
	case id != "":
		upd.AmbulanceID = id
	}

	if !upd.Location.Valid() {
		return upd, fmt.Errorf("%w: coordinates out of range (%g, %g)", ErrInvalidUpdate, upd.Location.Lat, upd.Location.Lng)
	}
	return upd, nil
}

func ambulanceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[len(parts)-1] != "location" {
		return ""
	}
	return parts[len(parts)-2]
}

// Topic returns the publish topic for one ambulance.
func Topic(ambulanceID string) string {
	return "lifelink/ambulances/" + ambulanceID + "/location"
}
