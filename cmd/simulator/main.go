package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/models"
	"github.com/ukydev/lifelink/internal/proximity"
	"github.com/ukydev/lifelink/internal/tracking"
)

// Cities the fleet is spread around.
var cities = []models.Location{
	{Lat: 40.7306, Lng: -73.9352}, // New York
	{Lat: 40.6782, Lng: -73.9442}, // Brooklyn
	{Lat: 51.5074, Lng: -0.1278},  // London
	{Lat: 40.4168, Lng: -3.7038},  // Madrid
	{Lat: 48.8566, Lng: 2.3522},   // Paris
	{Lat: 19.0760, Lng: 72.8777},  // Mumbai
	{Lat: 28.6139, Lng: 77.2090},  // Delhi
	{Lat: 12.9716, Lng: 77.5946},  // Bengaluru
	{Lat: 1.3521, Lng: 103.8198},  // Singapore
	{Lat: 25.2048, Lng: 55.2708},  // Dubai
}

var (
	authToken   string
	osrmBaseURL = "https://router.project-osrm.org"
	httpClient  = &http.Client{Timeout: 10 * time.Second}
)

func jitterLocation(base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLng := (rand.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lng: base.Lng + dLng}
}

func randomLocation() models.Location {
	base := cities[rand.Intn(len(cities))]
	return jitterLocation(base, 500) // start close to roads
}

func authorizedRequest(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	return httpClient.Do(req)
}

func registerAmbulance(ctx context.Context, apiURL, plate string, start models.Location) (string, error) {
	data, err := json.Marshal(map[string]any{
		"vehicle_plate": plate,
		"status":        models.AmbulanceAvailable,
		"location":      start,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ambulance: %w", err)
	}

	resp, err := authorizedRequest(ctx, http.MethodPost, apiURL+"/ambulances", data)
	if err != nil {
		return "", fmt.Errorf("failed to register ambulance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("ambulance registration failed with status: %d", resp.StatusCode)
	}

	var created models.Ambulance
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if created.ID.IsZero() {
		return "", fmt.Errorf("invalid ambulance ID in response")
	}

	log.WithFields(log.Fields{
		"ambulance_id": created.ID.Hex(),
		"plate":        plate,
	}).Info("Registered ambulance")

	return created.ID.Hex(), nil
}

// --- Routing & movement ---

type AmbulanceRoute struct {
	Points    []models.Location
	SegIndex  int
	SegOffset float64 // km along current segment
}

type AmbulanceState struct {
	AmbulanceID string
	Position    models.Location
	SpeedKmh    float64
	Route       *AmbulanceRoute
}

func haversineKm(a, b models.Location) float64 {
	return proximity.HaversineKm(a.Point(), b.Point())
}

func lerp(a, b models.Location, t float64) models.Location {
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lng: a.Lng + (b.Lng-a.Lng)*t}
}

func fetchOSRMRoute(ctx context.Context, start, end models.Location) ([]models.Location, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		osrmBaseURL, start.Lng, start.Lat, end.Lng, end.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var obj struct {
		Routes []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	if len(obj.Routes) == 0 || len(obj.Routes[0].Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("no route")
	}
	coords := obj.Routes[0].Geometry.Coordinates
	pts := make([]models.Location, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, models.Location{Lat: c[1], Lng: c[0]})
	}
	return pts, nil
}

// planNewRoute drives to a random point a few kilometres away, as a
// callout inside the unit's own city.
func planNewRoute(ctx context.Context, s *AmbulanceState) {
	start := s.Position
	end := jitterLocation(start, 5000)
	pts, err := fetchOSRMRoute(ctx, start, end)
	if err != nil {
		// fallback straight line
		s.Route = &AmbulanceRoute{Points: []models.Location{start, end}}
		return
	}
	s.Route = &AmbulanceRoute{Points: pts}
}

func stepAlongRoute(ctx context.Context, s *AmbulanceState, tickSec float64) {
	if s.Route == nil || len(s.Route.Points) < 2 {
		planNewRoute(ctx, s)
	}
	remKm := s.SpeedKmh * (tickSec / 3600.0)
	for remKm > 0 && s.Route.SegIndex < len(s.Route.Points)-1 {
		a := s.Route.Points[s.Route.SegIndex]
		b := s.Route.Points[s.Route.SegIndex+1]
		segLen := haversineKm(a, b)
		leftOnSeg := segLen - s.Route.SegOffset
		if remKm >= leftOnSeg {
			// advance to next segment
			s.Position = b
			s.Route.SegIndex++
			s.Route.SegOffset = 0
			remKm -= leftOnSeg
			continue
		}
		t := (s.Route.SegOffset + remKm) / segLen
		t = math.Max(0, math.Min(1, t))
		s.Position = lerp(a, b, t)
		s.Route.SegOffset += remKm
		remKm = 0
	}
	if s.Route.SegIndex >= len(s.Route.Points)-1 {
		planNewRoute(ctx, s)
	}
}

func updateFromState(s *AmbulanceState) models.LocationUpdate {
	return models.LocationUpdate{
		AmbulanceID: s.AmbulanceID,
		Location:    s.Position,
		Timestamp:   time.Now().UTC(),
	}
}

// Publisher delivers position reports to the API.
type Publisher interface {
	Publish(ctx context.Context, update models.LocationUpdate) error
}

// mqttPublisher sends reports to the broker the API subscribes to.
type mqttPublisher struct {
	client mqtt.Client
}

func newMQTTPublisher(broker, clientID string) (*mqttPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, err)
	}
	return &mqttPublisher{client: client}, nil
}

func (p *mqttPublisher) Publish(_ context.Context, update models.LocationUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	token := p.client.Publish(tracking.Topic(update.AmbulanceID), 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timed out")
	}
	return token.Error()
}

func (p *mqttPublisher) Close() {
	p.client.Disconnect(250)
}

// httpPublisher patches the location over the REST API when no broker is set.
type httpPublisher struct {
	apiURL string
}

func (p *httpPublisher) Publish(ctx context.Context, update models.LocationUpdate) error {
	data, err := json.Marshal(update.Location)
	if err != nil {
		return err
	}
	resp, err := authorizedRequest(ctx, http.MethodPatch, p.apiURL+"/ambulances/"+update.AmbulanceID+"/location", data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("location update failed with status: %d", resp.StatusCode)
	}
	return nil
}

func sendUpdate(ctx context.Context, pub Publisher, update models.LocationUpdate) {
	if err := pub.Publish(ctx, update); err != nil {
		log.WithError(err).WithField("ambulance_id", update.AmbulanceID).Error("Failed to send location")
		return
	}
	log.WithFields(log.Fields{
		"ambulance_id": update.AmbulanceID,
		"lat":          update.Location.Lat,
		"lng":          update.Location.Lng,
	}).Debug("Sent location")
}

func simulateAmbulance(ctx context.Context, pub Publisher, s *AmbulanceState, interval time.Duration) {
	if s.Route == nil {
		planNewRoute(ctx, s)
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		// small speed noise
		s.SpeedKmh += (rand.Float64()*2 - 1) * 3
		s.SpeedKmh = math.Max(20, math.Min(110, s.SpeedKmh))

		stepAlongRoute(ctx, s, interval.Seconds())
		sendUpdate(ctx, pub, updateFromState(s))
	}
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Registration and HTTP location updates need a hospital or superadmin token.
	authToken = os.Getenv("SIM_AUTH_TOKEN")

	fleetSize := envInt("AMBULANCE_COUNT", 5)

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:5000/api"
	}

	interval := 2 * time.Second
	if n := envInt("SIM_TICK_SECONDS", 2); n >= 1 {
		interval = time.Duration(n) * time.Second
	}

	var pub Publisher = &httpPublisher{apiURL: apiURL}
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		mp, err := newMQTTPublisher(broker, fmt.Sprintf("lifelink-simulator-%d", os.Getpid()))
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MQTT broker")
		}
		defer mp.Close()
		pub = mp
	}

	log.WithFields(log.Fields{
		"ambulances": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
		"mqtt":       os.Getenv("MQTT_BROKER") != "",
	}).Info("Starting ambulance simulation")

	states := make([]*AmbulanceState, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		start := randomLocation()
		plate := fmt.Sprintf("SIM-%04d", rand.Intn(10000))
		id, err := registerAmbulance(ctx, apiURL, plate, start)
		if err != nil {
			log.WithError(err).Error("Failed to register ambulance")
			continue
		}
		states = append(states, &AmbulanceState{
			AmbulanceID: id,
			Position:    start,
			SpeedKmh:    40 + rand.Float64()*40,
		})
	}

	log.WithField("registered", len(states)).Info("Ambulance registration completed")
	if len(states) == 0 {
		log.Error("No ambulances registered. Ensure SIM_AUTH_TOKEN belongs to a hospital user and the API is reachable. Exiting.")
		return
	}

	var wg sync.WaitGroup
	for _, s := range states {
		wg.Add(1)
		go func() {
			defer wg.Done()
			simulateAmbulance(ctx, pub, s, interval)
		}()
	}

	log.Info("Location simulation started")
	wg.Wait()
	log.Info("Location simulation stopped")
}
