package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/lifelink/internal/auth"
	"github.com/ukydev/lifelink/internal/config"
	"github.com/ukydev/lifelink/internal/db"
	"github.com/ukydev/lifelink/internal/detection"
	"github.com/ukydev/lifelink/internal/geocode"
	"github.com/ukydev/lifelink/internal/handlers"
	"github.com/ukydev/lifelink/internal/metrics"
	"github.com/ukydev/lifelink/internal/middleware"
	"github.com/ukydev/lifelink/internal/ocr"
	"github.com/ukydev/lifelink/internal/server"
	"github.com/ukydev/lifelink/internal/storage"
	"github.com/ukydev/lifelink/internal/tracking"
)

// geocodeRateLimit is the Google Maps request budget per second.
const geocodeRateLimit = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := setupLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("LifeLink API stopped with an error")
	}
	logger.Info("LifeLink API stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	database := client.Database(cfg.Mongo.Database)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		return err
	}
	logger.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")

	ambulances := &db.MongoAmbulanceCollection{Collection: database.Collection(db.AmbulancesCollection)}
	doctors := &db.MongoDoctorCollection{Collection: database.Collection(db.DoctorsCollection)}
	hospitals := &db.MongoHospitalCollection{Collection: database.Collection(db.HospitalsCollection)}
	medicines := &db.MongoMedicineCollection{Collection: database.Collection(db.MedicinesCollection)}
	users := &db.MongoUserCollection{Collection: database.Collection(db.UsersCollection)}
	appointments := &db.MongoAppointmentCollection{Collection: database.Collection(db.AppointmentsCollection)}
	reports := &db.MongoReportCollection{Collection: database.Collection(db.ReportsCollection)}

	authService, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.OTPExpiry)
	if err != nil {
		return err
	}

	strategy, closeStrategy, err := newDetectionStrategy(cfg.Detection, medicines, logger)
	if err != nil {
		return fmt.Errorf("create detection strategy: %w", err)
	}
	defer closeStrategy()
	gateway := detection.NewGateway(strategy, medicines, m, logger)
	logger.WithField("strategy", gateway.Strategy()).Info("Medicine detection ready")

	var geocoder handlers.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		g, err := geocode.NewGoogleFromKey(cfg.GoogleMapsAPIKey, geocodeRateLimit, logger)
		if err != nil {
			return err
		}
		geocoder = g
	}

	var files handlers.FileStore
	if cfg.Storage.Endpoint != "" {
		store, err := storage.NewMinIO(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		})
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
		files = store
		logger.WithField("bucket", cfg.Storage.Bucket).Info("Report storage ready")
	} else {
		logger.Warn("MINIO_ENDPOINT not set, report file uploads are disabled")
	}

	if cfg.MQTT.Broker != "" {
		sub := tracking.NewSubscriber(tracking.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.LocationTopic,
		}, ambulances, m, logger)
		if err := sub.Start(); err != nil {
			return err
		}
		defer sub.Stop()
	}

	router := server.NewRouter(server.Deps{
		Guard:        middleware.NewAuthMiddleware(authService),
		RateLimiter:  middleware.NewRateLimitMiddleware(cfg.TrustProxy),
		DetectLimit:  cfg.RateLimitDetect,
		Gatherer:     reg,
		Metrics:      m,
		Log:          logger,
		Ambulances:   handlers.NewAmbulanceHandler(ambulances, m, logger),
		Doctors:      handlers.NewDoctorHandler(doctors, m, logger),
		Hospitals:    handlers.NewHospitalHandler(hospitals, geocoder, m, logger),
		Medicines:    handlers.NewMedicineHandler(medicines, gateway, logger),
		Auth:         handlers.NewAuthHandler(authService, users, cfg.IsLocal(), logger),
		Appointments: handlers.NewAppointmentHandler(appointments, doctors, logger),
		Reports:      handlers.NewReportHandler(reports, files, logger),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second, // batch detection can take a minute
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// setupLogger writes text locally and JSON everywhere else.
func setupLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if cfg.IsLocal() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// newDetectionStrategy builds the configured backend. The returned func
// releases anything the backend holds.
func newDetectionStrategy(cfg config.DetectionConfig, catalog detection.Catalog, logger logrus.FieldLogger) (detection.Strategy, func(), error) {
	noop := func() {}
	sc := detection.Config{
		Type:         detection.StrategyType(cfg.Strategy),
		Catalog:      catalog,
		Logger:       logger,
		Timeout:      cfg.Timeout,
		Model:        cfg.LLMModel,
		BaseURL:      cfg.MLServiceURL,
		HTTPClient:   &http.Client{},
		BatchTimeout: cfg.BatchTimeout,
	}

	if sc.Type != detection.StrategyLLM {
		strategy, err := detection.NewStrategy(sc)
		return strategy, noop, err
	}

	if cfg.LLMAPIKey == "" {
		return nil, noop, errors.New("LLM_API_KEY is required for the llm strategy")
	}
	llmCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		llmCfg.BaseURL = cfg.LLMBaseURL
	}
	sc.Completer = openai.NewClientWithConfig(llmCfg)

	tess, err := ocr.NewTesseract(cfg.OCRLanguage, cfg.OCRWorkers)
	if err != nil {
		return nil, noop, err
	}
	sc.Recognizer = tess

	strategy, err := detection.NewStrategy(sc)
	if err != nil {
		_ = tess.Close()
		return nil, noop, err
	}
	return strategy, func() { _ = tess.Close() }, nil
}
