package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration settings for the LifeLink API.
type Config struct {
	Env      string // Env is the current environment: local, dev, prod.
	Port     int
	LogLevel string

	Mongo     MongoConfig
	Auth      AuthConfig
	Detection DetectionConfig
	MQTT      MQTTConfig
	Storage   StorageConfig

	GoogleMapsAPIKey string // optional; enables address geocoding on hospital registration
	RateLimitDetect  int    // detection requests per minute per client
	TrustProxy       bool   // read client addresses from X-Forwarded-For
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
	OTPExpiry time.Duration
}

// DetectionConfig selects and configures the medicine detection backend.
type DetectionConfig struct {
	Strategy     string // mock, llm or ml
	LLMAPIKey    string
	LLMBaseURL   string // OpenAI-compatible endpoint, e.g. Groq
	LLMModel     string
	OCRLanguage  string
	OCRWorkers   int
	MLServiceURL string
	Timeout      time.Duration
	BatchTimeout time.Duration
}

type MQTTConfig struct {
	Broker        string // empty disables the location subscriber
	ClientID      string
	LocationTopic string
}

type StorageConfig struct {
	Endpoint  string // empty disables report file uploads
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// IsLocal reports whether the service runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// Load reads the given .env files (or ./.env) and the environment.
// A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	port, err := strconv.Atoi(setDefaultEnv("PORT", "5000"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PORT: %w", err)
	}
	jwtExpiry, err := time.ParseDuration(setDefaultEnv("JWT_EXPIRY", "720h"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT_EXPIRY: %w", err)
	}
	otpExpiry, err := time.ParseDuration(setDefaultEnv("OTP_EXPIRY", "5m"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OTP_EXPIRY: %w", err)
	}
	timeout, err := time.ParseDuration(setDefaultEnv("OUTBOUND_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OUTBOUND_TIMEOUT: %w", err)
	}
	batchTimeout, err := time.ParseDuration(setDefaultEnv("OUTBOUND_BATCH_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OUTBOUND_BATCH_TIMEOUT: %w", err)
	}
	ocrWorkers, err := strconv.Atoi(setDefaultEnv("OCR_WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OCR_WORKERS: %w", err)
	}
	rateLimit, err := strconv.Atoi(setDefaultEnv("RATE_LIMIT_DETECT", "30"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RATE_LIMIT_DETECT: %w", err)
	}
	useSSL, err := strconv.ParseBool(setDefaultEnv("MINIO_USE_SSL", "false"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MINIO_USE_SSL: %w", err)
	}
	trustProxy, err := strconv.ParseBool(setDefaultEnv("TRUST_PROXY", "false"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TRUST_PROXY: %w", err)
	}

	return &Config{
		Env:      setDefaultEnv("ENV", "production"),
		Port:     port,
		LogLevel: setDefaultEnv("LOG_LEVEL", "info"),
		Mongo: MongoConfig{
			URI:      setDefaultEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: setDefaultEnv("MONGO_DB", "lifelink"),
		},
		Auth: AuthConfig{
			JWTSecret: setDefaultEnv("JWT_SECRET", "default-secret-key-change-in-production"),
			JWTExpiry: jwtExpiry,
			OTPExpiry: otpExpiry,
		},
		Detection: DetectionConfig{
			Strategy:     setDefaultEnv("DETECTION_STRATEGY", "mock"),
			LLMAPIKey:    os.Getenv("LLM_API_KEY"),
			LLMBaseURL:   setDefaultEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			LLMModel:     setDefaultEnv("LLM_MODEL", "llama-3.1-8b-instant"),
			OCRLanguage:  setDefaultEnv("OCR_LANGUAGE", "eng"),
			OCRWorkers:   ocrWorkers,
			MLServiceURL: setDefaultEnv("ML_SERVICE_URL", "http://localhost:8000"),
			Timeout:      timeout,
			BatchTimeout: batchTimeout,
		},
		MQTT: MQTTConfig{
			Broker:        os.Getenv("MQTT_BROKER"),
			ClientID:      setDefaultEnv("MQTT_CLIENT_ID", "lifelink-api"),
			LocationTopic: setDefaultEnv("MQTT_LOCATION_TOPIC", "lifelink/ambulances/+/location"),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    useSSL,
			Bucket:    setDefaultEnv("MINIO_BUCKET", "medical-reports"),
		},
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		RateLimitDetect:  rateLimit,
		TrustProxy:       trustProxy,
	}, nil
}

// MustLoad is Load for process startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaultEnv(key, override string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = override
	}

	return value
}
