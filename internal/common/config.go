package common

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Auth     AuthConfig
	Ingest   IngestConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr         string
	GRPCAddr         string
	MaxUploadBytes   int64
	MaxConcurrentOCR int64
	RateEvery        time.Duration
	RateBurst        int
	ScanTimeout      time.Duration
	ShutdownTimeout  time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine              string // "tesseract" | "gosseract"
	Tesseract           string
	TesseractLang       string
	TessdataDir         string
	PSM                 int
	OEM                 int
	HeicConverter       string
	ArtifactCacheDir    string
	DebugDir            string
	ConfidenceThreshold float64
	VocabularyPath      string
	PhonePolicy         string // "strict" | "tolerant"
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// IngestConfig holds drop-folder ingestion configuration
type IngestConfig struct {
	WatchDir   string
	WatchEmail string
	Workers    int
	QueueSize  int
	Debounce   time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", "file:cardmate.db?_pragma=foreign_keys(1)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:         getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:         getEnv("GRPC_ADDR", ":8080"),
			MaxUploadBytes:   int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
			MaxConcurrentOCR: int64(getEnvAsInt("MAX_CONCURRENT_OCR", 4)),
			RateEvery:        getEnvAsDuration("RATE_LIMIT_EVERY", 200*time.Millisecond),
			RateBurst:        getEnvAsInt("RATE_LIMIT_BURST", 20),
			ScanTimeout:      getEnvAsDuration("SCAN_TIMEOUT", 2*time.Minute),
			ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OCR: OCRConfig{
			Engine:              getEnv("OCR_ENGINE", "tesseract"),
			Tesseract:           getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:       getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			PSM:                 getEnvAsInt("TESSERACT_PSM", 0),
			OEM:                 getEnvAsInt("TESSERACT_OEM", 0),
			HeicConverter:       getEnv("HEIC_CONVERTER", "magick"),
			ArtifactCacheDir:    getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			DebugDir:            getEnv("OCR_DEBUG_DIR", ""),
			ConfidenceThreshold: getEnvAsFloat64("OCR_CONFIDENCE_THRESHOLD", 0.7),
			VocabularyPath:      getEnv("VOCABULARY_PATH", ""),
			PhonePolicy:         getEnv("PHONE_POLICY", "strict"),
		},
		Auth: AuthConfig{
			Secret:   getEnv("AUTH_SECRET", ""),
			TokenTTL: getEnvAsDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		Ingest: IngestConfig{
			WatchDir:   getEnv("WATCH_DIR", ""),
			WatchEmail: getEnv("WATCH_USER_EMAIL", ""),
			Workers:    getEnvAsInt("INGEST_WORKERS", 2),
			QueueSize:  getEnvAsInt("INGEST_QUEUE_SIZE", 64),
			Debounce:   getEnvAsDuration("INGEST_DEBOUNCE", 750*time.Millisecond),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration for the server binary.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "one of HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	if err := c.OCR.Validate(); err != nil {
		return err
	}
	if len(c.Auth.Secret) < 32 {
		return NewAppError("CONFIG_ERROR", "AUTH_SECRET must be at least 32 characters", ErrInvalidInput)
	}
	if c.Ingest.WatchDir != "" && c.Ingest.WatchEmail == "" {
		return NewAppError("CONFIG_ERROR", "WATCH_USER_EMAIL is required when WATCH_DIR is set", ErrInvalidInput)
	}
	return nil
}

// Validate checks the OCR settings shared by the server and the CLI.
func (c OCRConfig) Validate() error {
	switch c.Engine {
	case "tesseract", "gosseract":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("OCR_ENGINE must be tesseract or gosseract, got %q", c.Engine), ErrInvalidInput)
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "OCR_CONFIDENCE_THRESHOLD must be in (0, 1]", ErrInvalidInput)
	}
	switch c.PhonePolicy {
	case "strict", "tolerant":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("PHONE_POLICY must be strict or tolerant, got %q", c.PhonePolicy), ErrInvalidInput)
	}
	return nil
}
