package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// Extraction collaborator
	ExtractorProvider     string // "gemini" or "heuristic"
	GeminiAPIKey          string
	GeminiModel           string
	GeminiEndpoint        string
	ExtractionTimeout     time.Duration
	ExtractionMaxAttempts int

	// Anomaly model
	AnomalyModelPath string

	// Entity normalization
	FuzzyMatchCutoff float64

	// Request limits
	MaxRequestBytes int64
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	extractionTimeout := getEnvAsDuration("EXTRACTION_TIMEOUT", 10*time.Second)

	maxAttempts := getEnvAsInt("EXTRACTION_MAX_ATTEMPTS", 2)
	if maxAttempts < 1 {
		log.Printf("WARNING: EXTRACTION_MAX_ATTEMPTS must be >= 1, got %d. Using 1.", maxAttempts)
		maxAttempts = 1
	}

	fuzzyCutoffStr := getEnv("FUZZY_MATCH_CUTOFF", "0.5")
	fuzzyCutoff, err := strconv.ParseFloat(fuzzyCutoffStr, 64)
	if err != nil || fuzzyCutoff <= 0 || fuzzyCutoff > 1 {
		log.Printf("WARNING: Invalid FUZZY_MATCH_CUTOFF '%s'. Using default 0.5. Error (if any): %v", fuzzyCutoffStr, err)
		fuzzyCutoff = 0.5
	}

	maxRequestBytesStr := getEnv("MAX_REQUEST_BYTES", "65536")
	maxRequestBytes, err := strconv.ParseInt(maxRequestBytesStr, 10, 64)
	if err != nil || maxRequestBytes <= 0 {
		log.Printf("WARNING: Invalid MAX_REQUEST_BYTES '%s'. Using default 64KB. Error (if any): %v", maxRequestBytesStr, err)
		maxRequestBytes = 64 * 1024
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./smartflow.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		ExtractorProvider:     getEnv("EXTRACTOR_PROVIDER", "gemini"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiEndpoint:        getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		ExtractionTimeout:     extractionTimeout,
		ExtractionMaxAttempts: maxAttempts,

		AnomalyModelPath: getEnv("ANOMALY_MODEL_PATH", "data/isolation_forest.json"),

		FuzzyMatchCutoff: fuzzyCutoff,

		MaxRequestBytes: maxRequestBytes,
	}

	if Cfg.ExtractorProvider == "gemini" && Cfg.GeminiAPIKey == "" {
		log.Println("WARNING: GEMINI_API_KEY is not set. Remote extraction will fail and every request will use the heuristic fallback.")
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, Extractor=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.ExtractorProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
