package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	OpsPort            string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	StoragePath        string
	StorageBaseURL     string
	GeminiAPIKey       string
	GenerationModel    string
	ReasoningModel     string
	GeminiBaseURL      string
	MaxCorrectionRound int
	IdempotencyTTL     time.Duration
	GenerationTimeout  time.Duration
	AuditTimeout       time.Duration
	LogoFetchTimeout   time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	JobPollInterval    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		OpsPort:            getEnv("OPS_PORT", "8090"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:8090/static"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GenerationModel:    getEnv("GENERATION_MODEL", "gemini-2.5-flash-image"),
		ReasoningModel:     getEnv("REASONING_MODEL", "gemini-2.5-pro"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		MaxCorrectionRound: getEnvInt("MAX_CORRECTION_ROUNDS", 2),
		IdempotencyTTL:     time.Minute * time.Duration(getEnvInt("IDEMPOTENCY_TTL_MINUTES", 60)),
		GenerationTimeout:  time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 60)),
		AuditTimeout:       time.Second * time.Duration(getEnvInt("AUDIT_TIMEOUT_SECONDS", 45)),
		LogoFetchTimeout:   time.Second * time.Duration(getEnvInt("LOGO_FETCH_TIMEOUT_SECONDS", 15)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		JobPollInterval:    time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 2)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
