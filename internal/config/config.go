package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/infrastructure/resilience"
)

var validate = validator.New()

type Config struct {
	APIPort   string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=json text"`

	MinConfidence       float64 `validate:"gt=0,lte=1"`
	ClassifierConfigDir string
	FiletypesPath       string
	MimeDetector        string `validate:"oneof=filetype mimetype"`

	ReviewStoragePath string `validate:"required"`
	ReviewKeyStrategy string `validate:"oneof=filename unique"`

	MaxUploadBytes int64  `validate:"gt=0"`
	OCRLanguage    string `validate:"required"`
	PDFMaxPages    int    `validate:"gt=0"`

	OllamaURL         string `validate:"omitempty,url"`
	OllamaEmbedModel  string
	FallbackModelPath string

	FallbackChunkRunes   int `validate:"gte=100"`
	FallbackChunkOverlap int `validate:"gte=0,ltfield=FallbackChunkRunes"`
	FallbackMaxChunks    int `validate:"gte=1,lte=32"`

	PostgresDSN string

	NATSURL           string
	NATSReviewSubject string `validate:"required"`

	APIRateLimitRPS         float64 `validate:"gte=0"`
	APIRateLimitBurst       int     `validate:"gte=0"`
	APIMaxInFlight          int     `validate:"gte=0"`
	APIBackpressureWaitMS   int     `validate:"gte=0"`
	WorkerMetricsPort       string  `validate:"required,numeric"`
	WorkerEscalationTimeout time.Duration

	ResilienceRetryMaxAttempts    int     `validate:"gte=1,lte=10"`
	ResilienceRetryInitialMS      int     `validate:"gte=1"`
	ResilienceRetryMaxMS          int     `validate:"gte=1"`
	ResilienceRetryMultiplier     float64 `validate:"gte=1"`
	ResilienceBreakerEnabled      bool
	ResilienceBreakerMinRequests  int     `validate:"gte=1"`
	ResilienceBreakerFailureRatio float64 `validate:"gt=0,lte=1"`
	ResilienceBreakerOpenMS       int     `validate:"gte=1"`
	ResilienceBreakerHalfOpenMax  int     `validate:"gte=1"`
}

func Load() Config {
	return Config{
		APIPort:   mustEnv("API_PORT", "8080"),
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "json"),

		MinConfidence:       mustEnvFloat("MIN_CONFIDENCE", 0.80),
		ClassifierConfigDir: mustEnv("CLASSIFIER_CONFIG_DIR", ""),
		FiletypesPath:       mustEnv("FILETYPES_PATH", ""),
		MimeDetector:        mustEnv("MIME_DETECTOR", "filetype"),

		ReviewStoragePath: mustEnv("REVIEW_STORAGE_PATH", "./data/manual_review"),
		ReviewKeyStrategy: mustEnv("REVIEW_KEY_STRATEGY", "filename"),

		MaxUploadBytes: int64(mustEnvInt("MAX_UPLOAD_BYTES", 32<<20)),
		OCRLanguage:    mustEnv("OCR_LANGUAGE", "eng"),
		PDFMaxPages:    mustEnvInt("PDF_MAX_PAGES", 20),

		OllamaURL:         mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbedModel:  mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		FallbackModelPath: mustEnv("FALLBACK_MODEL_PATH", ""),

		FallbackChunkRunes:   mustEnvInt("FALLBACK_CHUNK_RUNES", 2000),
		FallbackChunkOverlap: mustEnvInt("FALLBACK_CHUNK_OVERLAP", 200),
		FallbackMaxChunks:    mustEnvInt("FALLBACK_MAX_CHUNKS", 4),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:           mustEnv("NATS_URL", ""),
		NATSReviewSubject: mustEnv("NATS_REVIEW_SUBJECT", "triage.review.escalated"),

		APIRateLimitRPS:         mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:       mustEnvInt("API_RATE_LIMIT_BURST", 0),
		APIMaxInFlight:          mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIBackpressureWaitMS:   mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		WorkerMetricsPort:       mustEnv("WORKER_METRICS_PORT", "9090"),
		WorkerEscalationTimeout: time.Duration(mustEnvInt("WORKER_ESCALATION_TIMEOUT_SECONDS", 30)) * time.Second,

		ResilienceRetryMaxAttempts:    mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		ResilienceRetryInitialMS:      mustEnvInt("RESILIENCE_RETRY_INITIAL_MS", 100),
		ResilienceRetryMaxMS:          mustEnvInt("RESILIENCE_RETRY_MAX_MS", 400),
		ResilienceRetryMultiplier:     mustEnvFloat("RESILIENCE_RETRY_MULTIPLIER", 2.0),
		ResilienceBreakerEnabled:      mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		ResilienceBreakerMinRequests:  mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10),
		ResilienceBreakerFailureRatio: mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
		ResilienceBreakerOpenMS:       mustEnvInt("RESILIENCE_BREAKER_OPEN_MS", 30000),
		ResilienceBreakerHalfOpenMax:  mustEnvInt("RESILIENCE_BREAKER_HALF_OPEN_MAX_CALLS", 2),
	}
}

// Validate reports the first out-of-range setting as an ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return domain.WrapError(domain.ErrInvalidConfig, "validate config", err)
	}
	if c.ResilienceRetryMaxMS < c.ResilienceRetryInitialMS {
		return domain.WrapError(domain.ErrInvalidConfig, "validate config",
			fmt.Errorf("RESILIENCE_RETRY_MAX_MS (%d) is below RESILIENCE_RETRY_INITIAL_MS (%d)", c.ResilienceRetryMaxMS, c.ResilienceRetryInitialMS))
	}
	return nil
}

func (c Config) ResilienceConfig() resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    c.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: time.Duration(c.ResilienceRetryInitialMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(c.ResilienceRetryMaxMS) * time.Millisecond,
		RetryMultiplier:     c.ResilienceRetryMultiplier,

		BreakerEnabled:          c.ResilienceBreakerEnabled,
		BreakerMinRequests:      uint32(c.ResilienceBreakerMinRequests),
		BreakerFailureRatio:     c.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(c.ResilienceBreakerOpenMS) * time.Millisecond,
		BreakerHalfOpenMaxCalls: uint32(c.ResilienceBreakerHalfOpenMax),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
