package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Auth modes.
const (
	AuthModeOpaque = "opaque"
	AuthModeJWT    = "jwt"
)

// LLM providers.
const (
	LLMProviderGroq = "groq"
	LLMProviderNone = "none"
)

const (
	defaultMaxFileSize = 16 << 20
	defaultLLMTimeout  = 60 * time.Second
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	ServiceVersion  string
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	LLMProvider string
	LLMModel    string
	LLMBaseURL  string
	GroqAPIKey  string
	LLMTimeout  time.Duration

	MaxFileSize int64

	AuthMode  string
	JWTSecret string

	EventsQueueURL string

	ExtractRatePerMinute int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		ServiceVersion:  getEnv("SERVICE_VERSION", "1.0.0"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "*")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", "invoices"),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		LLMProvider: normalizeProvider(getEnv("LLM_PROVIDER", LLMProviderGroq)),
		LLMModel:    getEnv("LLM_MODEL", ""),
		LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		LLMTimeout:  time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", int(defaultLLMTimeout/time.Second))) * time.Second,

		MaxFileSize: int64(getEnvInt("MAX_FILE_SIZE", defaultMaxFileSize)),

		AuthMode:  normalizeAuthMode(getEnv("AUTH_MODE", AuthModeOpaque)),
		JWTSecret: getEnv("JWT_SECRET", ""),

		EventsQueueURL: getEnv("EVENTS_QUEUE_URL", ""),

		ExtractRatePerMinute: getEnvInt("EXTRACT_RATE_PER_MINUTE", 30),
	}
}

// IsDevLike reports whether missing infrastructure may fall back to memory.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s=%q is not a positive integer, using %d", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "none", "off":
		return "none"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case LLMProviderNone, "placeholder", "off":
		return LLMProviderNone
	default:
		return LLMProviderGroq
	}
}

func normalizeAuthMode(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), AuthModeJWT) {
		return AuthModeJWT
	}
	return AuthModeOpaque
}
