package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
// Note: Sessions are opaque browser ids, so there are no auth secrets here
type Config struct {
	// Environment
	Environment string
	Port        string
	CORSOrigins []string // empty allows any origin

	// Generation limits
	MaxGenerations    int // successful generations per session
	MaxAttempts       int // backend attempts per request
	GenerationTimeout time.Duration

	// Brand policy
	BrandAllowList  []string
	BrandDenyList   []string
	StrictBrandMode bool

	// Image backend
	ImageBackend      string // "openai" or "gemini"
	ImageModel        string // empty uses the backend default
	ImageAspectRatio  string
	ImageOutputFormat string
	ImageQuality      string

	// Verification (optional)
	VerificationEnabled bool
	VerifierProvider    string // defaults to the image backend
	VerifierModel       string

	// Quota store
	QuotaStore  string // "memory", "postgres" or "redis"
	DatabaseURL string
	RedisURL    string

	// Lexicon override (optional YAML file)
	LexiconPath string

	// API Keys
	OpenAIAPIKey string // OpenAI API key for image and vision models
	GeminiAPIKey string // Google Gemini API key

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
}

func Load() *Config {
	backend := strings.ToLower(getEnv("IMAGE_BACKEND", "openai"))
	return &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		Port:                getEnv("PORT", "8080"),
		CORSOrigins:         getEnvList("CORS_ALLOWED_ORIGINS"),
		MaxGenerations:      getEnvInt("MAX_GENERATIONS", 2),
		MaxAttempts:         getEnvInt("MAX_ATTEMPTS", 2),
		GenerationTimeout:   time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 120)) * time.Second,
		BrandAllowList:      getEnvList("BRAND_ALLOW_LIST"),
		BrandDenyList:       getEnvList("BRAND_DENY_LIST"),
		StrictBrandMode:     getEnv("STRICT_BRAND_MODE", "false") == "true",
		ImageBackend:        backend,
		ImageModel:          getEnv("IMAGE_MODEL", ""),
		ImageAspectRatio:    getEnv("IMAGE_ASPECT_RATIO", "1:1"),
		ImageOutputFormat:   strings.ToLower(getEnv("IMAGE_OUTPUT_FORMAT", "png")),
		ImageQuality:        strings.ToLower(getEnv("IMAGE_QUALITY", "medium")),
		VerificationEnabled: getEnv("VERIFICATION_ENABLED", "false") == "true",
		VerifierProvider:    strings.ToLower(getEnv("VERIFIER_PROVIDER", backend)),
		VerifierModel:       getEnv("VERIFIER_MODEL", ""),
		QuotaStore:          strings.ToLower(getEnv("QUOTA_STORE", "memory")),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		LexiconPath:         getEnv("LEXICON_PATH", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:   getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:   getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:        getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:     getEnv("LANGFUSE_ENABLED", "false") == "true",
	}
}

// Validate reports configuration errors that must stop startup
func (c *Config) Validate() error {
	var errs []error

	if c.MaxGenerations < 1 {
		errs = append(errs, fmt.Errorf("MAX_GENERATIONS must be at least 1, got %d", c.MaxGenerations))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT_SECONDS must be positive"))
	}

	if err := c.requireKey("IMAGE_BACKEND", c.ImageBackend); err != nil {
		errs = append(errs, err)
	}
	if c.VerificationEnabled {
		if err := c.requireKey("VERIFIER_PROVIDER", c.VerifierProvider); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.QuotaStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when QUOTA_STORE=postgres"))
		}
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when QUOTA_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown QUOTA_STORE: %s (allowed: memory, postgres, redis)", c.QuotaStore))
	}

	return errors.Join(errs...)
}

// requireKey checks that the named provider is known and has an API key
func (c *Config) requireKey(setting, provider string) error {
	switch provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%s=openai requires OPENAI_API_KEY", setting)
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%s=gemini requires GEMINI_API_KEY", setting)
		}
	default:
		return fmt.Errorf("unknown %s: %s (allowed: openai, gemini)", setting, provider)
	}
	return nil
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
